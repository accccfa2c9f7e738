package timecode

import (
	"encoding/json"
	"errors"
	"time"
)

// Framerate is one of the fixed professional-video rates the server
// supports. The zero value is invalid.
type Framerate string

const (
	Rate23976 Framerate = "23.976"
	Rate24    Framerate = "24"
	Rate2997  Framerate = "29.97"
	Rate30    Framerate = "30"
	Rate50    Framerate = "50"
	Rate5994  Framerate = "59.94"
	Rate60    Framerate = "60"
)

// ErrUnsupportedFramerate is returned for rates outside the fixed set.
var ErrUnsupportedFramerate = errors.New("unsupported framerate")

var framerateValues = map[Framerate]float64{
	Rate23976: 23.976,
	Rate24:    24.0,
	Rate2997:  29.97,
	Rate30:    30.0,
	Rate50:    50.0,
	Rate5994:  59.94,
	Rate60:    60.0,
}

// ordered for welcome messages and status output
var framerateOrder = []Framerate{
	Rate23976, Rate24, Rate2997, Rate30, Rate50, Rate5994, Rate60,
}

// ParseFramerate validates s against the supported set.
func ParseFramerate(s string) (Framerate, error) {
	fr := Framerate(s)
	if _, ok := framerateValues[fr]; !ok {
		return "", ErrUnsupportedFramerate
	}
	return fr, nil
}

// SupportedFramerates returns the supported rates in ascending order.
func SupportedFramerates() []string {
	out := make([]string, len(framerateOrder))
	for i, fr := range framerateOrder {
		out[i] = string(fr)
	}
	return out
}

func (f Framerate) String() string { return string(f) }

// Value returns the frames-per-second value, e.g. 29.97.
func (f Framerate) Value() float64 { return framerateValues[f] }

// MaxFrames is the frame-rollover threshold: the integer part of the
// rate. Fractional rates truncate (29.97 rolls at 29); there is no
// drop-frame compensation.
func (f Framerate) MaxFrames() int { return int(framerateValues[f]) }

// Interval is the wall-clock duration of one frame at this rate.
func (f Framerate) Interval() time.Duration {
	return time.Duration(float64(time.Second) / framerateValues[f])
}

func (f Framerate) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f *Framerate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	fr, err := ParseFramerate(s)
	if err != nil {
		return err
	}
	*f = fr
	return nil
}
