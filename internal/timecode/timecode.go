// Package timecode implements SMPTE HH:MM:SS:FF timecode values and the
// fixed set of supported framerates.
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a timecode string does not have exactly
// four colon-separated nonnegative integer fields.
var ErrMalformed = errors.New("invalid timecode format, use HH:MM:SS:FF")

// Timecode is an SMPTE timecode value. At rest each field is within its
// bound (frames bounded by the session framerate); fields only change
// through Increment or wholesale replacement.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// Parse parses HH:MM:SS:FF. Only field count and integer-ness are
// checked; out-of-range components are accepted verbatim and normalize
// on the next Increment.
func Parse(s string) (Timecode, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Timecode{}, ErrMalformed
	}
	var fields [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Timecode{}, ErrMalformed
		}
		fields[i] = n
	}
	return Timecode{Hours: fields[0], Minutes: fields[1], Seconds: fields[2], Frames: fields[3]}, nil
}

// String formats the timecode as zero-padded HH:MM:SS:FF.
func (t Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds, t.Frames)
}

// Increment advances the timecode by one frame, rolling frames at
// maxFrames, seconds and minutes at 60, and hours at 24.
func (t Timecode) Increment(maxFrames int) Timecode {
	t.Frames++
	if t.Frames >= maxFrames {
		t.Frames = 0
		t.Seconds++
		if t.Seconds >= 60 {
			t.Seconds = 0
			t.Minutes++
			if t.Minutes >= 60 {
				t.Minutes = 0
				t.Hours++
				if t.Hours >= 24 {
					t.Hours = 0
				}
			}
		}
	}
	return t
}
