package session

import "time"

// clock is the per-session tick driver: one goroutine firing tick once
// per frame interval until halted. Halting is synchronous; halt does not
// return until the goroutine has exited, so no tick can fire afterwards.
type clock struct {
	stop chan struct{}
	done chan struct{}
}

// The tick callback receives the clock itself so state updates can
// verify they belong to the still-current driver.
func startClock(interval time.Duration, tick func(*clock)) *clock {
	c := &clock{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				tick(c)
			}
		}
	}()
	return c
}

// halt must be called at most once, and never from the clock's own tick.
func (c *clock) halt() {
	close(c.stop)
	<-c.done
}
