package logic

import "time"

// Clock keeps the receiver's time of day from a monotonic reading. It is
// independent of the edge capture ticks.
type Clock struct {
	tod     TimeOfDay
	last    time.Duration
	started bool
}

// NewClock starts the clock at the given time of day.
func NewClock(start TimeOfDay) *Clock {
	start.Hour = mod(start.Hour, HourSlots)
	start.Minute = mod(start.Minute, MinuteSlots)
	start.Second = mod(start.Second, 60)
	return &Clock{tod: start}
}

// ClockAt returns a clock set to t's time of day.
func ClockAt(t time.Time) *Clock {
	return NewClock(TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()})
}

// Advance steps the clock one second for every full second elapsed since the
// last step. Drift is carried forward: each step moves the reference by
// exactly one second rather than to now. onMinute is called with the minute
// being completed, before the minute advances. Returns the number of steps.
func (c *Clock) Advance(now time.Duration, onMinute func(TimeOfDay)) int {
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}

	steps := 0
	for {
		diff := now - c.last - time.Second
		if diff < 0 {
			return steps
		}
		c.last = now - diff
		steps++

		c.tod.Second++
		if c.tod.Second < 60 {
			continue
		}
		c.tod.Second = 0
		if onMinute != nil {
			onMinute(c.tod)
		}
		c.tod.Minute++
		if c.tod.Minute < MinuteSlots {
			continue
		}
		c.tod.Minute = 0
		c.tod.Hour = (c.tod.Hour + 1) % HourSlots
	}
}

// Now returns the current time of day.
func (c *Clock) Now() TimeOfDay {
	return c.tod
}
