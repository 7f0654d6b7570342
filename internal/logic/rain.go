package logic

const (
	MinuteSlots = 60
	HourSlots   = 24

	// RainCounterMask covers the sensor's 12-bit tip counter, which wraps at 4095.
	RainCounterMask = 0x0FFF
)

// RainHistory keeps the absolute rain counter as it stood at each minute and
// hour slot, so rolling one-hour and 24-hour totals are simple differences.
type RainHistory struct {
	minutes [MinuteSlots]uint16
	hours   [HourSlots]uint16
	counter uint16
	lastH   uint16
	lastD   uint16
}

// NewRainHistory seeds every slot with counter so initial deltas read zero.
func NewRainHistory(counter uint16) *RainHistory {
	r := &RainHistory{counter: counter}
	for i := range r.minutes {
		r.minutes[i] = counter
	}
	for i := range r.hours {
		r.hours[i] = counter
	}
	return r
}

// Record stores counter in the given minute and hour slots and recomputes
// the totals against the oldest slot in each ring.
func (r *RainHistory) Record(counter uint16, minute, hour int) {
	m := mod(minute, MinuteSlots)
	h := mod(hour, HourSlots)

	r.counter = counter
	r.minutes[m] = counter
	r.hours[h] = counter
	r.lastH = (counter - r.minutes[(m+1)%MinuteSlots]) & RainCounterMask
	r.lastD = (counter - r.hours[(h+1)%HourSlots]) & RainCounterMask
}

// Counter returns the most recently recorded counter.
func (r *RainHistory) Counter() uint16 {
	return r.counter
}

// LastHour returns the tips counted over the last hour.
func (r *RainHistory) LastHour() uint16 {
	return r.lastH
}

// LastDay returns the tips counted over the last 24 hours.
func (r *RainHistory) LastDay() uint16 {
	return r.lastD
}

// Minute returns the counter held in minute slot i.
func (r *RainHistory) Minute(i int) uint16 {
	return r.minutes[mod(i, MinuteSlots)]
}

// Hour returns the counter held in hour slot i.
func (r *RainHistory) Hour(i int) uint16 {
	return r.hours[mod(i, HourSlots)]
}

func mod(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
