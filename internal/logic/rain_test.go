package logic

import "testing"

func TestRainHistorySeeded(t *testing.T) {
	r := NewRainHistory(100)
	if r.Counter() != 100 {
		t.Errorf("Counter: got %d, want 100", r.Counter())
	}
	for i := 0; i < MinuteSlots; i++ {
		if r.Minute(i) != 100 {
			t.Fatalf("minute slot %d: got %d, want 100", i, r.Minute(i))
		}
	}
	for i := 0; i < HourSlots; i++ {
		if r.Hour(i) != 100 {
			t.Fatalf("hour slot %d: got %d, want 100", i, r.Hour(i))
		}
	}
	if r.LastHour() != 0 || r.LastDay() != 0 {
		t.Errorf("totals: got %d/%d, want 0/0", r.LastHour(), r.LastDay())
	}
}

func TestRainHistoryRollingHour(t *testing.T) {
	r := NewRainHistory(100)
	for minute, c := range []uint16{100, 100, 105, 105, 110} {
		r.Record(c, minute, 0)
	}
	// Minute 4 compares against slot 5, still holding the seed.
	if r.LastHour() != 10 {
		t.Errorf("LastHour: got %d, want 10", r.LastHour())
	}
	if r.LastDay() != 10 {
		t.Errorf("LastDay: got %d, want 10", r.LastDay())
	}
}

func TestRainHistoryTipsAgeOut(t *testing.T) {
	r := NewRainHistory(0)
	r.Record(10, 0, 0)
	for minute := 1; minute < MinuteSlots; minute++ {
		r.Record(10, minute, 0)
		if minute == 58 && r.LastHour() != 10 {
			t.Errorf("minute 58: LastHour got %d, want 10", r.LastHour())
		}
	}
	if r.LastHour() != 0 {
		t.Errorf("minute 59: LastHour got %d, want 0", r.LastHour())
	}
	// The day window still holds them.
	if r.LastDay() != 10 {
		t.Errorf("LastDay: got %d, want 10", r.LastDay())
	}
}

func TestRainHistoryCounterWrap(t *testing.T) {
	r := NewRainHistory(4090)
	r.Record(5, 0, 0)
	if r.LastHour() != 11 {
		t.Errorf("LastHour: got %d, want 11", r.LastHour())
	}
	if r.LastDay() != 11 {
		t.Errorf("LastDay: got %d, want 11", r.LastDay())
	}
}

func TestRainHistorySlotIndexWraps(t *testing.T) {
	r := NewRainHistory(0)
	r.Record(3, 61, 25)
	if r.Minute(1) != 3 {
		t.Errorf("minute slot 1: got %d, want 3", r.Minute(1))
	}
	if r.Hour(1) != 3 {
		t.Errorf("hour slot 1: got %d, want 3", r.Hour(1))
	}
	if r.Minute(-59) != 3 {
		t.Errorf("minute slot -59: got %d, want 3", r.Minute(-59))
	}
}
