package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClockTimerFires(t *testing.T) {
	c := RealClock{}
	timer := c.NewTimer(time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire within a second")
	}
}

func TestRealClockTimerStop(t *testing.T) {
	c := RealClock{}
	timer := c.NewTimer(time.Hour)
	if !timer.Stop() {
		t.Error("Stop() = false for an unfired timer")
	}
}

func TestMockClockSleepAdvancesAndRecords(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewMockClock(start)

	c.Sleep(5 * time.Millisecond)
	c.Sleep(10 * time.Millisecond)

	if got := c.Now(); !got.Equal(start.Add(15 * time.Millisecond)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(15*time.Millisecond))
	}
	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 5*time.Millisecond || sleeps[1] != 10*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [5ms 10ms]", sleeps)
	}
}

func TestMockClockTimerFiresImmediately(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewMockClock(start)

	timer := c.NewTimer(500 * time.Millisecond)
	select {
	case now := <-timer.C():
		if !now.Equal(start.Add(500 * time.Millisecond)) {
			t.Errorf("fired at %v, want %v", now, start.Add(500*time.Millisecond))
		}
	default:
		t.Fatal("mock timer should have fired immediately")
	}

	waits := c.Waits()
	if len(waits) != 1 || waits[0] != 500*time.Millisecond {
		t.Errorf("Waits() = %v, want [500ms]", waits)
	}
}

func TestMockClockHoldTimers(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.SetHoldTimers(true)

	timer := c.NewTimer(time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("held timer must not fire")
	default:
	}

	if got := c.Waits(); len(got) != 1 || got[0] != time.Millisecond {
		t.Errorf("Waits() = %v, want [1ms]", got)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewMockClock(start)
	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(time.Minute))
	}
}
