package timeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_After(t *testing.T) {
	clock := RealClock{}
	select {
	case <-clock.After(10 * time.Millisecond):
	case <-time.After(time.Second):
		t.Error("After did not fire")
	}
}

func TestMockClock_After(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	got := <-clock.After(2 * time.Second)
	if want := start.Add(2 * time.Second); !got.Equal(want) {
		t.Errorf("After delivered %v, want %v", got, want)
	}
	<-clock.After(time.Second)

	waits := clock.Waits()
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != time.Second {
		t.Errorf("Waits() = %v", waits)
	}
	if !clock.Now().Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() = %v after waits", clock.Now())
	}
}

func TestMockClock_Advance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	clock.Advance(time.Hour)
	if clock.Now() != (time.Time{}).Add(time.Hour) {
		t.Errorf("Now() = %v", clock.Now())
	}
	if len(clock.Waits()) != 0 {
		t.Error("Advance should not record a wait")
	}
}

func TestSleepContext(t *testing.T) {
	clock := NewMockClock(time.Time{})

	if err := SleepContext(context.Background(), clock, time.Minute); err != nil {
		t.Errorf("SleepContext() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, RealClock{}, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext() on cancelled context = %v", err)
	}
	if err := SleepContext(ctx, clock, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("zero wait on cancelled context = %v", err)
	}
}
