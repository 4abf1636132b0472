package flow

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSimpleTimerFires(t *testing.T) {
	timer := NewSimpleTimer()
	fired := make(chan struct{})

	id, err := timer.ScheduleAfter(5*time.Millisecond, func() { close(fired) })
	if err != nil || id == "" {
		t.Fatalf("ScheduleAfter() = %q, %v", id, err)
	}
	if n := len(timer.ListActive()); n != 1 {
		t.Errorf("ListActive() = %d, want 1", n)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	deadline := time.Now().Add(time.Second)
	for len(timer.ListActive()) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := len(timer.ListActive()); n != 0 {
		t.Errorf("ListActive() after firing = %d, want 0", n)
	}
}

func TestSimpleTimerCancelAndStop(t *testing.T) {
	timer := NewSimpleTimer()
	var fired atomic.Int32

	id, _ := timer.ScheduleAfter(20*time.Millisecond, func() { fired.Add(1) })
	_, _ = timer.ScheduleAfter(20*time.Millisecond, func() { fired.Add(1) })
	_, _ = timer.ScheduleAfter(20*time.Millisecond, func() { fired.Add(1) })

	if err := timer.Cancel(id); err != nil {
		t.Fatalf("Cancel() = %v", err)
	}
	if err := timer.Cancel("timer_unknown"); err != nil {
		t.Errorf("Cancel(unknown) = %v, want nil", err)
	}
	if n := len(timer.ListActive()); n != 2 {
		t.Errorf("ListActive() = %d, want 2", n)
	}

	timer.Stop()
	if n := len(timer.ListActive()); n != 0 {
		t.Errorf("ListActive() after Stop = %d, want 0", n)
	}

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("%d callbacks ran after Cancel/Stop", n)
	}
}

func TestSimpleTimerRejectsNil(t *testing.T) {
	if _, err := NewSimpleTimer().ScheduleAfter(time.Millisecond, nil); err == nil {
		t.Error("ScheduleAfter(nil) returned nil error")
	}
}

func TestLoopDrainRunsNestedPosts(t *testing.T) {
	l := newLoop()
	var order []int
	l.post(func() {
		order = append(order, 1)
		l.post(func() { order = append(order, 3) })
	})
	l.post(func() { order = append(order, 2) })

	if n := l.drain(); n != 3 {
		t.Errorf("drain() ran %d, want 3", n)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want FIFO [1 2 3]", order)
	}
	if n := l.drain(); n != 0 {
		t.Errorf("second drain() ran %d, want 0", n)
	}
}
