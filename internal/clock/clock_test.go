package clock

import (
	"reflect"
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired []string

	m.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	m.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	m.AfterFunc(2*time.Second, func() { fired = append(fired, "c") })

	m.Advance(1500 * time.Millisecond)
	if !reflect.DeepEqual(fired, []string{"a"}) {
		t.Fatalf("expected only a, got %v", fired)
	}
	m.Advance(time.Second)
	if !reflect.DeepEqual(fired, []string{"a", "b", "c"}) {
		t.Fatalf("expected a,b,c, got %v", fired)
	}
	if got := m.Now(); !got.Equal(time.Unix(2, 500_000_000)) {
		t.Fatalf("unexpected now %v", got)
	}
}

func TestManualRunsChainedCallbacks(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			m.AfterFunc(time.Second, tick)
		}
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3 * time.Second)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	m.Advance(10 * time.Second)
	if ticks != 5 {
		t.Fatalf("expected 5 ticks, got %d", ticks)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending timers")
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("expected first stop to succeed")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	m.Advance(2 * time.Second)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}
