package circuitbreaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return New(Config{Threshold: threshold, Cooldown: time.Minute}, WithClock(clock.Now)), clock
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: -1})

	if b.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", b.cfg, DefaultConfig())
	}
	if b.State() != Closed {
		t.Errorf("State() = %s, want closed", b.State())
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(3)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if b.State() != Closed || !b.Allow() {
		t.Fatal("breaker should stay closed below the threshold")
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("State() = %s, want open", b.State())
	}
	if b.Allow() {
		t.Error("open breaker should reject calls")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(3)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	if b.Failures() != 1 || b.State() != Closed {
		t.Errorf("Failures() = %d, State() = %s", b.Failures(), b.State())
	}
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	t.Parallel()
	b, clock := newTestBreaker(1)

	b.RecordFailure()
	clock.Advance(59 * time.Second)
	if b.Allow() {
		t.Fatal("should reject before the cooldown ends")
	}

	clock.Advance(time.Second)
	if !b.Allow() {
		t.Fatal("should allow a probe after the cooldown")
	}
	if b.State() != HalfOpen {
		t.Errorf("State() = %s, want half-open", b.State())
	}
	if b.Allow() {
		t.Error("only one probe may be in flight")
	}

	b.RecordSuccess()
	if b.State() != Closed || !b.Allow() {
		t.Errorf("successful probe should close the breaker, got %s", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()
	b, clock := newTestBreaker(2)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(time.Minute)
	if !b.Allow() {
		t.Fatal("expected probe")
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("State() = %s, want open", b.State())
	}
	if b.Allow() {
		t.Error("reopened breaker should wait a full cooldown")
	}
	clock.Advance(time.Minute)
	if !b.Allow() {
		t.Error("expected a new probe after the second cooldown")
	}
}

func TestBreaker_Do(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(2)
	boom := errors.New("connection refused")

	var calls atomic.Int32
	failing := func() error {
		calls.Add(1)
		return boom
	}

	for i := 0; i < 2; i++ {
		if err := b.Do(failing); !errors.Is(err, boom) {
			t.Fatalf("Do() error = %v, want %v", err, boom)
		}
	}
	if err := b.Do(failing); !errors.Is(err, ErrOpen) {
		t.Errorf("Do() error = %v, want ErrOpen", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	tests := map[State]string{
		Closed:    "closed",
		Open:      "open",
		HalfOpen:  "half-open",
		State(42): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", int(s), got, want)
		}
	}
}

func TestBreaker_Concurrent(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Do(func() error { return errors.New("fail") })
		}()
	}
	wg.Wait()

	if b.Failures() != 50 {
		t.Errorf("Failures() = %d, want 50", b.Failures())
	}
}
