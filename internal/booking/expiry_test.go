package booking

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"
)

type scriptedSweeper struct {
	mu    sync.Mutex
	calls int
	steps []func() (int, error)
}

func (s *scriptedSweeper) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if i < len(s.steps) {
		return s.steps[i]()
	}
	return 0, nil
}

func (s *scriptedSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestScheduler(s Sweeper, buf *bytes.Buffer) *ExpiryScheduler {
	sch := NewExpiryScheduler(s, 10*time.Millisecond)
	sch.logger = log.New(buf, "", 0)
	return sch
}

func TestSweep_ErrorThenRecovery(t *testing.T) {
	var buf bytes.Buffer
	sw := &scriptedSweeper{steps: []func() (int, error){
		func() (int, error) { return 0, errors.New("boom") },
		func() (int, error) { return 3, nil },
	}}
	sch := newTestScheduler(sw, &buf)

	if _, err := sch.Sweep(context.Background()); err == nil {
		t.Fatalf("expected first sweep to fail")
	}
	n, err := sch.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 released, got %d", n)
	}
	out := buf.String()
	if !strings.Contains(out, "expiry: sweep failed: boom") {
		t.Fatalf("failure not logged: %q", out)
	}
	if !strings.Contains(out, "expiry: released 3 seat(s)") {
		t.Fatalf("release not logged: %q", out)
	}
}

func TestSweep_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	sw := &scriptedSweeper{steps: []func() (int, error){
		func() (int, error) { panic("index out of range") },
	}}
	sch := newTestScheduler(sw, &buf)

	_, err := sch.Sweep(context.Background())
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Fatalf("expected panic reported as error, got %v", err)
	}
}

func TestRun_KeepsSweepingAfterFailuresAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	sw := &scriptedSweeper{steps: []func() (int, error){
		func() (int, error) { panic("first") },
		func() (int, error) { return 0, errors.New("second") },
	}}
	sch := newTestScheduler(sw, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for sw.count() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler stopped ticking after failures (calls=%d)", sw.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSweep_ReleasesElapsedHoldsThroughArbiter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.arbiter.Hold(ctx, screeningID, "t1", []uint64{f.seat(3, 4)}); err != nil {
		t.Fatalf("hold: %v", err)
	}
	var buf bytes.Buffer
	sch := newTestScheduler(f.arbiter, &buf)
	sch.now = func() time.Time { return f.clock.Now().Add(ttl) }

	n, err := sch.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 released seat, got %d", n)
	}
	if st, _ := mustInventory(t, f).Seat(f.seat(3, 4)); st.HolderToken != "" {
		t.Fatalf("seat still carries holder %q", st.HolderToken)
	}
}
