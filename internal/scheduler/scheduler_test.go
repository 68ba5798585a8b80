package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPanicsOnBadInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("zero interval should panic")
		}
	}()
	New(Options{Interval: 0}, zerolog.Nop())
}

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2025, time.June, 5, 8, 17, 30, 0, time.UTC)
	next := s.nextTick(now)
	want := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next tick should align to %s, got %s", want, next)
	}

	// Exactly on the boundary advances a full interval.
	next = s.nextTick(want)
	if !next.Equal(want.Add(time.Hour)) {
		t.Fatalf("boundary time should advance one interval, got %s", next)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	now := time.Date(2025, time.June, 5, 8, 17, 30, 0, time.UTC)
	if next := s.nextTick(now); !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned next tick should be now+interval, got %s", next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			ticks.Add(1)
			return nil
		})
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if ticks.Load() == 0 {
		t.Fatal("expected at least one tick before cancel")
	}
}
