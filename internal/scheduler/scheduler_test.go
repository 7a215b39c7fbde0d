package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextRoundAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 20, 0, 0, time.UTC)

	got := s.nextRound(now)
	want := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	onBoundary := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if got := s.nextRound(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("a round on the boundary should schedule the following one, got %s", got)
	}
}

func TestNextRoundUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 20, 0, 0, time.UTC)
	if got := s.nextRound(now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected next round %s", got)
	}
	if got := s.roundStart(now); !got.Equal(now) {
		t.Fatalf("unaligned round start should be untouched, got %s", got)
	}
}

func TestRunOnStartAndCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, round time.Time) error {
			calls.Add(1)
			cancel()
			return errors.New("round errors are logged, not returned")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one startup round, got %d", calls.Load())
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
