package schedule

import (
	"context"
	"math/rand"
	"time"
)

type Scheduler struct {
	base   time.Duration
	jitter float64
	min    time.Duration
	ch     chan time.Time
}

// New returns a scheduler that ticks at base ± jitter% until ctx is done.
func New(ctx context.Context, base time.Duration, jitterPct float64) *Scheduler {
	s := &Scheduler{base: base, jitter: jitterPct, min: 50 * time.Millisecond, ch: make(chan time.Time)}
	go s.loop(ctx)
	return s
}

func (s *Scheduler) Next() <-chan time.Time { return s.ch }

// Delay draws the next wait.
func (s *Scheduler) Delay() time.Duration {
	// jitter in [-j, +j]
	j := (rand.Float64()*2 - 1) * s.jitter
	d := time.Duration(float64(s.base) * (1 + j))
	if d < s.min {
		d = s.min
	}
	return d
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		t := time.NewTimer(s.Delay())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		select {
		case <-ctx.Done():
			return
		case s.ch <- time.Now():
		}
	}
}
