package workflow

import (
	"context"
	"math/rand/v2"
	"time"
)

// Progress bounds
const (
	ProgressCap  = 90
	ProgressDone = 100
)

// Progress is a cosmetic estimate shown while waiting for the backend.
// It only ever grows, and stays at or below ProgressCap until Complete.
type Progress struct {
	rng      *rand.Rand
	value    float64
	minStep  float64
	maxStep  float64
	minDelay time.Duration
	maxDelay time.Duration
}

// ProgressOption configures a Progress
type ProgressOption func(*Progress)

// WithDelays sets the random pause range between steps
func WithDelays(lo, hi time.Duration) ProgressOption {
	return func(p *Progress) { p.minDelay, p.maxDelay = lo, hi }
}

// WithSource makes the steps reproducible
func WithSource(src rand.Source) ProgressOption {
	return func(p *Progress) { p.rng = rand.New(src) }
}

// NewProgress starts at 0 with steps of 5-20% every 1-3s
func NewProgress(opts ...ProgressOption) *Progress {
	p := &Progress{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		minStep:  5,
		maxStep:  20,
		minDelay: time.Second,
		maxDelay: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Value returns the current percentage
func (p *Progress) Value() int {
	return int(p.value + 0.5)
}

// Step advances by a random increment and returns the new percentage
func (p *Progress) Step() int {
	inc := p.minStep + p.rng.Float64()*(p.maxStep-p.minStep)
	p.value = min(p.value+inc, ProgressCap)
	return p.Value()
}

// Complete snaps to 100
func (p *Progress) Complete() int {
	p.value = ProgressDone
	return ProgressDone
}

func (p *Progress) delay() time.Duration {
	if p.maxDelay <= p.minDelay {
		return p.minDelay
	}
	return p.minDelay + time.Duration(p.rng.Int64N(int64(p.maxDelay-p.minDelay)))
}

// Run steps until the cap is reached or ctx is done, calling emit after each step
func (p *Progress) Run(ctx context.Context, emit func(int)) {
	for ctx.Err() == nil {
		emit(p.Step())
		if p.value >= ProgressCap {
			return
		}

		timer := time.NewTimer(p.delay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
