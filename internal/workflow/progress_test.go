package workflow

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_StepBounds(t *testing.T) {
	p := NewProgress(WithSource(rand.NewPCG(7, 7)))

	prev := 0
	for range 20 {
		v := p.Step()
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, ProgressCap)
		if prev < ProgressCap-20 {
			assert.GreaterOrEqual(t, v-prev, 4)
		}
		prev = v
	}
	assert.Equal(t, ProgressCap, p.Value())
	assert.Equal(t, ProgressDone, p.Complete())
}

func TestProgress_RunStopsOnCancel(t *testing.T) {
	p := NewProgress(WithDelays(time.Hour, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	var got []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, func(v int) { got = append(got, v) })
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.LessOrEqual(t, len(got), 1)
}

func TestProgress_RunReachesCap(t *testing.T) {
	p := NewProgress(WithDelays(0, 0))
	var last int
	p.Run(context.Background(), func(v int) { last = v })
	assert.Equal(t, ProgressCap, last)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "consuming-trial", ConsumingTrial.String())
	assert.True(t, Requesting.Busy())
	assert.False(t, Failed.Busy())
	assert.False(t, Idle.Busy())
}
