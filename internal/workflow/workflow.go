// Package workflow runs one generate action from prompt to rendered images.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/google/uuid"
)

// ErrInFlight is returned when Generate is called while another run is active
var ErrInFlight = errors.New("a generation is already in progress")

// MsgEmptyPrompt is shown when the prompt is blank
const MsgEmptyPrompt = "Please enter a prompt"

// Session tells whether someone is logged in
type Session interface {
	IsAuthenticated(ctx context.Context) bool
}

// Entitlements gates and charges generations
type Entitlements interface {
	Current() (model.Entitlement, bool)
	ConsumeTrial(ctx context.Context, kind string) (model.Entitlement, error)
}

// Generator renders images for a request
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (*api.GenerateResponse, error)
}

// Sink receives rendered result groups
type Sink interface {
	Append(g model.ResultGroup)
}

// Event reports a state change. Only the fields relevant to State are set.
type Event struct {
	State       State
	Progress    int
	Entitlement *model.Entitlement
	Group       *model.ResultGroup
	Err         error
}

// Observer is called synchronously for every event
type Observer func(Event)

// Workflow is the generate state machine. At most one run is active at a time.
type Workflow struct {
	session Session
	trials  Entitlements
	gen     Generator
	sink    Sink

	observers   []Observer
	newProgress func() *Progress
	now         func() time.Time

	inFlight atomic.Bool
	state    atomic.Int32
	emitMu   sync.Mutex
}

// Option configures a Workflow
type Option func(*Workflow)

// WithObserver subscribes fn to every event
func WithObserver(fn Observer) Option {
	return func(w *Workflow) { w.observers = append(w.observers, fn) }
}

// WithProgress replaces the progress estimator factory
func WithProgress(fn func() *Progress) Option {
	return func(w *Workflow) { w.newProgress = fn }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// New creates a workflow
func New(session Session, trials Entitlements, gen Generator, sink Sink, opts ...Option) *Workflow {
	w := &Workflow{
		session:     session,
		trials:      trials,
		gen:         gen,
		sink:        sink,
		newProgress: func() *Progress { return NewProgress() },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state
func (w *Workflow) State() State {
	return State(w.state.Load())
}

// InFlight reports whether a run is active
func (w *Workflow) InFlight() bool {
	return w.inFlight.Load()
}

// Generate runs the whole action. It returns the rendered group, or the error
// that sent the run to Failed. The workflow is Idle again when it returns.
func (w *Workflow) Generate(ctx context.Context, prompt string, ratio model.Ratio, count int) (*model.ResultGroup, error) {
	if !w.inFlight.CompareAndSwap(false, true) {
		logger.Debug("Generate ignored, already running")
		return nil, ErrInFlight
	}
	defer w.inFlight.Store(false)

	group, err := w.run(ctx, prompt, ratio, count)
	if err != nil {
		logger.Warn("Generation failed",
			logger.F("state", w.State()),
			logger.F("kind", apperr.KindOf(err)),
			logger.F("error", err))
		w.transition(Event{State: Failed, Err: err})
	}
	w.transition(Event{State: Idle})
	return group, err
}

func (w *Workflow) run(ctx context.Context, prompt string, ratio model.Ratio, count int) (*model.ResultGroup, error) {
	w.transition(Event{State: Validating})
	req, err := validate(prompt, ratio, count)
	if err != nil {
		return nil, err
	}

	w.transition(Event{State: CheckingEntitlement})
	if !w.session.IsAuthenticated(ctx) {
		return nil, &apperr.AuthenticationError{Message: apperr.MsgLoginRequired, LoginRequired: true}
	}
	if e, known := w.trials.Current(); known && !e.HasTrials() {
		return nil, &apperr.EntitlementError{Message: apperr.MsgNoTrials, Exhausted: true}
	}

	w.transition(Event{State: ConsumingTrial})
	e, err := w.trials.ConsumeTrial(ctx, model.TrialKindImage)
	if err != nil {
		return nil, err
	}
	w.transition(Event{State: ConsumingTrial, Entitlement: &e})

	w.transition(Event{State: Requesting})
	resp, err := w.request(ctx, req)
	if err != nil {
		return nil, err
	}

	w.transition(Event{State: Rendering, Progress: ProgressDone})
	group := model.ResultGroup{
		ID:        uuid.NewString(),
		Prompt:    req.Prompt,
		Ratio:     req.Ratio,
		Images:    resp.Images,
		CreatedAt: w.now(),
	}
	w.sink.Append(group)
	w.transition(Event{State: Rendering, Group: &group})

	logger.Info("Generation complete",
		logger.F("group", group.ID),
		logger.F("images", len(group.Images)),
		logger.F("remaining", e.Display()))
	return &group, nil
}

// request sends the one /generate call while the progress estimate runs
func (w *Workflow) request(ctx context.Context, req model.GenerationRequest) (*api.GenerateResponse, error) {
	progressCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.newProgress().Run(progressCtx, func(pct int) {
			w.transition(Event{State: Requesting, Progress: pct})
		})
	}()
	defer func() {
		stop()
		<-done
	}()

	logger.Info("Requesting generation",
		logger.F("ratio", req.Ratio),
		logger.F("count", req.Count),
		logger.F("prompt_len", len([]rune(req.Prompt))))

	resp, err := w.gen.Generate(ctx, req)
	if err != nil {
		if apperr.IsConnectivity(err) {
			return nil, err
		}
		return nil, &apperr.GenerationError{Message: apperr.ServerMessage(err, apperr.MsgGenerationFailed), Err: err}
	}
	if !resp.Success || len(resp.Images) == 0 {
		msg := resp.Reason()
		if msg == "" {
			msg = apperr.MsgGenerationFailed
		}
		return nil, &apperr.GenerationError{Message: msg}
	}
	return resp, nil
}

func (w *Workflow) transition(ev Event) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	w.state.Store(int32(ev.State))
	for _, fn := range w.observers {
		fn(ev)
	}
}

func validate(prompt string, ratio model.Ratio, count int) (model.GenerationRequest, error) {
	req := model.NewGenerationRequest(prompt, ratio, count)
	if req.Prompt == "" {
		return req, apperr.Invalid("prompt", MsgEmptyPrompt)
	}
	if _, err := model.ParseRatio(string(req.Ratio)); err != nil {
		return req, apperr.Invalid("ratio", err.Error())
	}
	if req.Count < model.MinImageCount || req.Count > model.MaxImageCount {
		return req, apperr.Invalid("count", fmt.Sprintf("Image count must be between %d and %d", model.MinImageCount, model.MaxImageCount))
	}
	return req, nil
}
