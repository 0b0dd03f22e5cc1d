// Package app wires the client together. It owns the session, entitlement and
// result state and hands them to the front ends explicitly.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/config"
	"github.com/existflow/joyful/internal/entitlement"
	"github.com/existflow/joyful/internal/gallery"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/session"
	"github.com/existflow/joyful/internal/storage"
	"github.com/existflow/joyful/internal/workflow"
)

// App is the application shell
type App struct {
	Config   *config.Config
	Client   *api.Client
	Session  *session.Manager
	Trials   *entitlement.Tracker
	Results  *gallery.Results
	Workflow *workflow.Workflow

	kv storage.KV
}

// Status is what is known about the user after a session is established
type Status struct {
	Profile          *model.Profile
	Entitlement      model.Entitlement
	EntitlementKnown bool
	EntitlementErr   error // status could not be fetched; the session itself is fine
}

// Options tweak how the shell is built
type Options struct {
	Observers []workflow.Observer
	APIOpts   []api.Option
	Progress  func() *workflow.Progress
}

// Open builds the shell on the sqlite store at cfg.StorePath, or the default one
func Open(cfg *config.Config, opts Options) (*App, error) {
	var (
		kv  *storage.SQLite
		err error
	)
	if cfg.StorePath == "" {
		kv, err = storage.OpenDefault()
	} else {
		kv, err = storage.Open(cfg.StorePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return New(cfg, kv, opts), nil
}

// New builds the shell on kv
func New(cfg *config.Config, kv storage.KV, opts Options) *App {
	store := session.NewStore(kv)

	apiOpts := append([]api.Option{api.WithTimeout(cfg.RequestTimeout)}, opts.APIOpts...)
	client := api.NewClient(cfg.APIBaseURL, store, apiOpts...)

	trials := entitlement.NewTracker(client)
	manager := session.NewManager(store, client, session.ResetOnLogout(trials))
	results := gallery.NewResults()

	wfOpts := []workflow.Option{}
	for _, o := range opts.Observers {
		wfOpts = append(wfOpts, workflow.WithObserver(o))
	}
	if opts.Progress != nil {
		wfOpts = append(wfOpts, workflow.WithProgress(opts.Progress))
	}

	logger.Debug("App ready", logger.F("api", client.BaseURL()))
	return &App{
		Config:   cfg,
		Client:   client,
		Session:  manager,
		Trials:   trials,
		Results:  results,
		Workflow: workflow.New(manager, trials, client, results, wfOpts...),
		kv:       kv,
	}
}

// Close releases the store
func (a *App) Close() error {
	if c, ok := a.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Restore loads the persisted session and, if there is one, its entitlement
func (a *App) Restore(ctx context.Context) (Status, error) {
	sess, err := a.Session.Restore(ctx)
	if err != nil {
		return Status{}, err
	}
	if !sess.IsAuthenticated() {
		return Status{}, nil
	}

	profile := sess.Profile
	if profile == nil {
		if profile, err = a.Session.RefreshProfile(ctx); err != nil {
			if loginRequired(err) {
				return Status{}, nil
			}
			logger.Warn("Failed to load user information", logger.F("error", err))
			profile = &model.Profile{}
		}
	}

	st, err := a.establish(ctx, profile)
	if loginRequired(err) {
		return Status{}, nil
	}
	return st, err
}

// Login logs in and refreshes the entitlement
func (a *App) Login(ctx context.Context, email, password string) (Status, error) {
	p, err := a.Session.Login(ctx, email, password)
	if err != nil {
		return Status{}, err
	}
	return a.establish(ctx, p)
}

// NewRegistration starts a registration flow
func (a *App) NewRegistration() *session.Registration {
	return session.NewRegistration(a.Client)
}

// Register creates the account and refreshes the entitlement
func (a *App) Register(ctx context.Context, flow *session.Registration, email, password, confirm, code string) (Status, error) {
	p, err := a.Session.Register(ctx, flow, email, password, confirm, code)
	if err != nil {
		return Status{}, err
	}
	return a.establish(ctx, p)
}

// Logout ends the session and forgets the entitlement
func (a *App) Logout(ctx context.Context) error {
	return a.Session.Logout(ctx)
}

// RefreshEntitlement re-reads the trial status
func (a *App) RefreshEntitlement(ctx context.Context) (model.Entitlement, error) {
	return a.Trials.FetchStatus(ctx)
}

// Generate runs one generate action
func (a *App) Generate(ctx context.Context, prompt string, ratio model.Ratio, count int) (*model.ResultGroup, error) {
	return a.Workflow.Generate(ctx, prompt, ratio, count)
}

// Health asks the backend whether it can generate
func (a *App) Health(ctx context.Context) (*api.HealthResponse, error) {
	return a.Client.Health(ctx)
}

// establish fetches the entitlement for a fresh session.
// A rejected token ends the session; other failures only leave it unknown.
func (a *App) establish(ctx context.Context, p *model.Profile) (Status, error) {
	st := Status{Profile: p}
	e, err := a.Trials.FetchStatus(ctx)
	if loginRequired(err) {
		_ = a.Session.Logout(ctx)
		return Status{}, err
	}
	if err != nil {
		logger.Warn("Failed to load trial status", logger.F("error", err))
		st.EntitlementErr = err
		return st, nil
	}
	st.Entitlement, st.EntitlementKnown = e, true
	return st, nil
}

func loginRequired(err error) bool {
	var ae *apperr.AuthenticationError
	return errors.As(err, &ae) && ae.LoginRequired
}
