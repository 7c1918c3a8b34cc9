package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/zoobzio/simforge"
)

// app owns the stores and client for one CLI invocation.
type app struct {
	cfg    Config
	log    zerolog.Logger
	out    io.Writer
	errOut io.Writer

	client   *simforge.Client
	sequence *simforge.SequenceStore
	toasts   *simforge.ToastStore

	// ctx bounds pending toast expiry timers.
	ctx      context.Context
	teardown []func()
}

// newApp creates the stores and client from cfg. Close releases them.
func newApp(cfg Config, logger zerolog.Logger, out, errOut io.Writer) *app {
	client := simforge.NewClient(cfg.API.URL).
		WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout})
	if cfg.API.Retries > 0 {
		client = client.WithBackoff(cfg.API.Retries+1, cfg.API.RetryDelay)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{
		ctx:      ctx,
		cfg:      cfg,
		log:      logger,
		out:      out,
		errOut:   errOut,
		client:   client,
		sequence: simforge.NewSequenceStore(),
		toasts:   simforge.NewToastStore(),
	}

	a.teardown = append(a.teardown, bridgeSignals(logger), cancel)
	a.teardown = append(a.teardown, a.toasts.Subscribe(a.printNewToasts()))
	return a
}

// printNewToasts returns a subscriber that prints each toast once, when it
// first appears, and schedules its removal.
func (a *app) printNewToasts() func([]simforge.Toast) {
	printed := make(map[string]bool)
	return func(toasts []simforge.Toast) {
		for _, t := range toasts {
			if printed[t.ID] {
				continue
			}
			printed[t.ID] = true
			fmt.Fprintln(a.errOut, renderToast(t))
			a.toasts.Expire(a.ctx, t.ID)
		}
	}
}

// Close detaches subscriptions and resets the stores.
func (a *app) Close() {
	for i := len(a.teardown) - 1; i >= 0; i-- {
		a.teardown[i]()
	}
	a.toasts.Clear()
	a.sequence.Reset()
}

// loadGenerated fills the sequence store from the backend.
func (a *app) loadGenerated(ctx context.Context, req simforge.GenerationRequest) error {
	a.sequence.WithLoader(simforge.NewClientLoader(a.client, req))
	a.sequence.LoadSequences(ctx)

	st := a.sequence.State()
	if st.Error != "" {
		a.toasts.Error(st.Error)
		return fmt.Errorf("generate: %s", st.Error)
	}
	a.toasts.Success(fmt.Sprintf("Generated %d sequences", len(st.Sequences)))
	return nil
}

// render writes the store's sequences in the configured format.
func (a *app) render() error {
	st := a.sequence.State()
	return renderSequences(a.out, a.cfg.Output, st.Sequences, st.CurrentSequence, now())
}
