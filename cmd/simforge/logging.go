package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/simforge"
)

// newLogger builds a console logger writing to w at the named level.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: zerolog.SyncWriter(w), TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

// bridgeSignals forwards simforge signals to logger and returns a func that
// detaches every hook.
func bridgeSignals(logger zerolog.Logger) func() {
	listeners := []*capitan.Listener{
		capitan.Hook(simforge.SequencesLoading, logEvent(logger, "sequences loading")),
		capitan.Hook(simforge.SequencesLoaded, logEvent(logger, "sequences loaded")),
		capitan.Hook(simforge.SequencesLoadFailed, logEvent(logger, "sequences load failed")),
		capitan.Hook(simforge.SequenceRejected, logEvent(logger, "sequence rejected")),
		capitan.Hook(simforge.SequencesAdded, logEvent(logger, "sequences added")),
		capitan.Hook(simforge.SequenceSelected, logEvent(logger, "sequence selected")),
		capitan.Hook(simforge.RowAdded, logEvent(logger, "row added")),
		capitan.Hook(simforge.RowUpdated, logEvent(logger, "row updated")),
		capitan.Hook(simforge.RowDeleted, logEvent(logger, "row deleted")),
		capitan.Hook(simforge.RowsForked, logEvent(logger, "rows forked")),
		capitan.Hook(simforge.SelectionChanged, logEvent(logger, "selection changed")),
		capitan.Hook(simforge.StoreReset, logEvent(logger, "store reset")),
		capitan.Hook(simforge.ToastAdded, logEvent(logger, "toast added")),
		capitan.Hook(simforge.ToastRemoved, logEvent(logger, "toast removed")),
		capitan.Hook(simforge.ToastsCleared, logEvent(logger, "toasts cleared")),
		capitan.Hook(simforge.RequestCompleted, logEvent(logger, "request completed")),
		capitan.Hook(simforge.RequestFailed, logEvent(logger, "request failed")),
	}
	return func() {
		for _, l := range listeners {
			l.Close()
		}
	}
}

func logEvent(logger zerolog.Logger, msg string) func(context.Context, *capitan.Event) {
	return func(_ context.Context, e *capitan.Event) {
		ev := logger.Debug()
		if e.Severity() == capitan.SeverityError {
			ev = logger.Error()
		}

		if v, ok := simforge.FieldSequenceID.From(e); ok {
			ev = ev.Str("sequence_id", v)
		}
		if v, ok := simforge.FieldRowID.From(e); ok {
			ev = ev.Str("row_id", v)
		}
		if v, ok := simforge.FieldParentID.From(e); ok {
			ev = ev.Str("parent_id", v)
		}
		if v, ok := simforge.FieldOperation.From(e); ok {
			ev = ev.Str("operation", v)
		}
		if v, ok := simforge.FieldToastID.From(e); ok {
			ev = ev.Str("toast_id", v)
		}
		if v, ok := simforge.FieldToastType.From(e); ok {
			ev = ev.Str("toast_type", v)
		}
		if v, ok := simforge.FieldMethod.From(e); ok {
			ev = ev.Str("method", v)
		}
		if v, ok := simforge.FieldEndpoint.From(e); ok {
			ev = ev.Str("endpoint", v)
		}
		if v, ok := simforge.FieldSequenceCount.From(e); ok {
			ev = ev.Int("sequence_count", v)
		}
		if v, ok := simforge.FieldRowCount.From(e); ok {
			ev = ev.Int("row_count", v)
		}
		if v, ok := simforge.FieldSelectedCount.From(e); ok {
			ev = ev.Int("selected_count", v)
		}
		if v, ok := simforge.FieldStatus.From(e); ok && v != 0 {
			ev = ev.Int("status", v)
		}
		if v, ok := simforge.FieldDuration.From(e); ok {
			ev = ev.Dur("duration", v)
		}
		if v, ok := simforge.FieldError.From(e); ok && v != nil {
			ev = ev.Err(v)
		}
		ev.Msg(msg)
	}
}
