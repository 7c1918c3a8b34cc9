package simforge

import "github.com/zoobzio/capitan"

// Signal definitions for simforge store and client events.
// Signals follow the pattern: simforge.<entity>.<event>.
var (
	// Sequence loading signals.
	SequencesLoading = capitan.NewSignal(
		"simforge.sequences.loading",
		"Sequence load started and isLoading raised",
	)
	SequencesLoaded = capitan.NewSignal(
		"simforge.sequences.loaded",
		"Sequences replaced from a successful load",
	)
	SequencesLoadFailed = capitan.NewSignal(
		"simforge.sequences.load_failed",
		"Sequence load failed and error recorded in state",
	)
	SequenceRejected = capitan.NewSignal(
		"simforge.sequence.rejected",
		"Loaded sequence dropped for failing validation",
	)
	SequencesAdded = capitan.NewSignal(
		"simforge.sequences.added",
		"Sequences appended to the store",
	)
	SequenceSelected = capitan.NewSignal(
		"simforge.sequence.selected",
		"Current sequence changed",
	)

	// Row signals.
	RowAdded = capitan.NewSignal(
		"simforge.row.added",
		"Row appended to the current sequence",
	)
	RowUpdated = capitan.NewSignal(
		"simforge.row.updated",
		"Row fields merged in the current sequence",
	)
	RowDeleted = capitan.NewSignal(
		"simforge.row.deleted",
		"Row removed from the current sequence",
	)
	RowsForked = capitan.NewSignal(
		"simforge.row.forked",
		"Fork rows attached under a parent row",
	)

	// Selection and lifecycle signals.
	SelectionChanged = capitan.NewSignal(
		"simforge.selection.changed",
		"Selected row set changed",
	)
	StoreReset = capitan.NewSignal(
		"simforge.store.reset",
		"Store restored to its initial empty state",
	)

	// Toast signals.
	ToastAdded = capitan.NewSignal(
		"simforge.toast.added",
		"Toast notification queued for display",
	)
	ToastRemoved = capitan.NewSignal(
		"simforge.toast.removed",
		"Toast notification dismissed",
	)
	ToastsCleared = capitan.NewSignal(
		"simforge.toast.cleared",
		"All toast notifications dismissed",
	)

	// API client signals.
	RequestCompleted = capitan.NewSignal(
		"simforge.api.request.completed",
		"API request returned a successful response",
	)
	RequestFailed = capitan.NewSignal(
		"simforge.api.request.failed",
		"API request failed at transport or server level",
	)
)

// Field keys for simforge event data.
var (
	// Sequence metadata.
	FieldSequenceID    = capitan.NewStringKey("sequence_id")
	FieldSequenceCount = capitan.NewIntKey("sequence_count")
	FieldRowID         = capitan.NewStringKey("row_id")
	FieldParentID      = capitan.NewStringKey("parent_id")
	FieldRowCount      = capitan.NewIntKey("row_count")
	FieldSelectedCount = capitan.NewIntKey("selected_count")
	FieldOperation     = capitan.NewStringKey("operation")

	// Toast metadata.
	FieldToastID   = capitan.NewStringKey("toast_id")
	FieldToastType = capitan.NewStringKey("toast_type")

	// Request metadata.
	FieldMethod   = capitan.NewStringKey("method")
	FieldEndpoint = capitan.NewStringKey("endpoint")
	FieldStatus   = capitan.NewIntKey("status")

	// Timing.
	FieldDuration = capitan.NewDurationKey("duration")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
