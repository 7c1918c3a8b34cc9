// Package simforge provides the reactive client core for SimForge cognition sequences.
//
// simforge models a cognition sequence as an ordered forest of reasoning rows
// and keeps it in observable stores that publish immutable snapshots to
// subscribers.
//
// # Core Types
//
// The package is built around a handful of concepts:
//
//   - [Sequence] - A titled reasoning session holding an ordered list of rows
//   - [Row] - One reasoning step (goal, beliefs, operation, output), optionally forked from a parent row
//   - [Writable] - A publish-subscribe container implementing [Observable]
//   - [SequenceStore] - Domain state (sequences, current sequence, selection, loading/error flags)
//   - [ToastStore] - Transient notifications with display configuration
//   - [Client] - Request wrapper over the SimForge HTTP API
//
// # Creating Stores
//
// Stores are explicit instances owned by the application entry point:
//
//	store := simforge.NewSequenceStore().WithLoader(simforge.NewClientLoader(client, req))
//	unsubscribe := store.Subscribe(func(s *simforge.State) {
//	    render(s)
//	})
//	defer unsubscribe()
//
//	store.LoadSequences(ctx)
//	id := store.AddRow(simforge.RowInput{Goal: "g", Operation: simforge.Operation{Type: simforge.OperationAct}})
//
// # Snapshots
//
// Every mutation publishes a new [State]. Snapshots share structure with
// earlier ones and must be treated as read-only; use [State.Clone] before
// modifying one in place.
//
// # Errors
//
// Store operations never return errors. Failed loads surface in
// [State.Error]; unknown ids and operations without a current sequence are
// silent no-ops. The [Client] returns [*APIError] for failed requests.
//
// # Observability
//
// simforge emits capitan signals for every state transition and API call.
// See [signals.go] for the complete list of events including RowAdded,
// RowDeleted, SequencesLoaded, ToastAdded and RequestFailed.
package simforge
