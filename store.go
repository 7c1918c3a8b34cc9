package simforge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// State is an immutable snapshot of a SequenceStore.
//
// CurrentSequence is nil or the same pointer as one element of Sequences.
// Snapshots share structure with each other; treat them as read-only and
// call Clone before modifying one.
type State struct {
	Sequences       []*Sequence
	CurrentSequence *Sequence
	SelectedRows    []string
	IsLoading       bool
	Error           string
}

// Clone returns a deep copy of the state, preserving the identity link
// between CurrentSequence and its slot in Sequences.
func (s *State) Clone() *State {
	clone := &State{
		IsLoading: s.IsLoading,
		Error:     s.Error,
	}
	if s.Sequences != nil {
		clone.Sequences = make([]*Sequence, len(s.Sequences))
		for i, seq := range s.Sequences {
			clone.Sequences[i] = seq.Clone()
			if seq == s.CurrentSequence {
				clone.CurrentSequence = clone.Sequences[i]
			}
		}
	}
	if clone.CurrentSequence == nil && s.CurrentSequence != nil {
		clone.CurrentSequence = s.CurrentSequence.Clone()
	}
	if s.SelectedRows != nil {
		clone.SelectedRows = slices.Clone(s.SelectedRows)
	}
	return clone
}

// IsSelected reports whether the row id is in the selection.
func (s *State) IsSelected(rowID string) bool {
	return slices.Contains(s.SelectedRows, rowID)
}

// Sequence returns the sequence with the given id.
func (s *State) Sequence(id string) (*Sequence, bool) {
	for _, seq := range s.Sequences {
		if seq.ID == id {
			return seq, true
		}
	}
	return nil, false
}

// with returns a shallow copy of the state for copy-on-write mutation.
func (s *State) with() *State {
	next := *s
	return &next
}

// withCurrent returns a copy of the state where updated replaces the current
// sequence and its slot in Sequences in one step.
func (s *State) withCurrent(updated *Sequence) *State {
	next := s.with()
	next.CurrentSequence = updated
	next.Sequences = make([]*Sequence, len(s.Sequences))
	for i, seq := range s.Sequences {
		if seq.ID == updated.ID {
			next.Sequences[i] = updated
			continue
		}
		next.Sequences[i] = seq
	}
	return next
}

func initialState() *State {
	return &State{
		Sequences:    []*Sequence{},
		SelectedRows: []string{},
	}
}

// RowInput is the caller-supplied content of a new row.
// The store assigns the id; rows added this way are always roots.
type RowInput struct {
	Goal      string
	Beliefs   Beliefs
	Operation Operation
	Output    string
	Metadata  map[string]any
}

// RowPatch holds the fields to merge into an existing row.
// Nil fields are left untouched; a non-nil empty Beliefs clears the beliefs.
// ClearParent makes the row a root and takes precedence over ParentID.
type RowPatch struct {
	Goal        *string
	Beliefs     Beliefs
	Operation   *Operation
	Output      *string
	ParentID    *string
	ClearParent bool
	Metadata    map[string]any
}

func (p RowPatch) apply(r Row) Row {
	if p.Goal != nil {
		r.Goal = *p.Goal
	}
	if p.Beliefs != nil {
		r.Beliefs = slices.Clone(p.Beliefs)
	}
	if p.Operation != nil {
		r.Operation = *p.Operation
	}
	if p.Output != nil {
		r.Output = *p.Output
	}
	switch {
	case p.ClearParent:
		r.ParentID = nil
	case p.ParentID != nil:
		parent := *p.ParentID
		r.ParentID = &parent
	}
	if p.Metadata != nil {
		r.Metadata = maps.Clone(p.Metadata)
	}
	return r
}

// Store errors.
var (
	// ErrNoLoader is recorded in State.Error when LoadSequences runs without a loader.
	ErrNoLoader = errors.New("no loader configured")

	// ErrNoCurrentSequence reports that an operation needed a current sequence.
	// Store operations never return it; they silently do nothing instead.
	ErrNoCurrentSequence = errors.New("no current sequence")
)

// SequenceStore owns the cognition sequence state and publishes a new
// snapshot after every mutation.
//
// Every operation is a single atomic Update over the whole state. Operations
// that need a current sequence are no-ops without one, and unknown ids are
// ignored; nothing is reported to the caller. Load failures are recorded in
// State.Error.
type SequenceStore struct {
	state  *Writable[*State]
	loader Loader
	newID  func() string
}

// NewSequenceStore creates a store in the initial empty state.
// It loads the demonstration sequence until WithLoader is called.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{
		state: NewWritable(initialState(), func(a, b *State) bool {
			return a == b
		}),
		loader: SampleLoader(),
		newID:  uuid.NewString,
	}
}

// WithLoader sets the loader used by LoadSequences.
func (s *SequenceStore) WithLoader(l Loader) *SequenceStore {
	s.loader = l
	return s
}

// WithIDGenerator sets the id source for new rows and sequences.
func (s *SequenceStore) WithIDGenerator(fn func() string) *SequenceStore {
	s.newID = fn
	return s
}

// Subscribe calls fn with the current state and after every change.
func (s *SequenceStore) Subscribe(fn func(*State)) func() {
	return s.state.Subscribe(fn)
}

// State returns the current snapshot.
func (s *SequenceStore) State() *State {
	return s.state.Get()
}

// Observable exposes the underlying observable for composition.
func (s *SequenceStore) Observable() Readable[*State] {
	return s.state
}

// InitializeWithSampleData replaces the sequences with the demonstration
// sequence and makes it current.
func (s *SequenceStore) InitializeWithSampleData() {
	sample := SampleSequence(s.newID)
	s.state.Update(func(st *State) *State {
		next := st.with()
		next.Sequences = []*Sequence{sample}
		next.CurrentSequence = sample
		return next
	})

	capitan.Emit(context.Background(), SequencesLoaded,
		FieldSequenceCount.Field(1),
		FieldSequenceID.Field(sample.ID),
	)
}

// LoadSequences raises IsLoading, fetches sequences from the loader and
// publishes the outcome. On success the first sequence becomes current; on
// failure Error is set and the existing sequences are kept. IsLoading is
// cleared either way.
//
// Overlapping calls are not coordinated; the last one to finish wins.
func (s *SequenceStore) LoadSequences(ctx context.Context) {
	start := time.Now()

	s.state.Update(func(st *State) *State {
		next := st.with()
		next.IsLoading = true
		return next
	})
	capitan.Emit(ctx, SequencesLoading)

	var seqs []*Sequence
	err := ErrNoLoader
	if s.loader != nil {
		seqs, err = s.loader.Load(ctx)
	}
	if err != nil {
		s.state.Update(func(st *State) *State {
			next := st.with()
			next.Error = fmt.Sprintf("Failed to load sequences: %v", err)
			next.IsLoading = false
			return next
		})
		capitan.Error(ctx, SequencesLoadFailed,
			FieldDuration.Field(time.Since(start)),
			FieldError.Field(err),
		)
		return
	}

	loaded := make([]*Sequence, 0, len(seqs))
	for _, seq := range seqs {
		if seq != nil {
			loaded = append(loaded, seq.Clone())
		}
	}

	s.state.Update(func(st *State) *State {
		next := st.with()
		next.Sequences = loaded
		next.CurrentSequence = nil
		if len(loaded) > 0 {
			next.CurrentSequence = loaded[0]
		}
		next.IsLoading = false
		return next
	})
	capitan.Emit(ctx, SequencesLoaded,
		FieldSequenceCount.Field(len(loaded)),
		FieldDuration.Field(time.Since(start)),
	)
}

// AddSequences appends copies of seqs to the store. When no sequence is
// current, the first added one becomes current.
func (s *SequenceStore) AddSequences(seqs ...*Sequence) {
	added := make([]*Sequence, 0, len(seqs))
	for _, seq := range seqs {
		if seq == nil {
			continue
		}
		seq = seq.Clone()
		if seq.ID == "" {
			seq.ID = s.newID()
		}
		added = append(added, seq)
	}
	if len(added) == 0 {
		return
	}

	s.state.Update(func(st *State) *State {
		next := st.with()
		next.Sequences = append(slices.Clone(st.Sequences), added...)
		if next.CurrentSequence == nil {
			next.CurrentSequence = added[0]
		}
		return next
	})

	capitan.Emit(context.Background(), SequencesAdded,
		FieldSequenceCount.Field(len(added)),
	)
}

// SetCurrentSequence makes the sequence with the given id current.
// An unknown id leaves no sequence current.
func (s *SequenceStore) SetCurrentSequence(id string) {
	var found bool
	s.state.Update(func(st *State) *State {
		seq, ok := st.Sequence(id)
		found = ok
		if seq == st.CurrentSequence {
			return st
		}
		next := st.with()
		next.CurrentSequence = seq
		return next
	})

	if found {
		capitan.Emit(context.Background(), SequenceSelected,
			FieldSequenceID.Field(id),
		)
	}
}

// AddRow appends a new root row to the current sequence and returns its id.
// Without a current sequence nothing happens and "" is returned.
func (s *SequenceStore) AddRow(input RowInput) string {
	row := Row{
		ID:        s.newID(),
		ParentID:  nil,
		Goal:      input.Goal,
		Beliefs:   slices.Clone(input.Beliefs),
		Operation: input.Operation,
		Output:    input.Output,
		Metadata:  maps.Clone(input.Metadata),
	}

	var seqID string
	var rowCount int
	s.state.Update(func(st *State) *State {
		if st.CurrentSequence == nil {
			return st
		}
		updated := *st.CurrentSequence
		updated.Rows = append(slices.Clone(st.CurrentSequence.Rows), row)
		seqID, rowCount = updated.ID, len(updated.Rows)
		return st.withCurrent(&updated)
	})

	if seqID == "" {
		return ""
	}
	capitan.Emit(context.Background(), RowAdded,
		FieldSequenceID.Field(seqID),
		FieldRowID.Field(row.ID),
		FieldOperation.Field(row.Operation.Type),
		FieldRowCount.Field(rowCount),
	)
	return row.ID
}

// UpdateRow merges patch into every row with the given id, leaving all other
// rows untouched. Unknown ids, a missing current sequence, and parent changes
// that would make the row its own ancestor are ignored.
func (s *SequenceStore) UpdateRow(rowID string, patch RowPatch) {
	var seqID string
	s.state.Update(func(st *State) *State {
		if st.CurrentSequence == nil {
			return st
		}
		if st.CurrentSequence.rowIndex(rowID) < 0 {
			return st
		}
		if !patch.ClearParent && patch.ParentID != nil && st.CurrentSequence.wouldCycle(rowID, *patch.ParentID) {
			return st
		}
		updated := *st.CurrentSequence
		updated.Rows = slices.Clone(st.CurrentSequence.Rows)
		for i, r := range updated.Rows {
			if r.ID == rowID {
				updated.Rows[i] = patch.apply(r)
			}
		}
		seqID = updated.ID
		return st.withCurrent(&updated)
	})

	if seqID != "" {
		capitan.Emit(context.Background(), RowUpdated,
			FieldSequenceID.Field(seqID),
			FieldRowID.Field(rowID),
		)
	}
}

// DeleteRow removes every row with the given id from the current sequence
// and drops the id from the selection.
// Rows forked from it keep their parent id and become orphans.
func (s *SequenceStore) DeleteRow(rowID string) {
	var seqID string
	var rowCount int
	s.state.Update(func(st *State) *State {
		if st.CurrentSequence == nil {
			return st
		}
		found := st.CurrentSequence.rowIndex(rowID) >= 0
		selected := st.IsSelected(rowID)
		if !found && !selected {
			return st
		}
		updated := *st.CurrentSequence
		if found {
			updated.Rows = slices.DeleteFunc(slices.Clone(st.CurrentSequence.Rows), func(r Row) bool {
				return r.ID == rowID
			})
		}
		next := st.withCurrent(&updated)
		next.SelectedRows = removeID(st.SelectedRows, rowID)
		seqID, rowCount = updated.ID, len(updated.Rows)
		return next
	})

	if seqID != "" {
		capitan.Emit(context.Background(), RowDeleted,
			FieldSequenceID.Field(seqID),
			FieldRowID.Field(rowID),
			FieldRowCount.Field(rowCount),
		)
	}
}

// ApplyForks attaches fork rows under the row parentID in the current
// sequence and returns their new ids. Each fork gets a fresh id and
// parentID as its parent. Nothing happens when the parent row is not in the
// current sequence.
func (s *SequenceStore) ApplyForks(parentID string, forks []Row) []string {
	if len(forks) == 0 {
		return nil
	}
	rows := make([]Row, len(forks))
	ids := make([]string, len(forks))
	for i, f := range forks {
		row := f.Clone()
		row.ID = s.newID()
		parent := parentID
		row.ParentID = &parent
		rows[i] = row
		ids[i] = row.ID
	}

	var seqID string
	s.state.Update(func(st *State) *State {
		if st.CurrentSequence == nil || st.CurrentSequence.rowIndex(parentID) < 0 {
			return st
		}
		updated := *st.CurrentSequence
		updated.Rows = append(slices.Clone(st.CurrentSequence.Rows), rows...)
		seqID = updated.ID
		return st.withCurrent(&updated)
	})

	if seqID == "" {
		return nil
	}
	capitan.Emit(context.Background(), RowsForked,
		FieldSequenceID.Field(seqID),
		FieldParentID.Field(parentID),
		FieldRowCount.Field(len(rows)),
	)
	return ids
}

// ToggleRowSelection selects the row if unselected and deselects it otherwise.
func (s *SequenceStore) ToggleRowSelection(rowID string) {
	var count int
	s.state.Update(func(st *State) *State {
		next := st.with()
		if st.IsSelected(rowID) {
			next.SelectedRows = removeID(st.SelectedRows, rowID)
		} else {
			next.SelectedRows = append(slices.Clone(st.SelectedRows), rowID)
		}
		count = len(next.SelectedRows)
		return next
	})

	capitan.Emit(context.Background(), SelectionChanged,
		FieldRowID.Field(rowID),
		FieldSelectedCount.Field(count),
	)
}

// ClearSelection deselects every row.
func (s *SequenceStore) ClearSelection() {
	s.state.Update(func(st *State) *State {
		if len(st.SelectedRows) == 0 {
			return st
		}
		next := st.with()
		next.SelectedRows = []string{}
		return next
	})

	capitan.Emit(context.Background(), SelectionChanged,
		FieldSelectedCount.Field(0),
	)
}

// Reset restores the initial empty state.
func (s *SequenceStore) Reset() {
	s.state.Set(initialState())
	capitan.Emit(context.Background(), StoreReset)
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
