package simforge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Operation types understood by the SimForge backend.
const (
	OperationReflect = "Reflect"
	OperationAct     = "Act"
	OperationPlan    = "Plan"
	OperationFork    = "Fork"
)

// Operation is the cognitive action a row performs.
type Operation struct {
	Type        string `json:"type" yaml:"type" validate:"required"`
	Description string `json:"description" yaml:"description"`
}

// UnmarshalJSON accepts either an object or the backend's bare operation name.
func (o *Operation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("operation: %w", err)
		}
		*o = Operation{Type: name}
		return nil
	}
	type plain Operation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("operation: %w", err)
	}
	*o = Operation(p)
	return nil
}

// Beliefs is the ordered list of statements a row holds true.
type Beliefs []string

// UnmarshalJSON accepts plain strings or backend belief objects
// ({"content": ..., "confidence": ...}); only the content is kept.
func (b *Beliefs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("beliefs: %w", err)
	}
	out := make(Beliefs, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var obj struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return fmt.Errorf("beliefs: %w", err)
			}
			out = append(out, obj.Content)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return fmt.Errorf("beliefs: %w", err)
		}
		out = append(out, s)
	}
	*b = out
	return nil
}

// Row is one reasoning step in a sequence.
// A row with a nil ParentID is a root; otherwise it forks from the row with that id.
type Row struct {
	ID        string         `json:"id" yaml:"id" validate:"required"`
	ParentID  *string        `json:"parent_id" yaml:"parent_id"`
	Goal      string         `json:"goal" yaml:"goal" validate:"required"`
	Beliefs   Beliefs        `json:"beliefs" yaml:"beliefs"`
	Operation Operation      `json:"operation" yaml:"operation"`
	Output    string         `json:"output" yaml:"output"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsRoot reports whether the row has no parent.
func (r Row) IsRoot() bool {
	return r.ParentID == nil
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	clone := r
	if r.ParentID != nil {
		parent := *r.ParentID
		clone.ParentID = &parent
	}
	if r.Beliefs != nil {
		clone.Beliefs = make(Beliefs, len(r.Beliefs))
		copy(clone.Beliefs, r.Beliefs)
	}
	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// Timestamp is a time that also decodes the backend's zone-less ISO 8601 form.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			*t = Timestamp{}
			return nil
		}
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (any, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(time.RFC3339), nil
}

// Sequence is one reasoning session: an ordered collection of rows forming a forest.
type Sequence struct {
	ID          string         `json:"id" yaml:"id" validate:"required"`
	Title       string         `json:"title" yaml:"title" validate:"required"`
	Description string         `json:"description" yaml:"description"`
	Context     string         `json:"context" yaml:"context"`
	Rows        []Row          `json:"rows" yaml:"rows" validate:"dive"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   Timestamp      `json:"created_at" yaml:"created_at"`
	UpdatedAt   Timestamp      `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of the sequence.
func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Rows != nil {
		clone.Rows = make([]Row, len(s.Rows))
		for i, r := range s.Rows {
			clone.Rows[i] = r.Clone()
		}
	}
	if s.Metadata != nil {
		clone.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Row returns the row with the given id.
func (s *Sequence) Row(id string) (Row, bool) {
	if i := s.rowIndex(id); i >= 0 {
		return s.Rows[i], true
	}
	return Row{}, false
}

func (s *Sequence) rowIndex(id string) int {
	for i, r := range s.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Roots returns the rows without a parent, in sequence order.
func (s *Sequence) Roots() []Row {
	var roots []Row
	for _, r := range s.Rows {
		if r.IsRoot() {
			roots = append(roots, r)
		}
	}
	return roots
}

// Children returns the rows forked directly from the row with the given id.
func (s *Sequence) Children(id string) []Row {
	var children []Row
	for _, r := range s.Rows {
		if r.ParentID != nil && *r.ParentID == id {
			children = append(children, r)
		}
	}
	return children
}

// Orphans returns rows whose parent id does not match any row in the sequence.
// Deleting a row leaves its children orphaned.
func (s *Sequence) Orphans() []Row {
	var orphans []Row
	for _, r := range s.Rows {
		if r.ParentID != nil && s.rowIndex(*r.ParentID) < 0 {
			orphans = append(orphans, r)
		}
	}
	return orphans
}

// Ancestors returns the parent chain of the row, nearest first.
// The walk stops at a root, a dangling parent id, or a repeated id.
func (s *Sequence) Ancestors(id string) []Row {
	var chain []Row
	seen := map[string]bool{id: true}
	current, ok := s.Row(id)
	for ok && current.ParentID != nil {
		parentID := *current.ParentID
		if seen[parentID] {
			break
		}
		seen[parentID] = true
		current, ok = s.Row(parentID)
		if ok {
			chain = append(chain, current)
		}
	}
	return chain
}

// Depth returns the number of ancestors of the row (0 for roots and unknown ids).
func (s *Sequence) Depth(id string) int {
	return len(s.Ancestors(id))
}

// wouldCycle reports whether giving row id the parent parentID makes the
// row its own ancestor.
func (s *Sequence) wouldCycle(id, parentID string) bool {
	if id == parentID {
		return true
	}
	for _, a := range s.Ancestors(parentID) {
		if a.ID == id {
			return true
		}
	}
	return false
}
