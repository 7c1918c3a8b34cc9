// Package simforgetest provides test utilities for simforge.
package simforgetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/zoobzio/simforge"
)

// Request is a call received by a MockBackend.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// MockBackend is an in-memory SimForge API served over httptest.
// It answers every route with the backend's response envelope.
type MockBackend struct {
	server *httptest.Server

	mu        sync.Mutex
	requests  []Request
	schemas   map[string]map[string]any
	prompts   map[string]string
	failures  map[string]failure
	generated func(req simforge.GenerationRequest) []simforge.Sequence
}

type failure struct {
	status int
	detail string
}

// NewMockBackend starts a mock backend that is closed when the test ends.
// Generation returns N copies of the sample sequence.
func NewMockBackend(t testing.TB) *MockBackend {
	t.Helper()

	m := &MockBackend{
		schemas:  make(map[string]map[string]any),
		prompts:  make(map[string]string),
		failures: make(map[string]failure),
		generated: func(req simforge.GenerationRequest) []simforge.Sequence {
			seqs := make([]simforge.Sequence, req.N)
			for i := range seqs {
				seq := simforge.SampleSequence(uuid.NewString)
				seq.Context = req.Context
				seqs[i] = *seq
			}
			return seqs
		},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.server.Close)
	return m
}

// URL returns the API root to pass to simforge.NewClient.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Client returns a client pointed at the mock.
func (m *MockBackend) Client() *simforge.Client {
	return simforge.NewClient(m.server.URL)
}

// AddSchema registers a schema under name.
func (m *MockBackend) AddSchema(name string, schema map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[name] = schema
}

// AddPrompt registers a prompt template.
func (m *MockBackend) AddPrompt(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[name] = content
}

// OnGenerate replaces the sequences returned by the generate route.
func (m *MockBackend) OnGenerate(fn func(req simforge.GenerationRequest) []simforge.Sequence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated = fn
}

// Fail makes the route at path answer with status and a FastAPI detail body.
func (m *MockBackend) Fail(path string, status int, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = failure{status: status, detail: detail}
}

// Requests returns the calls received so far.
func (m *MockBackend) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockBackend) serve(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		body = raw
	}

	m.mu.Lock()
	m.requests = append(m.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
	f, failing := m.failures[r.URL.Path]
	m.mu.Unlock()

	if failing {
		writeJSON(w, f.status, map[string]any{"detail": f.detail})
		return
	}

	switch {
	case r.URL.Path == "/health":
		ok(w, "SimForge API is running", map[string]any{"status": "healthy"})
	case r.URL.Path == "/cognition/generate" && r.Method == http.MethodPost:
		m.generate(w, body)
	case r.URL.Path == "/cognition/fork" && r.Method == http.MethodPost:
		m.fork(w, body)
	case r.URL.Path == "/schemas":
		m.listSchemas(w)
	case strings.HasPrefix(r.URL.Path, "/schemas/"):
		m.getSchema(w, strings.TrimPrefix(r.URL.Path, "/schemas/"))
	case r.URL.Path == "/prompts":
		m.listPrompts(w)
	case strings.HasPrefix(r.URL.Path, "/prompts/"):
		m.getPrompt(w, strings.TrimPrefix(r.URL.Path, "/prompts/"))
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}
}

func (m *MockBackend) generate(w http.ResponseWriter, body []byte) {
	var req simforge.GenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}
	m.mu.Lock()
	fn := m.generated
	m.mu.Unlock()

	seqs := fn(req)
	ok(w, fmt.Sprintf("Generated %d sequences successfully", len(seqs)), map[string]any{
		"sequences": seqs,
		"metadata":  map[string]any{"model": "mock", "total_generated": len(seqs)},
	})
}

func (m *MockBackend) fork(w http.ResponseWriter, body []byte) {
	var req simforge.ForkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}

	forks := make([]simforge.Row, req.NumForks)
	for i := range forks {
		parent := req.RowID
		forks[i] = simforge.Row{
			ID:       uuid.NewString(),
			ParentID: &parent,
			Goal:     fmt.Sprintf("Alternative %d (%s)", i+1, req.ForkType),
			Beliefs:  simforge.Beliefs{"Forked from " + req.RowID},
			Operation: simforge.Operation{
				Type:        simforge.OperationFork,
				Description: req.ForkType,
			},
		}
	}
	ok(w, fmt.Sprintf("Created %d forks successfully", len(forks)), map[string]any{
		"forks":    forks,
		"metadata": map[string]any{"fork_type": req.ForkType, "valid_forks": len(forks)},
	})
}

func (m *MockBackend) listSchemas(w http.ResponseWriter) {
	m.mu.Lock()
	schemas := make([]map[string]any, 0, len(m.schemas))
	for _, s := range m.schemas {
		schemas = append(schemas, s)
	}
	m.mu.Unlock()
	ok(w, fmt.Sprintf("Found %d schemas", len(schemas)), map[string]any{"schemas": schemas})
}

func (m *MockBackend) getSchema(w http.ResponseWriter, name string) {
	m.mu.Lock()
	schema, found := m.schemas[name]
	m.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Schema not found: " + name})
		return
	}
	ok(w, fmt.Sprintf("Schema %s found", name), schema)
}

func (m *MockBackend) listPrompts(w http.ResponseWriter) {
	m.mu.Lock()
	prompts := make([]simforge.PromptTemplate, 0, len(m.prompts))
	for name, content := range m.prompts {
		prompts = append(prompts, simforge.PromptTemplate{Name: name, Content: content})
	}
	m.mu.Unlock()
	ok(w, fmt.Sprintf("Found %d prompts", len(prompts)), map[string]any{"prompts": prompts})
}

func (m *MockBackend) getPrompt(w http.ResponseWriter, name string) {
	m.mu.Lock()
	content, found := m.prompts[name]
	m.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Prompt not found: " + name})
		return
	}
	ok(w, fmt.Sprintf("Prompt %s found", name), simforge.PromptTemplate{Name: name, Content: content})
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StateRecorder collects every state a SequenceStore publishes.
type StateRecorder struct {
	mu     sync.Mutex
	states []*simforge.State
	stop   func()
}

// RecordStates subscribes to store and records each published state,
// starting with the current one. Recording stops when the test ends.
func RecordStates(t testing.TB, store *simforge.SequenceStore) *StateRecorder {
	t.Helper()
	r := &StateRecorder{}
	r.stop = store.Subscribe(func(st *simforge.State) {
		r.mu.Lock()
		r.states = append(r.states, st)
		r.mu.Unlock()
	})
	t.Cleanup(r.stop)
	return r
}

// States returns the recorded states in publish order.
func (r *StateRecorder) States() []*simforge.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*simforge.State, len(r.states))
	copy(out, r.states)
	return out
}

// Last returns the most recent state.
func (r *StateRecorder) Last() *simforge.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

// Count returns the number of recorded states.
func (r *StateRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// NewTestStore creates a sequence store holding the sample sequence.
func NewTestStore(t testing.TB) *simforge.SequenceStore {
	t.Helper()
	store := simforge.NewSequenceStore()
	store.InitializeWithSampleData()
	if store.State().CurrentSequence == nil {
		t.Fatal("expected sample sequence to be current")
	}
	return store
}

// RequireRow fails the test if the current sequence has no row with id.
func RequireRow(t testing.TB, store *simforge.SequenceStore, id string) simforge.Row {
	t.Helper()
	current := store.State().CurrentSequence
	if current == nil {
		t.Fatalf("expected row %q but no sequence is current", id)
	}
	row, ok := current.Row(id)
	if !ok {
		t.Fatalf("expected row %q in current sequence", id)
	}
	return row
}

// RequireNoRow fails the test if the current sequence has a row with id.
func RequireNoRow(t testing.TB, store *simforge.SequenceStore, id string) {
	t.Helper()
	current := store.State().CurrentSequence
	if current == nil {
		return
	}
	if _, ok := current.Row(id); ok {
		t.Fatalf("expected row %q to be absent", id)
	}
}

// RequireSelected fails the test unless exactly ids are selected, in order.
func RequireSelected(t testing.TB, store *simforge.SequenceStore, ids ...string) {
	t.Helper()
	got := store.State().SelectedRows
	if len(got) != len(ids) {
		t.Fatalf("expected selection %v, got %v", ids, got)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("expected selection %v, got %v", ids, got)
		}
	}
}
