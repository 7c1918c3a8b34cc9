package simforge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewClientDefaultBaseURL(t *testing.T) {
	c := NewClient("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("expected %q, got %q", DefaultBaseURL, c.BaseURL())
	}

	c = NewClient("http://example.test/api/v1/")
	if c.BaseURL() != "http://example.test/api/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", c.BaseURL())
	}
}

func TestClientHealthCheck(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type header, got %q", r.Header.Get("Content-Type"))
		}
		writeJSON(w, http.StatusOK, `{"success":true,"message":"SimForge API is running","data":{"status":"healthy"}}`)
	})

	health, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
}

func TestClientErrorExtraction(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
	}{
		{"json detail", 404, "application/json", `{"detail":"Schema not found: x"}`, "Schema not found: x"},
		{"json message", 400, "application/json", `{"success":false,"message":"bad input"}`, "bad input"},
		{"json detail wins", 400, "application/json", `{"detail":"from detail","message":"from message"}`, "from detail"},
		{"json structured detail", 422, "application/json", `{"detail":[{"loc":["body","n"],"msg":"too big"}]}`, `[{"loc":["body","n"],"msg":"too big"}]`},
		{"json empty", 500, "application/json", `{}`, "HTTP error 500"},
		{"text body", 502, "text/plain", "  upstream down \n", "upstream down"},
		{"empty text body", 503, "text/plain", "", "HTTP error 503"},
		{"success false on 200", 200, "application/json", `{"success":false,"message":"generation failed"}`, "generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.HealthCheck(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, apiErr.Message)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
		})
	}
}

func TestClientNonJSONSuccessIsEmpty(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>ok</html>")
	})

	health, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "" {
		t.Errorf("expected empty result, got %q", health.Status)
	}
}

func TestClientUnwrappedJSON(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
	})

	health, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected body decoded directly, got %q", health.Status)
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("expected non-API error, got %v", apiErr)
	}
	if !strings.Contains(err.Error(), "/health") {
		t.Errorf("expected endpoint in error, got %q", err.Error())
	}
}

func TestClientGenerateSequence(t *testing.T) {
	var got GenerationRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cognition/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"message": "Generated 1 sequences",
			"data": {
				"sequences": [`+backendSequenceJSON+`],
				"metadata": {"model": "gpt-4", "temperature": 0.7}
			}
		}`)
	})

	result, err := client.GenerateSequence(context.Background(), GenerationRequest{Context: "plan a trip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.N != DefaultSequenceCount {
		t.Errorf("expected default n %d, got %d", DefaultSequenceCount, got.N)
	}
	if got.Temperature == nil || *got.Temperature != DefaultTemperature {
		t.Errorf("expected default temperature, got %v", got.Temperature)
	}
	if len(result.Sequences) != 1 || result.Sequences[0].Title != "Trip planning" {
		t.Fatalf("unexpected sequences %+v", result.Sequences)
	}
	if result.Metadata["model"] != "gpt-4" {
		t.Errorf("expected metadata, got %v", result.Metadata)
	}
}

func TestClientGenerateSequenceValidatesFirst(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"sequences":[]}}`)
	})

	_, err := client.GenerateSequence(context.Background(), GenerationRequest{Context: "c", N: 20})
	if err == nil || !strings.Contains(err.Error(), "n must be at most 10") {
		t.Errorf("expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("expected no request for an invalid payload")
	}
}

func TestClientForkRow(t *testing.T) {
	var got ForkRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cognition/fork" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"data": {
				"forks": [
					{"id": "f1", "goal": "alt", "beliefs": [{"content": "b"}], "operation": "Fork", "parent_id": "r1"}
				],
				"metadata": {"fork_type": "alternative_operation"}
			}
		}`)
	})

	result, err := client.ForkRow(context.Background(), ForkRequest{RowID: "r1", SequenceID: "s1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NumForks != DefaultForkCount || got.ForkType != ForkAlternativeOperation {
		t.Errorf("expected defaults applied, got %+v", got)
	}
	if len(result.Forks) != 1 || result.Forks[0].Operation.Type != OperationFork {
		t.Errorf("unexpected forks %+v", result.Forks)
	}
}

func TestClientSchemasAndPrompts(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schemas":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"schemas":[{"name":"travel"}]}}`)
		case "/schemas/travel":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"name":"travel","fields":["goal"]}}`)
		case "/prompts":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"prompts":[{"name":"generate","content":"You are..."}]}}`)
		case "/prompts/generate":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"name":"generate","content":"You are..."}}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"detail":"Not Found"}`)
		}
	})
	ctx := context.Background()

	schemas, err := client.Schemas(ctx)
	if err != nil || len(schemas) != 1 || schemas[0]["name"] != "travel" {
		t.Errorf("schemas: %v, %v", schemas, err)
	}

	schema, err := client.Schema(ctx, "travel")
	if err != nil || schema["name"] != "travel" {
		t.Errorf("schema: %v, %v", schema, err)
	}

	prompts, err := client.Prompts(ctx)
	if err != nil || len(prompts) != 1 || prompts[0].Name != "generate" {
		t.Errorf("prompts: %v, %v", prompts, err)
	}

	prompt, err := client.Prompt(ctx, "generate")
	if err != nil || prompt.Content != "You are..." {
		t.Errorf("prompt: %v, %v", prompt, err)
	}

	_, err = client.Prompt(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestClientBackoffRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail":"warming up"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"status":"healthy"}}`)
	}).WithBackoff(3, time.Millisecond)

	health, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientBackoffSkipsClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"detail":"bad"}`)
	}).WithBackoff(3, time.Millisecond)

	_, err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientBackoffExhausted(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	}).WithBackoff(2, time.Millisecond)

	_, err := client.HealthCheck(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Errorf("expected last server message, got %v", err)
	}
}
