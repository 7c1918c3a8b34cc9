package simforge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Fork strategies accepted by the backend.
const (
	ForkInvertBeliefs        = "invert_beliefs"
	ForkChangeGoal           = "change_goal"
	ForkAlternativeOperation = "alternative_operation"
)

// APIError is a failed request as reported by the backend.
// An unsuccessful envelope on a 2xx response keeps that 2xx Status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Health is the body of a health check.
type Health struct {
	Status string `json:"status" yaml:"status"`
}

// GenerationRequest asks the backend for new sequences.
// Zero N and nil Temperature take DefaultSequenceCount and DefaultTemperature.
type GenerationRequest struct {
	Context      string         `json:"context" validate:"required"`
	SchemaConfig map[string]any `json:"schema_config"`
	N            int            `json:"n" validate:"min=1,max=10"`
	Temperature  *float64       `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

func (r GenerationRequest) withDefaults() GenerationRequest {
	if r.N == 0 {
		r.N = DefaultSequenceCount
	}
	if r.Temperature == nil {
		t := DefaultTemperature
		r.Temperature = &t
	}
	if r.SchemaConfig == nil {
		r.SchemaConfig = map[string]any{}
	}
	return r
}

// GenerationResult holds generated sequences and backend metadata.
type GenerationResult struct {
	Sequences []Sequence     `json:"sequences" yaml:"sequences"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ForkRequest asks the backend for alternative versions of a row.
// Zero NumForks and empty ForkType take DefaultForkCount and
// ForkAlternativeOperation.
type ForkRequest struct {
	RowID      string `json:"row_id" validate:"required"`
	SequenceID string `json:"sequence_id" validate:"required"`
	NumForks   int    `json:"num_forks" validate:"min=1,max=5"`
	ForkType   string `json:"fork_type" validate:"oneof=invert_beliefs change_goal alternative_operation"`
	Context    string `json:"context,omitempty"`
}

func (r ForkRequest) withDefaults() ForkRequest {
	if r.NumForks == 0 {
		r.NumForks = DefaultForkCount
	}
	if r.ForkType == "" {
		r.ForkType = ForkAlternativeOperation
	}
	return r
}

// ForkResult holds the forked rows and backend metadata.
type ForkResult struct {
	Forks    []Row          `json:"forks" yaml:"forks"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// PromptTemplate is a named prompt stored by the backend.
type PromptTemplate struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// Client talks to the SimForge HTTP API.
//
// Every request goes through a pipz chain. By default the chain makes a
// single attempt; WithBackoff wraps it to retry transport failures and
// 5xx responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pipeline   pipz.Chainable[*call]
}

// NewClient creates a client for the API at baseURL.
// An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	c.pipeline = c.sendProcessor()
	return c
}

// WithHTTPClient sets the HTTP client used for requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithBackoff retries transport failures and 5xx responses up to attempts
// times, doubling baseDelay between tries.
func (c *Client) WithBackoff(attempts int, baseDelay time.Duration) *Client {
	c.pipeline = pipz.NewBackoff(pipz.Name("send-backoff"), c.sendProcessor(), attempts, baseDelay)
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthCheck reports whether the backend is up.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.request(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GenerateSequence asks the backend to generate req.N sequences.
// The request is validated before anything is sent.
func (c *Client) GenerateSequence(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	req = req.withDefaults()
	if err := Validate(req); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	var result GenerationResult
	if err := c.request(ctx, http.MethodPost, "/cognition/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ForkRow asks the backend to fork a row of a sequence.
func (c *Client) ForkRow(ctx context.Context, req ForkRequest) (*ForkResult, error) {
	req = req.withDefaults()
	if err := Validate(req); err != nil {
		return nil, fmt.Errorf("invalid fork request: %w", err)
	}

	var result ForkResult
	if err := c.request(ctx, http.MethodPost, "/cognition/fork", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Schemas lists the generation schemas known to the backend.
func (c *Client) Schemas(ctx context.Context) ([]map[string]any, error) {
	var data struct {
		Schemas []map[string]any `json:"schemas"`
	}
	if err := c.request(ctx, http.MethodGet, "/schemas", nil, &data); err != nil {
		return nil, err
	}
	return data.Schemas, nil
}

// Schema fetches one schema by name.
func (c *Client) Schema(ctx context.Context, name string) (map[string]any, error) {
	var schema map[string]any
	if err := c.request(ctx, http.MethodGet, "/schemas/"+url.PathEscape(name), nil, &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// Prompts lists the prompt templates known to the backend.
func (c *Client) Prompts(ctx context.Context) ([]PromptTemplate, error) {
	var data struct {
		Prompts []PromptTemplate `json:"prompts"`
	}
	if err := c.request(ctx, http.MethodGet, "/prompts", nil, &data); err != nil {
		return nil, err
	}
	return data.Prompts, nil
}

// Prompt fetches one prompt template by name.
func (c *Client) Prompt(ctx context.Context, name string) (*PromptTemplate, error) {
	var p PromptTemplate
	if err := c.request(ctx, http.MethodGet, "/prompts/"+url.PathEscape(name), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// call carries one request through the pipeline. Each attempt overwrites
// the response fields.
type call struct {
	method   string
	endpoint string
	body     []byte

	status      int
	contentType string
	payload     []byte
}

// errServer marks a 5xx response as retryable.
var errServer = errors.New("server error")

func (c *Client) sendProcessor() pipz.Chainable[*call] {
	return pipz.Apply(pipz.Name("send"), c.send)
}

func (c *Client) send(ctx context.Context, rc *call) (*call, error) {
	rc.status, rc.contentType, rc.payload = 0, "", nil

	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.endpoint, body)
	if err != nil {
		return rc, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rc, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return rc, fmt.Errorf("failed to read response: %w", err)
	}
	rc.status = resp.StatusCode
	rc.contentType = resp.Header.Get("Content-Type")
	rc.payload = payload

	if resp.StatusCode >= http.StatusInternalServerError {
		return rc, fmt.Errorf("%w: %d", errServer, resp.StatusCode)
	}
	return rc, nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, in, out any) error {
	rc := &call{method: method, endpoint: endpoint}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rc.body = b
	}

	start := time.Now()
	_, err := c.pipeline.Process(ctx, rc)

	// A 5xx leaves err set but still carries a body worth decoding.
	if err != nil && rc.status == 0 {
		err = fmt.Errorf("%s %s: %w", method, endpoint, unwrapPipeline(err))
	} else {
		err = decodeResponse(rc, out)
	}

	if err != nil {
		capitan.Error(ctx, RequestFailed,
			FieldMethod.Field(method),
			FieldEndpoint.Field(endpoint),
			FieldStatus.Field(rc.status),
			FieldDuration.Field(time.Since(start)),
			FieldError.Field(err),
		)
		return err
	}

	capitan.Emit(ctx, RequestCompleted,
		FieldMethod.Field(method),
		FieldEndpoint.Field(endpoint),
		FieldStatus.Field(rc.status),
		FieldDuration.Field(time.Since(start)),
	)
	return nil
}

// unwrapPipeline strips pipz path wrapping down to the transport cause.
func unwrapPipeline(err error) error {
	var pipeErr *pipz.Error[*call]
	if errors.As(err, &pipeErr) && pipeErr.Err != nil {
		return pipeErr.Err
	}
	return err
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// errorBody covers FastAPI error responses and failed envelopes.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func decodeResponse(rc *call, out any) error {
	ok := rc.status >= 200 && rc.status < 300

	if !isJSON(rc.contentType) {
		if ok {
			return nil
		}
		msg := strings.TrimSpace(string(rc.payload))
		if msg == "" {
			msg = fmt.Sprintf("HTTP error %d", rc.status)
		}
		return &APIError{Status: rc.status, Message: msg}
	}

	if !ok {
		return &APIError{Status: rc.status, Message: errorMessage(rc.payload, rc.status)}
	}

	var env envelope
	if err := json.Unmarshal(rc.payload, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Success == nil {
		// Not wrapped: the whole body is the payload.
		return decodeInto(rc.payload, out)
	}
	if !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Status: rc.status, Message: msg}
	}
	return decodeInto(env.Data, out)
}

func decodeInto(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// errorMessage picks detail, then message, then a status fallback.
// A structured detail (validation error list) is returned as raw JSON.
func errorMessage(payload []byte, status int) string {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		if len(body.Detail) > 0 && string(body.Detail) != "null" {
			var detail string
			if json.Unmarshal(body.Detail, &detail) == nil {
				if detail != "" {
					return detail
				}
			} else {
				return string(body.Detail)
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("HTTP error %d", status)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
