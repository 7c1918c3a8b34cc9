package simforge

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Loader fetches the sequences a SequenceStore starts from.
// Load is the store's only suspension point.
type Loader interface {
	Load(ctx context.Context) ([]*Sequence, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]*Sequence, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) ([]*Sequence, error) {
	return f(ctx)
}

// SampleLoader returns a Loader that yields the demonstration sequence.
// It never fails.
func SampleLoader() Loader {
	return LoaderFunc(func(_ context.Context) ([]*Sequence, error) {
		return []*Sequence{SampleSequence(uuid.NewString)}, nil
	})
}

// ErrNoValidSequences is returned by a ClientLoader when the backend
// responded but none of its sequences passed validation.
var ErrNoValidSequences = errors.New("no valid sequences in response")

// ClientLoader loads sequences by asking the backend to generate them.
//
// The load runs as a pipz chain of two stages:
//  1. generate - POST the generation request
//  2. validate - drop sequences that fail validation
type ClientLoader struct {
	client   *Client
	request  GenerationRequest
	pipeline *pipz.Sequence[[]*Sequence]
}

// NewClientLoader creates a loader that calls GenerateSequence with req.
//
// Example:
//
//	loader := simforge.NewClientLoader(client, simforge.GenerationRequest{
//	    Context: "You are an assistant planning a trip.",
//	})
//	store := simforge.NewSequenceStore().WithLoader(loader)
func NewClientLoader(client *Client, req GenerationRequest) *ClientLoader {
	l := &ClientLoader{
		client:  client,
		request: req,
	}
	l.pipeline = pipz.NewSequence(pipz.Name("load-sequences"),
		pipz.Apply(pipz.Name("generate"), l.generate),
		pipz.Apply(pipz.Name("validate"), l.validate),
	)
	return l
}

// Load implements Loader.
func (l *ClientLoader) Load(ctx context.Context) ([]*Sequence, error) {
	seqs, err := l.pipeline.Process(ctx, nil)
	if err != nil {
		// Unwrap the pipeline error so callers see the backend message unchanged.
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if errors.Is(err, ErrNoValidSequences) {
			return nil, ErrNoValidSequences
		}
		return nil, err
	}
	return seqs, nil
}

func (l *ClientLoader) generate(ctx context.Context, _ []*Sequence) ([]*Sequence, error) {
	result, err := l.client.GenerateSequence(ctx, l.request)
	if err != nil {
		return nil, err
	}
	seqs := make([]*Sequence, 0, len(result.Sequences))
	for i := range result.Sequences {
		seqs = append(seqs, &result.Sequences[i])
	}
	return seqs, nil
}

func (l *ClientLoader) validate(ctx context.Context, seqs []*Sequence) ([]*Sequence, error) {
	valid, rejected := ValidSequences(seqs)
	for _, err := range rejected {
		capitan.Emit(ctx, SequenceRejected,
			FieldSequenceCount.Field(len(seqs)),
			FieldError.Field(err),
		)
	}
	if len(seqs) > 0 && len(valid) == 0 {
		return nil, ErrNoValidSequences
	}
	return valid, nil
}
