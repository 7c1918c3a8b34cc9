//go:build integration

package integration_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/zoobzio/simforge"
)

func getTestClient(t *testing.T) *simforge.Client {
	t.Helper()

	baseURL := os.Getenv("SIMFORGE_API_URL")
	if baseURL == "" {
		t.Skip("SIMFORGE_API_URL not set")
	}

	client := simforge.NewClient(baseURL)
	if _, err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("backend not reachable: %v", err)
	}
	return client
}

func TestBackend_GenerateAndLoad(t *testing.T) {
	client := getTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := simforge.NewSequenceStore().WithLoader(simforge.NewClientLoader(client, simforge.GenerationRequest{
		Context: "You are an AI assistant helping a user plan a weekend hike.",
		N:       1,
	}))
	store.LoadSequences(ctx)

	st := store.State()
	if st.Error != "" {
		t.Fatalf("load failed: %s", st.Error)
	}
	if st.CurrentSequence == nil {
		t.Fatal("expected a current sequence")
	}
	if len(st.CurrentSequence.Rows) == 0 {
		t.Error("expected generated rows")
	}
}

func TestBackend_ForkRow(t *testing.T) {
	client := getTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := simforge.NewSequenceStore()
	store.InitializeWithSampleData()
	seq := store.State().CurrentSequence
	parent := seq.Rows[0].ID

	result, err := client.ForkRow(ctx, simforge.ForkRequest{
		RowID:      parent,
		SequenceID: seq.ID,
		NumForks:   2,
		ForkType:   simforge.ForkInvertBeliefs,
	})
	if err != nil {
		t.Fatalf("fork failed: %v", err)
	}

	ids := store.ApplyForks(parent, result.Forks)
	if len(ids) != len(result.Forks) {
		t.Errorf("expected %d forks applied, got %d", len(result.Forks), len(ids))
	}
}

func TestBackend_SchemasAndPrompts(t *testing.T) {
	client := getTestClient(t)
	ctx := context.Background()

	if _, err := client.Schemas(ctx); err != nil {
		t.Errorf("schemas: %v", err)
	}
	if _, err := client.Prompts(ctx); err != nil {
		t.Errorf("prompts: %v", err)
	}
}
