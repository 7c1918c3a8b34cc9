package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/simforge"
	"gopkg.in/yaml.v3"
)

func newHealthCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			health, err := a.client.HealthCheck(cmd.Context())
			if err != nil {
				a.toasts.Error(err.Error(), simforge.ToastOptions{Title: "Backend unreachable"})
				return fmt.Errorf("health: %w", err)
			}
			if a.cfg.Output != outputText {
				return encode(a.out, a.cfg.Output, health)
			}
			fmt.Fprintf(a.out, "%s %s\n", a.client.BaseURL(), health.Status)
			return nil
		},
	}
}

func newGenerateCmd(appFn func() *app) *cobra.Command {
	var (
		contextText string
		schemaFile  string
		count       int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate cognition sequences from a context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			req := simforge.GenerationRequest{
				Context: contextText,
				N:       count,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			if schemaFile != "" {
				schema, err := readSchemaConfig(schemaFile)
				if err != nil {
					return err
				}
				req.SchemaConfig = schema
			}

			if err := a.loadGenerated(cmd.Context(), req); err != nil {
				return err
			}
			return a.render()
		},
	}

	cmd.Flags().StringVarP(&contextText, "context", "c", "", "scenario the sequences reason about")
	cmd.Flags().StringVar(&schemaFile, "schema-file", "", "YAML or JSON file sent as schema_config")
	cmd.Flags().IntVarP(&count, "count", "n", simforge.DefaultSequenceCount, "number of sequences (1-10)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", simforge.DefaultTemperature, "sampling temperature (0-2)")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func newForkCmd(appFn func() *app) *cobra.Command {
	var (
		inputFile   string
		rowID       string
		numForks    int
		forkType    string
		contextText string
	)

	cmd := &cobra.Command{
		Use:   "fork",
		Short: "Fork a row into alternative versions",
		Long: "Fork a row of a sequence into alternative versions and print the\n" +
			"sequence with the forks attached. Without --input the sample sequence is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			if inputFile != "" {
				seqs, err := readSequences(inputFile)
				if err != nil {
					return err
				}
				a.sequence.AddSequences(seqs...)
			} else {
				a.sequence.InitializeWithSampleData()
			}

			current := a.sequence.State().CurrentSequence
			if current == nil {
				return simforge.ErrNoCurrentSequence
			}
			if rowID == "" {
				if len(current.Rows) == 0 {
					return fmt.Errorf("sequence %q has no rows to fork", current.Title)
				}
				rowID = current.Rows[0].ID
			}
			if _, ok := current.Row(rowID); !ok {
				return fmt.Errorf("row %q not found in sequence %q", rowID, current.Title)
			}

			result, err := a.client.ForkRow(cmd.Context(), simforge.ForkRequest{
				RowID:      rowID,
				SequenceID: current.ID,
				NumForks:   numForks,
				ForkType:   forkType,
				Context:    contextText,
			})
			if err != nil {
				a.toasts.Error(err.Error(), simforge.ToastOptions{Title: "Fork failed"})
				return fmt.Errorf("fork: %w", err)
			}

			ids := a.sequence.ApplyForks(rowID, result.Forks)
			a.toasts.Success(fmt.Sprintf("Created %d forks", len(ids)))
			return a.render()
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "YAML or JSON file holding a sequence or list of sequences")
	cmd.Flags().StringVarP(&rowID, "row", "r", "", "row id to fork (default first row)")
	cmd.Flags().IntVarP(&numForks, "num-forks", "n", simforge.DefaultForkCount, "number of forks (1-5)")
	cmd.Flags().StringVar(&forkType, "type", simforge.ForkAlternativeOperation,
		"fork type (invert_beliefs, change_goal, alternative_operation)")
	cmd.Flags().StringVarP(&contextText, "context", "c", "", "extra context for the fork")
	return cmd
}

func newSchemasCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [name]",
		Short: "List generation schemas or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if len(args) == 1 {
				schema, err := a.client.Schema(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("schema %s: %w", args[0], err)
				}
				return encode(a.out, structuredFormat(a.cfg.Output), schema)
			}

			schemas, err := a.client.Schemas(cmd.Context())
			if err != nil {
				return fmt.Errorf("schemas: %w", err)
			}
			if a.cfg.Output != outputText {
				return encode(a.out, a.cfg.Output, schemas)
			}
			names := make([]string, 0, len(schemas))
			for i, s := range schemas {
				name, _ := s["name"].(string)
				if name == "" {
					name = fmt.Sprintf("schema %d", i+1)
				}
				names = append(names, name)
			}
			renderNames(a.out, names)
			return nil
		},
	}
}

func newPromptsCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts [name]",
		Short: "List prompt templates or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if len(args) == 1 {
				prompt, err := a.client.Prompt(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("prompt %s: %w", args[0], err)
				}
				if a.cfg.Output != outputText {
					return encode(a.out, a.cfg.Output, prompt)
				}
				fmt.Fprintln(a.out, titleStyle.Render(prompt.Name))
				fmt.Fprintln(a.out, prompt.Content)
				return nil
			}

			prompts, err := a.client.Prompts(cmd.Context())
			if err != nil {
				return fmt.Errorf("prompts: %w", err)
			}
			if a.cfg.Output != outputText {
				return encode(a.out, a.cfg.Output, prompts)
			}
			names := make([]string, len(prompts))
			for i, p := range prompts {
				names[i] = p.Name
			}
			renderNames(a.out, names)
			return nil
		},
	}
}

func newSampleCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print the demonstration sequence",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a := appFn()
			a.sequence.InitializeWithSampleData()
			return a.render()
		},
	}
}

// structuredFormat maps text output to YAML for values with no text view.
func structuredFormat(format string) string {
	if format == outputText {
		return outputYAML
	}
	return format
}

// readSchemaConfig decodes a YAML or JSON object from path.
func readSchemaConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var schema map[string]any
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	return schema, nil
}

// readSequences decodes one sequence or a list of sequences from a YAML or
// JSON file. YAML is converted to JSON first so the backend's tolerant
// decoders apply to both.
func readSequences(path string) ([]*simforge.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	var seqs []*simforge.Sequence
	if _, isList := doc.([]any); isList {
		if err := json.Unmarshal(raw, &seqs); err != nil {
			return nil, fmt.Errorf("decode sequences: %w", err)
		}
	} else {
		var seq simforge.Sequence
		if err := json.Unmarshal(raw, &seq); err != nil {
			return nil, fmt.Errorf("decode sequence: %w", err)
		}
		seqs = []*simforge.Sequence{&seq}
	}

	valid, rejected := simforge.ValidSequences(seqs)
	if len(rejected) > 0 {
		return nil, fmt.Errorf("invalid input: %w", rejected[0])
	}
	return valid, nil
}
