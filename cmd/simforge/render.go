package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/zoobzio/simforge"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	beliefStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#bac2de"))
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	orphanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	operationTag = map[string]lipgloss.Style{
		simforge.OperationReflect: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7")),
		simforge.OperationAct:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fab387")),
		simforge.OperationPlan:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89dceb")),
		simforge.OperationFork:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9e2af")),
	}
	toastStyle = map[simforge.ToastType]lipgloss.Style{
		simforge.ToastInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")),
		simforge.ToastSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		simforge.ToastWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		simforge.ToastError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
	}
	toastIcon = map[simforge.ToastType]string{
		simforge.ToastInfo:    "i",
		simforge.ToastSuccess: "✓",
		simforge.ToastWarning: "!",
		simforge.ToastError:   "✗",
	}
)

// encode writes v as YAML or JSON.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

// renderSequences writes sequences in the requested format. Text output
// marks the current sequence with an asterisk.
func renderSequences(w io.Writer, format string, seqs []*simforge.Sequence, current *simforge.Sequence, now time.Time) error {
	if format != outputText {
		return encode(w, format, seqs)
	}
	for i, seq := range seqs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderSequence(w, seq, seq == current, now)
	}
	return nil
}

func renderSequence(w io.Writer, seq *simforge.Sequence, current bool, now time.Time) {
	marker := " "
	if current {
		marker = "*"
	}
	fmt.Fprintf(w, "%s %s %s\n", marker, titleStyle.Render(seq.Title), mutedStyle.Render(seq.ID))
	if seq.Description != "" {
		fmt.Fprintf(w, "  %s\n", seq.Description)
	}
	if !seq.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render("created "+humanize.RelTime(seq.CreatedAt.Time, now, "ago", "from now")))
	}
	fmt.Fprintf(w, "  %s\n", mutedStyle.Render(fmt.Sprintf("%s rows", humanize.Comma(int64(len(seq.Rows))))))

	seen := map[string]bool{}
	for _, root := range seq.Roots() {
		renderRow(w, seq, root, 1, seen)
	}
	for _, orphan := range seq.Orphans() {
		fmt.Fprintf(w, "  %s\n", orphanStyle.Render("orphan of "+*orphan.ParentID))
		renderRow(w, seq, orphan, 2, seen)
	}
	// Rows whose parent chain loops never reach a root or an orphan.
	for _, row := range seq.Rows {
		if seen[row.ID] {
			continue
		}
		fmt.Fprintf(w, "  %s\n", orphanStyle.Render("cycle at "+row.ID))
		renderRow(w, seq, row, 2, seen)
	}
}

func renderRow(w io.Writer, seq *simforge.Sequence, row simforge.Row, depth int, seen map[string]bool) {
	if seen[row.ID] {
		return
	}
	seen[row.ID] = true

	indent := strings.Repeat("  ", depth)
	tag, ok := operationTag[row.Operation.Type]
	if !ok {
		tag = lipgloss.NewStyle().Bold(true)
	}
	fmt.Fprintf(w, "%s%s %s %s\n", indent, tag.Render("["+row.Operation.Type+"]"), row.Goal, mutedStyle.Render(row.ID))
	if row.Operation.Description != "" {
		fmt.Fprintf(w, "%s  %s\n", indent, mutedStyle.Render(row.Operation.Description))
	}
	for _, b := range row.Beliefs {
		fmt.Fprintf(w, "%s  %s\n", indent, beliefStyle.Render("• "+b))
	}
	if row.Output != "" {
		for _, line := range strings.Split(row.Output, "\n") {
			fmt.Fprintf(w, "%s  %s\n", indent, outputStyle.Render("→ "+line))
		}
	}
	for _, child := range seq.Children(row.ID) {
		renderRow(w, seq, child, depth+1, seen)
	}
}

// renderNames writes the names of schemas or prompts, sorted.
func renderNames(w io.Writer, names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		fmt.Fprintf(w, "  %s\n", n)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s total", humanize.Comma(int64(len(sorted))))))
}

// renderToast formats a toast for the terminal.
func renderToast(t simforge.Toast) string {
	style, ok := toastStyle[t.Type]
	if !ok {
		style = toastStyle[simforge.ToastInfo]
	}
	var b strings.Builder
	if t.ShowIcon {
		b.WriteString(toastIcon[t.Type])
		b.WriteString(" ")
	}
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteString(": ")
	}
	b.WriteString(t.Message)
	return style.Render(b.String())
}
