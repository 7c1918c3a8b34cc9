package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/simforge"
)

func TestRenderSequenceTree(t *testing.T) {
	a, gone := "a", "gone"
	seq := &simforge.Sequence{
		ID:    "s1",
		Title: "Tree",
		Rows: []simforge.Row{
			{ID: "a", Goal: "root goal", Operation: simforge.Operation{Type: simforge.OperationReflect}},
			{ID: "b", Goal: "child goal", ParentID: &a, Operation: simforge.Operation{Type: simforge.OperationFork},
				Beliefs: simforge.Beliefs{"a belief"}, Output: "line one\nline two"},
			{ID: "c", Goal: "lost goal", ParentID: &gone, Operation: simforge.Operation{Type: simforge.OperationAct}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSequences(&buf, outputText, []*simforge.Sequence{seq}, seq, time.Now()))
	out := buf.String()

	assert.Contains(t, out, "* Tree")
	assert.Contains(t, out, "  [Reflect] root goal")
	assert.Contains(t, out, "    [Fork] child goal")
	assert.Contains(t, out, "• a belief")
	assert.Contains(t, out, "→ line two")
	assert.Contains(t, out, "orphan of gone")
	assert.Contains(t, out, "[Act] lost goal")

	// Children render after their parent.
	assert.Less(t, strings.Index(out, "root goal"), strings.Index(out, "child goal"))
}

func TestRenderSequenceCreatedAt(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	seq := &simforge.Sequence{
		ID:        "s1",
		Title:     "Dated",
		CreatedAt: simforge.Timestamp{Time: now.Add(-3 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSequences(&buf, outputText, []*simforge.Sequence{seq}, nil, now))

	assert.Contains(t, buf.String(), "created 3 hours ago")
	assert.NotContains(t, buf.String(), "* Dated")
}

func TestRenderRowCycleTerminates(t *testing.T) {
	x, y := "x", "y"
	seq := &simforge.Sequence{
		ID:    "s",
		Title: "Cycle",
		Rows: []simforge.Row{
			{ID: "root", Goal: "root"},
			{ID: "x", Goal: "x goal", ParentID: &y},
			{ID: "y", Goal: "y goal", ParentID: &x},
		},
	}

	var buf bytes.Buffer
	renderRow(&buf, seq, seq.Rows[1], 1, map[string]bool{})

	assert.Equal(t, 1, strings.Count(buf.String(), "x goal"))
	assert.Equal(t, 1, strings.Count(buf.String(), "y goal"))
}

func TestRenderToast(t *testing.T) {
	toast := simforge.Toast{Type: simforge.ToastSuccess, Title: "Done", Message: "saved", ShowIcon: true}
	assert.Contains(t, renderToast(toast), "✓ Done: saved")

	toast.ShowIcon = false
	assert.NotContains(t, renderToast(toast), "✓")
}

func TestRenderNames(t *testing.T) {
	var buf bytes.Buffer
	renderNames(&buf, []string{"zeta", "alpha"})

	out := buf.String()
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "zeta"))
	assert.Contains(t, out, "2 total")
}

func TestRenderSequenceParentCycle(t *testing.T) {
	x, y := "x", "y"
	seq := &simforge.Sequence{
		ID:    "s",
		Title: "Cycle",
		Rows: []simforge.Row{
			{ID: "root", Goal: "root goal"},
			{ID: "x", Goal: "x goal", ParentID: &y},
			{ID: "y", Goal: "y goal", ParentID: &x},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSequences(&buf, outputText, []*simforge.Sequence{seq}, seq, time.Now()))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, "root goal"))
	assert.Equal(t, 1, strings.Count(out, "x goal"))
	assert.Equal(t, 1, strings.Count(out, "y goal"))
	assert.Contains(t, out, "cycle at x")
}
