package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexplastics/form-engine/generic"
)

func TestDoc_RemoveRowKeepsOrder(t *testing.T) {
	doc := generic.NewDoc(testDocType, "")
	a := doc.AddRow("rows", map[string]generic.Value{"n": 1})
	b := doc.AddRow("rows", map[string]generic.Value{"n": 2})
	c := doc.AddRow("rows", map[string]generic.Value{"n": 3})

	require.NoError(t, doc.RemoveRow("rows", b.ID()))

	lines := doc.Lines("rows")
	require.Len(t, lines, 2)
	assert.Equal(t, a.ID(), lines[0].ID())
	assert.Equal(t, c.ID(), lines[1].ID())

	err := doc.RemoveRow("rows", b.ID())
	assert.ErrorIs(t, err, generic.ErrRowNotFound)
	assert.True(t, generic.IsNotFound(err))
}

func TestDoc_CloneIsIndependent(t *testing.T) {
	doc := generic.NewDoc(testDocType, "orig")
	doc.Set("qty", 1)
	line := doc.AddRow("rows", map[string]generic.Value{"n": 1})

	c := doc.Clone()
	c.Set("qty", 2)
	cl, err := c.Row("rows", line.ID())
	require.NoError(t, err)
	cl.Set("n", 5)
	c.AddRow("rows", nil)

	assert.Equal(t, 1, doc.Get("qty"))
	assert.Equal(t, 1, line.Get("n"))
	assert.Len(t, doc.Lines("rows"), 1)
}

func TestDoc_Lifecycle(t *testing.T) {
	doc := generic.NewDoc(testDocType, "")
	assert.Equal(t, generic.StateDraft, doc.State())
	assert.False(t, doc.State().Locked())

	assert.ErrorIs(t, doc.Cancel(), generic.ErrInvalidTransition)
	require.NoError(t, doc.Submit())
	assert.True(t, doc.State().Locked())

	err := doc.Submit()
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.True(t, generic.IsConflict(err))

	require.NoError(t, doc.Cancel())
	assert.Equal(t, generic.StateCancelled, doc.State())
	assert.True(t, doc.State().Locked())
}

func TestDoc_JSONKeepsRowIdentity(t *testing.T) {
	doc := generic.NewDoc(testDocType, "json")
	doc.Set("rejection_date", "2026-03-10")
	line := doc.AddRow("rows", map[string]generic.Value{"printing": 2.0})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var back generic.Doc
	require.NoError(t, json.Unmarshal(raw, &back))
	got, err := back.Row("rows", line.ID())
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Get("printing"))
	assert.Equal(t, generic.StateDraft, back.State())
}

func TestParseLifecycle(t *testing.T) {
	for in, want := range map[string]generic.Lifecycle{
		"":          generic.StateDraft,
		"draft":     generic.StateDraft,
		"finalized": generic.StateFinalized,
		"cancelled": generic.StateCancelled,
	} {
		got, err := generic.ParseLifecycle(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := generic.ParseLifecycle("submitted")
	assert.Error(t, err)
}

func TestListFilter_MatchesDatesAndStates(t *testing.T) {
	doc := generic.NewDoc(testDocType, "")
	doc.Set("day", "2026-03-10")
	doc.Status = generic.StateFinalized

	day := func(s string) time.Time {
		d, ok := generic.DateOf(s)
		require.True(t, ok)
		return d
	}

	assert.True(t, generic.ListFilter{Type: testDocType}.Matches(doc))
	assert.False(t, generic.ListFilter{Type: "Other"}.Matches(doc))
	assert.True(t, generic.ListFilter{States: []generic.Lifecycle{generic.StateFinalized}}.Matches(doc))
	assert.False(t, generic.ListFilter{States: []generic.Lifecycle{generic.StateDraft}}.Matches(doc))

	assert.True(t, generic.ListFilter{DateField: "day", DateFrom: day("2026-03-10"), DateTo: day("2026-03-10")}.Matches(doc))
	assert.False(t, generic.ListFilter{DateField: "day", DateFrom: day("2026-03-11")}.Matches(doc))
	assert.False(t, generic.ListFilter{DateField: "day", DateTo: day("2026-03-09")}.Matches(doc))
	assert.False(t, generic.ListFilter{DateField: "missing"}.Matches(doc), "documents without a date are excluded")
}
