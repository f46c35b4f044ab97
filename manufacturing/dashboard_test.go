package manufacturing_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexplastics/form-engine/generic"
	"github.com/hexplastics/form-engine/generic/store"
	"github.com/hexplastics/form-engine/manufacturing"
)

type logBookRow struct{ consumed, in generic.Value }

func saveLogBook(t *testing.T, s generic.Store, name, date, shift string, finalize bool, rows ...logBookRow) {
	t.Helper()
	doc := generic.NewDoc(manufacturing.ProductionLogBook, name)
	doc.Set(manufacturing.LogBookDate, date)
	doc.Set(manufacturing.LogBookShift, shift)
	for _, r := range rows {
		doc.AddRow(manufacturing.LogBookConsumption, map[string]generic.Value{
			manufacturing.LogBookConsumed: r.consumed,
			manufacturing.LogBookInQty:    r.in,
		})
	}
	catalog(t).Recalculate(doc)
	if finalize {
		require.NoError(t, doc.Submit())
	}
	require.NoError(t, s.Save(context.Background(), doc, generic.SaveOptions{Transition: finalize}))
}

func seedLogBooks(t *testing.T) generic.Store {
	t.Helper()
	s := store.NewMemory()
	saveLogBook(t, s, "PLB-0001", "2026-03-09", "Day", true,
		logBookRow{100.5, 0}, logBookRow{"50.25", 0}, logBookRow{0, 140})
	saveLogBook(t, s, "PLB-0002", "2026-03-10", "Night", true,
		logBookRow{80, 76.4})
	saveLogBook(t, s, "PLB-0003", "2026-03-11", "Day", false,
		logBookRow{500, 0})
	saveLogBook(t, s, "PLB-0004", "2026-03-20", "Day", true,
		logBookRow{10, 10})
	return s
}

func march(day int) time.Time { return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC) }

func TestLogBookOverview_FinalizedEntriesInRange(t *testing.T) {
	// GIVEN: two finalized entries in the week, a draft, and one later entry
	s := seedLogBooks(t)

	// WHEN: summarising the week of 9 March
	docs, err := manufacturing.LogBookEntriesFor(context.Background(), s,
		manufacturing.LogBookQuery{From: march(9), To: march(15)})
	require.NoError(t, err)
	got := manufacturing.LogBookOverview(docs)

	// THEN: 230.75 consumed, 216.4 taken in, 14.35 lost (6.22%)
	want := manufacturing.LogBookMetrics{
		Entries:               2,
		TotalConsumption:      230.75,
		TotalInQty:            216.4,
		ProcessLoss:           14.35,
		ProcessLossPercentage: 6.22,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overview mismatch (-want +got):\n%s", diff)
	}
}

func TestLogBookOverview_FiltersByShift(t *testing.T) {
	s := seedLogBooks(t)

	docs, err := manufacturing.LogBookEntriesFor(context.Background(), s,
		manufacturing.LogBookQuery{From: march(9), To: march(15), Shift: "night"})
	require.NoError(t, err)

	got := manufacturing.LogBookOverview(docs)
	assert.Equal(t, 1, got.Entries)
	assert.Equal(t, 3.6, got.ProcessLoss)
	assert.Equal(t, 4.5, got.ProcessLossPercentage)
}

func TestLogBookOverview_NothingConsumed(t *testing.T) {
	got := manufacturing.LogBookOverview(nil)

	assert.Equal(t, manufacturing.LogBookMetrics{}, got)
	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestLogBookEntries_OneLinePerEntry(t *testing.T) {
	s := seedLogBooks(t)

	docs, err := manufacturing.LogBookEntriesFor(context.Background(), s, manufacturing.LogBookQuery{})
	require.NoError(t, err)
	entries := manufacturing.LogBookEntries(docs)

	require.Len(t, entries, 3)
	assert.Equal(t, manufacturing.LogBookEntry{
		ID:               "PLB-0001",
		ProductionDate:   "2026-03-09",
		Shift:            "Day",
		TotalConsumption: 150.75,
		TotalInQty:       140,
		ProcessLoss:      10.75,
	}, entries[0])
	assert.Equal(t, "PLB-0004", entries[2].ID)
	assert.Equal(t, 0.0, entries[2].ProcessLoss)
}
