package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/notes/internal/db"
)

func nowMs() int64          { return time.Now().UnixMilli() }
func daysAgo(d int64) int64 { return nowMs() - d*dayMs }

type entrySpec struct {
	id, noteID int64
	order      int
	updatedAt  int64
}

func quickSnapshot(notes []*NoteInfo, specs []entrySpec) *Snapshot {
	entries := make([]EntryInfo, 0, len(specs))
	for _, s := range specs {
		entries = append(entries, EntryInfo{
			ID: s.id, NoteID: s.noteID, Heading: "Entry", OrderIndex: s.order, UpdatedAt: s.updatedAt,
		})
	}
	return NewSnapshot(notes, entries)
}

func note(id int64, updatedAt int64, tags ...string) *NoteInfo {
	if tags == nil {
		tags = []string{}
	}
	return &NoteInfo{ID: id, Title: "Note", Tags: tags, CreatedAt: updatedAt, UpdatedAt: updatedAt}
}

func TestCheck_HealthyStore(t *testing.T) {
	now := nowMs()
	snap := quickSnapshot(
		[]*NoteInfo{note(1, now, "work"), note(2, now, "travel")},
		[]entrySpec{{1, 1, 0, now}, {2, 1, 1, now}, {3, 2, 0, now}},
	)

	report := Check(snap, DefaultConfig())
	assert.Equal(t, 2, report.TotalNotes)
	assert.Equal(t, 3, report.TotalEntries)
	assert.Zero(t, report.Integrity.Problems())
	assert.InDelta(t, 1.0, report.HealthScore, 1e-9)
}

func TestCheck_EmptyStore(t *testing.T) {
	report := Check(NewSnapshot(nil, nil), nil)
	assert.InDelta(t, 1.0, report.HealthScore, 1e-9)
	assert.Empty(t, report.Integrity.OrderingViolations)
}

func TestComputeIntegrity_Ordering(t *testing.T) {
	now := nowMs()
	snap := quickSnapshot(
		[]*NoteInfo{note(1, now, "work"), note(2, now, "work"), note(3, now, "work")},
		[]entrySpec{
			{1, 1, 0, now}, {2, 1, 2, now}, // gap
			{3, 2, 0, now}, {4, 2, 0, now}, // duplicate
			{5, 3, 0, now}, {6, 3, 1, now}, // fine
		},
	)

	report := ComputeIntegrity(snap)
	require.Len(t, report.OrderingViolations, 2)

	gap := report.OrderingViolations[0]
	assert.EqualValues(t, 1, gap.NoteID)
	assert.Equal(t, []int{0, 2}, gap.Positions)
	assert.Equal(t, []int{1}, gap.Missing)
	assert.Empty(t, gap.Duplicates)

	dup := report.OrderingViolations[1]
	assert.EqualValues(t, 2, dup.NoteID)
	assert.Equal(t, []int{0}, dup.Duplicates)
	assert.Equal(t, []int{1}, dup.Missing)
}

func TestComputeIntegrity_OrphansMalformedAndNewerChildren(t *testing.T) {
	now := nowMs()
	bad := note(1, now)
	bad.TagsMalformed = true
	snap := quickSnapshot(
		[]*NoteInfo{bad, note(2, now-1000, "work")},
		[]entrySpec{{1, 1, 0, now}, {2, 2, 0, now}, {9, 99, 0, now}},
	)

	report := ComputeIntegrity(snap)
	assert.Equal(t, []EntryRef{{EntryID: 9, NoteID: 99, Heading: "Entry"}}, report.OrphanEntries)
	assert.Equal(t, []NoteRef{{NoteID: 1, Title: "Note"}}, report.MalformedTags)
	require.Len(t, report.NewerThanParent, 1)
	assert.EqualValues(t, 2, report.NewerThanParent[0].EntryID)
	assert.Equal(t, 3, report.Problems())
}

func TestComputeStaleness(t *testing.T) {
	snap := quickSnapshot(
		[]*NoteInfo{note(1, daysAgo(100), "work"), note(2, daysAgo(200), "work"), note(3, nowMs()), note(4, nowMs())},
		[]entrySpec{{1, 1, 0, 0}, {2, 2, 0, 0}, {3, 3, 0, 0}},
	)

	report := ComputeStaleness(snap, 30, 0)
	require.Equal(t, 2, report.StaleCount)
	assert.EqualValues(t, 2, report.StaleNotes[0].NoteID, "oldest first")
	assert.GreaterOrEqual(t, report.StaleNotes[0].DaysSinceUpdate, int64(199))

	// note 4 has no entries, so it is not a tagging candidate
	assert.Equal(t, []NoteRef{{NoteID: 3, Title: "Note"}}, report.UntaggedNotes)
}

func TestComputeStaleness_Disabled(t *testing.T) {
	snap := quickSnapshot([]*NoteInfo{note(1, daysAgo(1000), "work")}, nil)
	assert.Zero(t, ComputeStaleness(snap, 0, 0).StaleCount)
}

func TestCheck_ScoreDropsWithProblems(t *testing.T) {
	now := nowMs()
	snap := quickSnapshot(
		[]*NoteInfo{note(1, now, "work"), note(2, now)},
		[]entrySpec{{1, 1, 0, now}, {2, 1, 5, now}, {3, 2, 0, now}},
	)
	report := Check(snap, &Config{StaleDays: 30, NowMs: now})
	assert.InDelta(t, 0.0, report.HealthBreakdown.Ordering, 1e-9)
	assert.InDelta(t, 1.0, report.HealthBreakdown.Integrity, 1e-9)
	assert.InDelta(t, 0.0, report.HealthBreakdown.Tagging, 1e-9)
	assert.InDelta(t, 0.45, report.HealthScore, 1e-9)
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{[]string{"work", "travel"}, []string{"work", "travel"}, 1.0},
		{[]string{"work"}, []string{"travel"}, 0.0},
		{[]string{"work", "travel"}, []string{"Work", "ideas"}, 1.0 / 3.0},
		{nil, nil, 0.0},
		{[]string{"work"}, nil, 0.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, JaccardSimilarity(tt.a, tt.b), 1e-9, "%v vs %v", tt.a, tt.b)
	}
}

func TestRelatedNotes(t *testing.T) {
	now := nowMs()
	n1 := note(1, now, "work", "planning")
	n1.Title = "Roadmap"
	snap := quickSnapshot([]*NoteInfo{
		n1,
		note(2, now, "work", "planning"),
		note(3, now, "work", "travel"),
		note(4, now, "music"),
		note(5, now),
	}, nil)

	got := RelatedNotes(snap, 1, 5, 0)
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[0].NoteID)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
	assert.Equal(t, []string{"planning", "work"}, got[0].Shared)
	assert.EqualValues(t, 3, got[1].NoteID)

	assert.Len(t, RelatedNotes(snap, 1, 1, 0), 1)
	assert.Len(t, RelatedNotes(snap, 1, 5, 0.5), 1)
	assert.Nil(t, RelatedNotes(snap, 404, 5, 0))
}

func openStore(t *testing.T) (*db.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	d, err := db.OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, path
}

func TestSnapshotFromDB_AndRepair(t *testing.T) {
	ctx := context.Background()
	d, path := openStore(t)

	notes, err := d.CreateNote(ctx, "Trip")
	require.NoError(t, err)
	trip := notes[0]
	_, err = d.CreateEntry(ctx, trip.ID, "Flights", "")
	require.NoError(t, err)
	_, err = d.CreateEntry(ctx, trip.ID, "Hotels", "")
	require.NoError(t, err)

	// damage the file behind the store's back: a gap and an orphan
	raw, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`UPDATE note_entries SET order_index = 7 WHERE note_id = ? AND order_index = 1`, trip.ID)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO note_entries (note_id, heading, body, order_index, created_at, updated_at)
		VALUES (999, 'Lost', '', 0, 1, 1)`)
	require.NoError(t, err)

	snap, err := SnapshotFromDB(ctx, d)
	require.NoError(t, err)
	report := Check(snap, DefaultConfig())
	require.Len(t, report.Integrity.OrderingViolations, 1)
	require.Len(t, report.Integrity.OrphanEntries, 1)
	assert.Equal(t, "Lost", report.Integrity.OrphanEntries[0].Heading)
	assert.Less(t, report.HealthScore, 1.0)

	fixed, err := Repair(ctx, d, report)
	require.NoError(t, err)
	assert.Equal(t, []int64{trip.ID}, fixed)

	snap, err = SnapshotFromDB(ctx, d)
	require.NoError(t, err)
	assert.Empty(t, Check(snap, DefaultConfig()).Integrity.OrderingViolations)

	got, err := d.GetNote(ctx, trip.ID)
	require.NoError(t, err)
	headings := []string{}
	for _, e := range got.Entries {
		headings = append(headings, e.Heading)
	}
	assert.Equal(t, []string{db.DefaultEntryHeading, "Hotels", "Flights"}, headings)
	assert.Equal(t, []int{0, 1, 2}, []int{got.Entries[0].OrderIndex, got.Entries[1].OrderIndex, got.Entries[2].OrderIndex})
}

func TestRepair_NothingToDo(t *testing.T) {
	fixed, err := Repair(context.Background(), nil, &Report{Integrity: &IntegrityReport{}})
	require.NoError(t, err)
	assert.Empty(t, fixed)
}
