package db

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderIndexes returns the entries' order_index values as stored
func orderIndexes(n *Note) []int {
	out := make([]int, len(n.Entries))
	for i, e := range n.Entries {
		out[i] = e.OrderIndex
	}
	return out
}

// assertContiguous checks that positions are exactly 0..n-1
func assertContiguous(t *testing.T, n *Note) {
	t.Helper()
	got := orderIndexes(n)
	sort.Ints(got)
	for i, v := range got {
		if v != i {
			t.Fatalf("note %d positions %v are not 0..%d", n.ID, orderIndexes(n), len(got)-1)
		}
	}
}

// noteWithEntries creates a note whose entries are headed E1..En (the
// default entry renamed to E1).
func noteWithEntries(t *testing.T, d *DB, n int) *Note {
	t.Helper()
	ctx := context.Background()
	base := createNote(t, d, "note")
	first := base.Entries[0]
	first.Heading = "E1"
	note, err := d.UpdateEntry(ctx, first)
	require.NoError(t, err)
	for i := 2; i <= n; i++ {
		note, err = d.CreateEntry(ctx, base.ID, fmt.Sprintf("E%d", i), "")
		require.NoError(t, err)
	}
	return note
}

func TestCreateEntry_AppendsAfterMax(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	n := createNote(t, d, "append")

	got, err := d.CreateEntry(ctx, n.ID, "second", "body two")
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "second", got.Entries[1].Heading)
	assert.Equal(t, "body two", got.Entries[1].Body)
	assert.Equal(t, 1, got.Entries[1].OrderIndex)

	got, err = d.CreateEntry(ctx, n.ID, "third", "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, orderIndexes(got))
}

func TestCreateEntry_EmptyNoteStartsAtZero(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	n := createNote(t, d, "empty")

	res, err := d.DeleteEntry(ctx, n.Entries[0].ID, n.ID)
	require.NoError(t, err)
	require.Empty(t, res.Note.Entries)

	got, err := d.CreateEntry(ctx, n.ID, "fresh", "")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 0, got.Entries[0].OrderIndex)
}

func TestCreateEntry_BumpsParent(t *testing.T) {
	d := setupTestDB(t)
	n := createNote(t, d, "bump")

	got, err := d.CreateEntry(context.Background(), n.ID, "more", "")
	require.NoError(t, err)
	assert.Greater(t, got.UpdatedAt, n.UpdatedAt)
	for _, e := range got.Entries {
		assert.GreaterOrEqual(t, got.UpdatedAt, e.UpdatedAt)
	}
}

func TestCreateEntry_Errors(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	n := createNote(t, d, "errs")

	_, err := d.CreateEntry(ctx, 999, "orphan", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.CreateEntry(ctx, n.ID, "  ", "body")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateEntry(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 3)
	target := note.Entries[1]

	target.Heading = "renamed"
	target.Body = "new body"
	target.OrderIndex = 7 // ignored
	got, err := d.UpdateEntry(ctx, target)
	require.NoError(t, err)

	e := got.Entry(target.ID)
	require.NotNil(t, e)
	assert.Equal(t, "renamed", e.Heading)
	assert.Equal(t, "new body", e.Body)
	assert.Equal(t, 1, e.OrderIndex)
	assert.Greater(t, e.UpdatedAt, note.Entries[1].UpdatedAt)
	assert.GreaterOrEqual(t, got.UpdatedAt, e.UpdatedAt)
}

func TestUpdateEntry_Errors(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	a := createNote(t, d, "a")
	b := createNote(t, d, "b")

	_, err := d.UpdateEntry(ctx, Entry{ID: 4242, Heading: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	e := a.Entries[0]
	e.Heading = ""
	_, err = d.UpdateEntry(ctx, e)
	assert.ErrorIs(t, err, ErrValidation)

	e = a.Entries[0]
	e.NoteID = b.ID
	_, err = d.UpdateEntry(ctx, e)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteEntry_ClosesGap(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 2)

	res, err := d.DeleteEntry(ctx, note.Entries[0].ID, note.ID)
	require.NoError(t, err)
	assert.True(t, res.ShouldRegenerateTags)
	require.Len(t, res.Note.Entries, 1)
	assert.Equal(t, 0, res.Note.Entries[0].OrderIndex)
	assert.Equal(t, "E2", res.Note.Entries[0].Heading)
}

func TestDeleteEntry_MiddleKeepsOrder(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 4)

	res, err := d.DeleteEntry(ctx, note.Entries[1].ID, note.ID)
	require.NoError(t, err)

	headings := make([]string, len(res.Note.Entries))
	for i, e := range res.Note.Entries {
		headings[i] = e.Heading
	}
	assert.Equal(t, []string{"E1", "E3", "E4"}, headings)
	assert.Equal(t, []int{0, 1, 2}, orderIndexes(res.Note))
	assert.Greater(t, res.Note.UpdatedAt, note.UpdatedAt)
}

func TestDeleteEntry_Missing(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	a := createNote(t, d, "a")
	b := createNote(t, d, "b")

	_, err := d.DeleteEntry(ctx, a.Entries[0].ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	// entry of another note: no-op
	res, err := d.DeleteEntry(ctx, a.Entries[0].ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.ShouldRegenerateTags)
	assert.Len(t, res.Note.Entries, 1)

	got, err := d.GetNote(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)
}

func TestReorderEntries_Permutation(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 3)
	e1, e2, e3 := note.Entries[0], note.Entries[1], note.Entries[2]

	got, err := d.ReorderEntries(ctx, note.ID, []int64{e3.ID, e1.ID, e2.ID})
	require.NoError(t, err)

	assert.Equal(t, []int64{e3.ID, e1.ID, e2.ID}, got.EntryIDs())
	assert.Equal(t, 0, got.Entry(e3.ID).OrderIndex)
	assert.Equal(t, 1, got.Entry(e1.ID).OrderIndex)
	assert.Equal(t, 2, got.Entry(e2.ID).OrderIndex)
	assert.Greater(t, got.UpdatedAt, note.UpdatedAt)

	reread, err := d.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, got.EntryIDs(), reread.EntryIDs())
}

func TestReorderEntries_Invalid(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 3)
	other := createNote(t, d, "other")
	ids := note.EntryIDs()

	tests := []struct {
		name string
		ids  []int64
	}{
		{"missing one", ids[:2]},
		{"extra", append(append([]int64{}, ids...), other.Entries[0].ID)},
		{"duplicate", []int64{ids[0], ids[0], ids[1]}},
		{"foreign", []int64{ids[0], ids[1], other.Entries[0].ID}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ReorderEntries(ctx, note.ID, tt.ids)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	got, err := d.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, got.EntryIDs(), "failed reorders must not change order")

	_, err = d.ReorderEntries(ctx, 777, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderingContiguity_RandomOps(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 3)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 60; i++ {
		current, err := d.GetNote(ctx, note.ID)
		require.NoError(t, err)

		switch op := rng.Intn(3); {
		case op == 0 || len(current.Entries) < 2:
			_, err = d.CreateEntry(ctx, note.ID, fmt.Sprintf("step %d", i), "")
		case op == 1:
			victim := current.Entries[rng.Intn(len(current.Entries))]
			_, err = d.DeleteEntry(ctx, victim.ID, note.ID)
		default:
			ids := current.EntryIDs()
			rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
			_, err = d.ReorderEntries(ctx, note.ID, ids)
		}
		require.NoError(t, err)

		after, err := d.GetNote(ctx, note.ID)
		require.NoError(t, err)
		assertContiguous(t, after)
	}
}

func TestConcurrentMutations_KeepOrdering(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 6)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 15; i++ {
				current, err := d.GetNote(ctx, note.ID)
				if err != nil {
					t.Error(err)
					return
				}
				ids := current.EntryIDs()
				switch rng.Intn(3) {
				case 0:
					_, err = d.CreateEntry(ctx, note.ID, "concurrent", "")
				case 1:
					if len(ids) > 1 {
						_, err = d.DeleteEntry(ctx, ids[rng.Intn(len(ids))], note.ID)
					}
				default:
					rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
					// a racing writer may have changed the member set; that
					// must be rejected, never half-applied
					_, err = d.ReorderEntries(ctx, note.ID, ids)
					if err != nil && !assert.ErrorIs(t, err, ErrValidation) {
						return
					}
					err = nil
				}
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(int64(w))
	}

	for r := 0; r < 20; r++ {
		n, err := d.GetNote(ctx, note.ID)
		require.NoError(t, err)
		assertContiguous(t, n)
	}
	wg.Wait()

	final, err := d.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assertContiguous(t, final)
}

func TestRenumberEntries_RepairsGaps(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	note := noteWithEntries(t, d, 3)

	// simulate a gap left by an older writer
	_, err := d.writer.Exec(`UPDATE note_entries SET order_index = order_index * 10 + 5 WHERE note_id = ?`, note.ID)
	require.NoError(t, err)

	got, err := d.RenumberEntries(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, orderIndexes(got))
	assert.Equal(t, note.EntryIDs(), got.EntryIDs())
}

func TestMigrate_FirstRevisionSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE notes (
			id INTEGER UNIQUE PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE note_entries (
			id INTEGER UNIQUE PRIMARY KEY AUTOINCREMENT,
			note_id INTEGER NOT NULL,
			heading TEXT NOT NULL,
			body TEXT,
			order_index INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
		);
		INSERT INTO notes (id, title, created_at, updated_at) VALUES (1, 'old', 10, 20);
		INSERT INTO note_entries (note_id, heading, body, order_index, created_at, updated_at) VALUES
			(1, 'a', NULL, 0, 10, 10),
			(1, 'b', 'text', 2, 10, 10),
			(1, 'c', '', 2, 10, 10);
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	d, err := OpenDB(path)
	require.NoError(t, err)
	defer d.Close()

	cols, err := tableColumns(context.Background(), d.Conn(), "notes")
	require.NoError(t, err)
	for _, c := range []string{"summary", "study_plan", "tags"} {
		assert.True(t, cols[c], "missing column %s", c)
	}

	n, err := d.GetNote(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, []string{}, n.Tags)
	assert.False(t, n.TagsMalformed)
	assert.Equal(t, []int{0, 1, 2}, orderIndexes(n))
	assert.Equal(t, "", n.Entries[0].Body)
	assert.Equal(t, []string{"a", "b", "c"}, []string{n.Entries[0].Heading, n.Entries[1].Heading, n.Entries[2].Heading})

	// reopening is a no-op
	require.NoError(t, d.Close())
	d2, err := OpenDB(path)
	require.NoError(t, err)
	defer d2.Close()
}

func TestCheckPermutation(t *testing.T) {
	assert.NoError(t, checkPermutation([]int64{1, 2, 3}, []int64{3, 1, 2}))
	assert.NoError(t, checkPermutation(nil, nil))
	assert.ErrorIs(t, checkPermutation([]int64{1, 2}, []int64{1}), ErrValidation)
	assert.ErrorIs(t, checkPermutation([]int64{1, 2}, []int64{1, 1}), ErrValidation)
	assert.ErrorIs(t, checkPermutation([]int64{1, 2}, []int64{1, 3}), ErrValidation)
}
