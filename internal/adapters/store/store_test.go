package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "linkage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPeople(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE people (
			id TEXT PRIMARY KEY,
			first TEXT,
			last TEXT,
			aliases TEXT
		)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO people (id, first, last, aliases) VALUES
			('p3', 'mary', 'jones', 'mj em-jay'),
			('p1', 'john', 'smith', NULL),
			('p2', NULL, 'smith', '')`)
	require.NoError(t, err)
}

func TestSQLiteSourceLoad(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	src := s.Source(SourceSpec{
		Table:        "people",
		IDColumn:     "id",
		FieldColumns: []string{"first", "last"},
		ArrayColumns: []string{"aliases"},
	})
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Rows come back in ID order regardless of insertion order.
	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "p2", records[1].ID)
	assert.Equal(t, "p3", records[2].ID)

	assert.Equal(t, "john", records[0].Fields["first"])
	// NULL and empty values stay absent, which the engine reads as null.
	_, ok := records[1].Fields["first"]
	assert.False(t, ok, "NULL column should not populate a field")
	_, ok = records[1].Arrays["aliases"]
	assert.False(t, ok, "empty column should not populate an array")

	assert.Equal(t, []string{"mj", "em-jay"}, records[2].Arrays["aliases"])
}

func TestSQLiteSourceCustomSeparator(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, tags TEXT)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO items (id, tags) VALUES ('i1', 'a|b|c')`)
	require.NoError(t, err)

	src := s.Source(SourceSpec{
		Table:          "items",
		IDColumn:       "id",
		ArrayColumns:   []string{"tags"},
		ArraySeparator: "|",
	})
	records, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"a", "b", "c"}, records[0].Arrays["tags"])
}

func TestSQLiteSinkWriteAndOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sink := s.Sink("clusters")

	require.NoError(t, sink.Write(ctx, map[string]string{
		"p1": "p1",
		"p2": "p1",
		"p3": "p3",
	}))

	count := func() int {
		var n int
		require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clusters`).Scan(&n))
		return n
	}
	assert.Equal(t, 3, count())

	// A second write replaces the previous assignment wholesale.
	require.NoError(t, sink.Write(ctx, map[string]string{"p9": "p9"}))
	assert.Equal(t, 1, count())

	var cluster string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT cluster_id FROM clusters WHERE record_id = 'p9'`).Scan(&cluster))
	assert.Equal(t, "p9", cluster)
}

func TestCSVSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id,first,last,aliases\n"+
			"p1,john,smith,\n"+
			"p2,,smith,js junior\n"), 0o644))

	src := &CSVSource{
		Path:         path,
		IDColumn:     "id",
		ArrayColumns: []string{"aliases"},
	}
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "smith", records[0].Fields["last"])
	_, ok := records[0].Arrays["aliases"]
	assert.False(t, ok, "empty cell should stay null")

	_, ok = records[1].Fields["first"]
	assert.False(t, ok, "empty cell should stay null")
	assert.Equal(t, []string{"js", "junior"}, records[1].Arrays["aliases"])
}

func TestCSVSourceMissingIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte("first,last\njohn,smith\n"), 0o644))

	src := &CSVSource{Path: path, IDColumn: "id"}
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id column")
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "absent.csv"), IDColumn: "id"}
	_, err := src.Load(context.Background())
	require.Error(t, err)
}
