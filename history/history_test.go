package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testRecord(id string) Record {
	return Record{
		ID:                id,
		Dir:               "/tmp/experiments/" + id,
		Core:              "I8500_(1_thread)",
		Workloads:         []string{"mandelbrot_rv64_O0.elf"},
		Status:            "completed",
		TotalCycles:       253629,
		TotalInstructions: 126814,
		StartedAt:         time.Date(2025, 8, 25, 10, 30, 0, 0, time.UTC),
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	store := openTestStore(t)
	assert.FileExists(t, store.Path())
}

func TestSaveAndGet(t *testing.T) {
	store := openTestStore(t)

	record := testRecord("250825-103000_aaaa")
	require.NoError(t, store.Save(record))

	got, err := store.Get(record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record, *got)

	missing, err := store.Get("no-such-run")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveRequiresID(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Save(Record{Core: "shogun_2t"}))
}

func TestListReturnsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"250823-090000_a", "250825-103000_b", "250824-120000_c"} {
		require.NoError(t, store.Save(testRecord(id)))
	}

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "250825-103000_b", records[0].ID)
	assert.Equal(t, "250824-120000_c", records[1].ID)
	assert.Equal(t, "250823-090000_a", records[2].ID)
}

func TestSaveReplacesExistingRecord(t *testing.T) {
	store := openTestStore(t)

	record := testRecord("250825-103000_a")
	require.NoError(t, store.Save(record))

	record.Status = "failed"
	record.TotalCycles = 0
	require.NoError(t, store.Save(record))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
}

func TestClear(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(testRecord("250825-103000_a")))
	require.NoError(t, store.Clear())

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	// The store stays usable after clearing.
	require.NoError(t, store.Save(testRecord("250825-110000_b")))
	records, err = store.List()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
