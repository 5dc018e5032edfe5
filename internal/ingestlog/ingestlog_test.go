package ingestlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Owner:     "alice",
		Source:    "hdfc-jan.xlsx",
		Rows:      42,
		Saved:     40,
		Skipped:   2,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])

	data, err := os.ReadFile(filepath.Join(dir, "logs", "ingest-log.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Owner = "bob"
	e2.Source = "sbi.csv"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Owner)
	assert.Equal(t, "bob", entries[1].Owner)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "ingest-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header))
}

func TestAppend_Concurrent(t *testing.T) {
	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := testEntry()
			e.Source = fmt.Sprintf("file-%d.csv", i)
			assert.NoError(t, Append(dir, []Entry{e}))
		}(i)
	}
	wg.Wait()

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		msg  string
	}{
		{"short", []string{"a"}, "expected 6 fields"},
		{"timestamp", []string{"yesterday", "a", "b", "1", "1", "0"}, "parsing timestamp"},
		{"count", []string{"2025-01-15T10:30:00Z", "a", "b", "many", "1", "0"}, "parsing count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEntry(tt.row)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
