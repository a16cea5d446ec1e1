package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsRecordAndList(t *testing.T) {
	s, err := OpenStats(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Record("dataforseo_backlinks_summary", 1200, 300*time.Millisecond, false))
	require.NoError(t, s.Record("dataforseo_backlinks_summary", 800, 200*time.Millisecond, false))
	require.NoError(t, s.Record("gsc_search_analytics", 400, 100*time.Millisecond, true))

	list := s.List()
	require.Len(t, list, 2)

	// Most used first.
	require.Equal(t, "dataforseo_backlinks_summary", list[0].Tool)
	require.EqualValues(t, 2, list[0].Calls)
	require.EqualValues(t, 0, list[0].Errors)
	require.EqualValues(t, 2000, list[0].Bytes)
	require.Equal(t, 500*time.Millisecond, list[0].Elapsed)

	require.Equal(t, "gsc_search_analytics", list[1].Tool)
	require.EqualValues(t, 1, list[1].Errors)
	require.False(t, list[1].LastUsed.IsZero())
}

func TestStatsRejectsEmptyTool(t *testing.T) {
	s, err := OpenStats(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Error(t, s.Record("  ", 0, 0, false))
}

func TestStatsPersistence(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStats(dir)
	require.NoError(t, err)
	require.NoError(t, s.Record("serp_organic_live_advanced", 5000, time.Second, false))
	require.NoError(t, s.Record("serp_organic_live_advanced", 5000, time.Second, true))
	require.NoError(t, s.Close())

	reopened, err := OpenStats(dir)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 1)
	require.EqualValues(t, 2, list[0].Calls)
	require.EqualValues(t, 1, list[0].Errors)
	require.EqualValues(t, 10000, list[0].Bytes)
}

func TestStatsCompaction(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStats(dir)
	require.NoError(t, err)
	for i := range compactMinOps + 10 {
		require.NoError(t, s.Record("dataforseo_labs_google_keyword_ideas", int64(i), time.Millisecond, false))
	}

	// The log must have been rewritten down to aggregate events.
	bts, err := os.ReadFile(filepath.Join(dir, statsFileName))
	require.NoError(t, err)
	lines := strings.Count(strings.TrimSpace(string(bts)), "\n") + 1
	require.Less(t, lines, compactMinOps)

	reopened, err := OpenStats(dir)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 1)
	require.EqualValues(t, compactMinOps+10, list[0].Calls)
}

func TestExports(t *testing.T) {
	dataPath := t.TempDir()
	exports, err := NewExports(dataPath)
	require.NoError(t, err)

	path, err := exports.Write(func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "# transcript")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dataPath, "exports"), filepath.Dir(path))
	require.True(t, strings.HasPrefix(filepath.Base(path), "seochat-"))
	require.True(t, strings.HasSuffix(path, ".md"))

	bts, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# transcript\n", string(bts))

	// No temp leftovers.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNewExportID(t *testing.T) {
	id := NewExportID()
	require.Regexp(t, SHA1Regexp, id)
	require.NotEqual(t, id, NewExportID())
}
