package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, PersistentStats{}, LoadPersistentStats(dir))

	s := NewStats(PersistentStats{Loads: 5})
	s.IncLoad()
	s.IncRender()
	s.IncBacktraceError()
	require.NoError(t, SavePersistentStats(dir, s.Snapshot()))

	got := LoadPersistentStats(dir)
	assert.Equal(t, PersistentStats{Loads: 6, Renders: 1, BacktraceErrors: 1}, got)
}

func TestStatsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, statsFileName), []byte("{"), 0644))
	assert.Equal(t, PersistentStats{}, LoadPersistentStats(dir))
}

func TestStatsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewStats(PersistentStats{})
	require.NoError(t, s.Register(reg))

	s.IncFilterChange()
	s.IncFilterChange()

	n, err := testutil.GatherAndCount(reg, "ylt_script_filter_changes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, s.Register(reg), "registering twice should fail")
}
