package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// PersistentStats holds cumulative counters that survive restarts.
type PersistentStats struct {
	Loads           int64 `json:"loads"`
	LoadFailures    int64 `json:"load_failures"`
	Renders         int64 `json:"renders"`
	FilterChanges   int64 `json:"filter_changes"`
	EmptyTimelines  int64 `json:"empty_timelines"`
	BacktraceErrors int64 `json:"backtrace_errors"`
}

// SystemStats is the /api/stats response.
type SystemStats struct {
	PersistentStats
	ActiveSessions int `json:"active_sessions"`
}

// statsFileName is the filename for persisted stats
const statsFileName = ".ylt.stats"

// Stats counts timeline activity. Counters are updated atomically and are
// exported both as JSON and as Prometheus metrics.
type Stats struct {
	loads           atomic.Int64
	loadFailures    atomic.Int64
	renders         atomic.Int64
	filterChanges   atomic.Int64
	emptyTimelines  atomic.Int64
	backtraceErrors atomic.Int64
}

// NewStats creates Stats seeded with previously persisted totals.
func NewStats(seed PersistentStats) *Stats {
	s := &Stats{}
	s.loads.Store(seed.Loads)
	s.loadFailures.Store(seed.LoadFailures)
	s.renders.Store(seed.Renders)
	s.filterChanges.Store(seed.FilterChanges)
	s.emptyTimelines.Store(seed.EmptyTimelines)
	s.backtraceErrors.Store(seed.BacktraceErrors)
	return s
}

func (s *Stats) IncLoad()           { s.loads.Add(1) }
func (s *Stats) IncLoadFailure()    { s.loadFailures.Add(1) }
func (s *Stats) IncRender()         { s.renders.Add(1) }
func (s *Stats) IncFilterChange()   { s.filterChanges.Add(1) }
func (s *Stats) IncEmptyTimeline()  { s.emptyTimelines.Add(1) }
func (s *Stats) IncBacktraceError() { s.backtraceErrors.Add(1) }

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() PersistentStats {
	return PersistentStats{
		Loads:           s.loads.Load(),
		LoadFailures:    s.loadFailures.Load(),
		Renders:         s.renders.Load(),
		FilterChanges:   s.filterChanges.Load(),
		EmptyTimelines:  s.emptyTimelines.Load(),
		BacktraceErrors: s.backtraceErrors.Load(),
	}
}

// Register exposes the counters on reg.
func (s *Stats) Register(reg prometheus.Registerer) error {
	counters := []struct {
		name, help string
		v          *atomic.Int64
	}{
		{"ylt_result_loads_total", "Results loaded into a session.", &s.loads},
		{"ylt_result_load_failures_total", "Results that could not be loaded.", &s.loadFailures},
		{"ylt_timeline_renders_total", "Timeline views rendered.", &s.renders},
		{"ylt_script_filter_changes_total", "Script filter changes.", &s.filterChanges},
		{"ylt_empty_timelines_total", "Rendered results with an empty execution tree.", &s.emptyTimelines},
		{"ylt_backtrace_parse_errors_total", "Backtraces with malformed frames.", &s.backtraceErrors},
	}

	for _, c := range counters {
		v := c.v
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: c.name,
			Help: c.help,
		}, func() float64 { return float64(v.Load()) })
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// LoadPersistentStats reads stats from disk.
func LoadPersistentStats(dataDir string) PersistentStats {
	var stats PersistentStats

	path := filepath.Join(dataDir, statsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		// File doesn't exist or can't be read, start from zero
		return stats
	}

	if err := json.Unmarshal(data, &stats); err != nil {
		// Corrupted file, start from zero
		return PersistentStats{}
	}
	return stats
}

// SavePersistentStats writes stats to disk atomically.
func SavePersistentStats(dataDir string, stats PersistentStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dataDir, statsFileName)
	tmpPath := path + ".tmp"

	// Write to temp file first
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, path)
}
