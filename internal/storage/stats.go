// Package storage persists tool usage statistics and transcript exports
// under the data directory.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	statsFileName      = "stats.jsonl"
	compactMinOps      = 256
	compactScaleFactor = 4
)

type statsEvent struct {
	Op      string     `json:"op"`
	Tool    string     `json:"tool,omitempty"`
	Bytes   int64      `json:"bytes,omitempty"`
	Millis  int64      `json:"ms,omitempty"`
	IsError bool       `json:"is_error,omitempty"`
	At      time.Time  `json:"at,omitzero"`
	Agg     *ToolStats `json:"agg,omitempty"`
}

// ToolStats is the accumulated usage of a single tool.
type ToolStats struct {
	Tool     string        `json:"tool"`
	Calls    int64         `json:"calls"`
	Errors   int64         `json:"errors"`
	Bytes    int64         `json:"bytes"`
	Elapsed  time.Duration `json:"elapsed"`
	LastUsed time.Time     `json:"last_used"`
}

// OpenStats loads the tool usage store from the given datasource.
//
// The datasource is usually a directory path. The special value ":memory:"
// creates a temporary store (primarily used for tests).
func OpenStats(ds string) (*Stats, error) {
	dir, cleanupDir, err := resolveStoreDir(ds)
	if err != nil {
		return nil, fmt.Errorf("could not resolve store path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create store directory: %w", err)
	}

	s := &Stats{
		path:           filepath.Join(dir, statsFileName),
		lock:           flock.New(filepath.Join(dir, "stats.lock")),
		tools:          make(map[string]ToolStats),
		cleanupTempDir: cleanupDir,
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Stats is an append-only JSONL-backed tool usage store. Every tool call
// appends one event; the in-memory view aggregates per tool and the log is
// periodically compacted down to one aggregate event per tool.
type Stats struct {
	mu             sync.RWMutex
	path           string
	lock           *flock.Flock
	tools          map[string]ToolStats
	ops            int
	cleanupTempDir string
}

// Close releases temporary resources (used for :memory: stores).
func (s *Stats) Close() error {
	if s.cleanupTempDir == "" {
		return nil
	}
	if err := os.RemoveAll(s.cleanupTempDir); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Record registers one tool call.
func (s *Stats) Record(tool string, bytes int64, elapsed time.Duration, isError bool) error {
	if strings.TrimSpace(tool) == "" {
		return fmt.Errorf("Record: %w", errors.New("empty tool name"))
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyCall(tool, bytes, elapsed, isError, now)
	if err := s.appendEventLocked(statsEvent{
		Op:      "call",
		Tool:    tool,
		Bytes:   bytes,
		Millis:  elapsed.Milliseconds(),
		IsError: isError,
		At:      now,
	}); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	if err := s.compactIfNeededLocked(); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

// List returns per-tool stats sorted by call count, most used first.
func (s *Stats) List() []ToolStats {
	s.mu.RLock()
	out := make([]ToolStats, 0, len(s.tools))
	for _, st := range s.tools {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls == out[j].Calls {
			return out[i].Tool < out[j].Tool
		}
		return out[i].Calls > out[j].Calls
	})
	return out
}

func resolveStoreDir(ds string) (dir string, cleanupDir string, err error) {
	if ds == ":memory:" {
		tempDir, err := os.MkdirTemp("", "seochat-stats-*")
		if err != nil {
			return "", "", fmt.Errorf("could not create temp stats directory: %w", err)
		}
		return tempDir, tempDir, nil
	}
	return ds, "", nil
}

func (s *Stats) applyCall(tool string, bytes int64, elapsed time.Duration, isError bool, at time.Time) {
	st := s.tools[tool]
	st.Tool = tool
	st.Calls++
	if isError {
		st.Errors++
	}
	st.Bytes += bytes
	st.Elapsed += elapsed
	if at.After(st.LastUsed) {
		st.LastUsed = at
	}
	s.tools[tool] = st
}

func (s *Stats) load() error {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return fmt.Errorf("could not lock stats file: %w", err)
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not open stats file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var evt statsEvent
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			return fmt.Errorf("could not parse stats event: %w", err)
		}
		if err := s.applyEvent(&evt); err != nil {
			return err
		}
		s.ops++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not scan stats file: %w", err)
	}

	return nil
}

func (s *Stats) applyEvent(evt *statsEvent) error {
	switch evt.Op {
	case "call":
		if strings.TrimSpace(evt.Tool) == "" {
			return fmt.Errorf("invalid call event: empty tool")
		}
		s.applyCall(evt.Tool, evt.Bytes, time.Duration(evt.Millis)*time.Millisecond, evt.IsError, evt.At)
	case "agg":
		if evt.Agg == nil || strings.TrimSpace(evt.Agg.Tool) == "" {
			return fmt.Errorf("invalid agg event: missing tool stats")
		}
		s.tools[evt.Agg.Tool] = *evt.Agg
	default:
		return fmt.Errorf("invalid stats event op: %q", evt.Op)
	}
	return nil
}

func (s *Stats) appendEventLocked(evt statsEvent) error {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return fmt.Errorf("lock stats: %w", err)
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open stats: %w", err)
	}
	defer func() { _ = file.Close() }()

	bts, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal stats event: %w", err)
	}
	bts = append(bts, '\n')
	if _, err := file.Write(bts); err != nil {
		return fmt.Errorf("write stats event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync stats: %w", err)
	}

	s.ops++
	return nil
}

func (s *Stats) compactIfNeededLocked() error {
	if s.ops < compactMinOps {
		return nil
	}
	if len(s.tools) > 0 && s.ops < len(s.tools)*compactScaleFactor {
		return nil
	}
	return s.compactLocked()
}

func (s *Stats) compactLocked() error {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return fmt.Errorf("lock stats: %w", err)
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	items := make([]ToolStats, 0, len(s.tools))
	for _, st := range s.tools {
		items = append(items, st)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Tool < items[j].Tool })

	tmpPath := s.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open compacted stats: %w", err)
	}

	enc := json.NewEncoder(file)
	for _, st := range items {
		event := statsEvent{Op: "agg", Agg: &st}
		if err := enc.Encode(event); err != nil {
			_ = file.Close()
			return fmt.Errorf("write compacted stats: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync compacted stats: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close compacted stats: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace stats with compacted version: %w", err)
	}
	_ = syncDir(filepath.Dir(s.path))

	s.ops = len(s.tools)
	return nil
}

func syncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	return d.Sync()
}
