package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragequit/pkg/types"
)

// Manager provides high-level operations over stored runs
type Manager struct {
	storage *Storage
}

// Stats aggregates every stored run
type Stats struct {
	Runs          int       `json:"runs"`
	Completed     int       `json:"completed"`
	Aborted       int       `json:"aborted"`
	TokensSwapped int       `json:"tokens_swapped"`
	TokensFailed  int       `json:"tokens_failed"`
	Recorded      int       `json:"recorded"`
	LastRun       time.Time `json:"last_run,omitempty"`
}

// NewManager creates a new history manager
func NewManager(storagePath string) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	return &Manager{
		storage: storage,
	}, nil
}

// Record stores a finished run, assigning an ID when it has none
func (m *Manager) Record(run *types.RunResult) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	return m.storage.Create(run)
}

// Get retrieves a run by ID or by a unique ID prefix
func (m *Manager) Get(id string) (*types.RunResult, error) {
	if run, err := m.storage.Get(id); err == nil {
		return run, nil
	}

	var match *types.RunResult
	for _, run := range m.storage.List() {
		if !strings.HasPrefix(run.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run ID prefix '%s' is ambiguous", id)
		}
		match = run
	}
	if match == nil {
		return nil, fmt.Errorf("run '%s' not found", id)
	}
	return match, nil
}

// Delete removes a run by ID or unique ID prefix and returns its full ID
func (m *Manager) Delete(id string) (string, error) {
	run, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if err := m.storage.Delete(run.ID); err != nil {
		return "", err
	}
	return run.ID, nil
}

// List returns runs newest first, at most limit when limit > 0
func (m *Manager) List(limit int) []*types.RunResult {
	runs := m.storage.List()
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// Stats summarises all stored runs
func (m *Manager) Stats() Stats {
	var stats Stats
	for _, run := range m.storage.List() {
		stats.Runs++
		switch run.State {
		case types.StateComplete:
			stats.Completed++
		case types.StateAborted:
			stats.Aborted++
		}
		stats.TokensSwapped += run.SwappedCount()
		stats.TokensFailed += run.FailedCount()
		if run.Recorded {
			stats.Recorded++
		}
		if run.StartedAt.After(stats.LastRun) {
			stats.LastRun = run.StartedAt
		}
	}
	return stats
}
