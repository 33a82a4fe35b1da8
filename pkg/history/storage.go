package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ragequit/pkg/types"
)

const (
	DefaultStorageFileName = ".ragequit-history.json"
)

// Storage persists run results in a single JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	runs     map[string]*types.RunResult
}

// historyFile represents the JSON structure on disk
type historyFile struct {
	Runs map[string]*types.RunResult `json:"runs"`
}

// NewStorage creates a new storage instance, loading the file if it exists
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		runs:     make(map[string]*types.RunResult),
	}

	if err := storage.load(); err != nil {
		// a missing file is created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return storage, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	s.runs = file.Runs
	if s.runs == nil {
		s.runs = make(map[string]*types.RunResult)
	}

	return nil
}

// saveLocked writes all runs to disk; the caller holds the write lock
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(historyFile{Runs: s.runs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Create adds a run to storage
func (s *Storage) Create(run *types.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run has no ID")
	}
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run '%s' already exists", run.ID)
	}

	s.runs[run.ID] = run
	if err := s.saveLocked(); err != nil {
		delete(s.runs, run.ID)
		return err
	}
	return nil
}

// Get retrieves a run by ID
func (s *Storage) Get(id string) (*types.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run '%s' not found", id)
	}

	return run, nil
}

// Delete removes a run from storage
func (s *Storage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("run '%s' not found", id)
	}

	delete(s.runs, id)
	if err := s.saveLocked(); err != nil {
		s.runs[id] = run
		return err
	}
	return nil
}

// List returns all runs in no particular order
func (s *Storage) List() []*types.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*types.RunResult, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}

	return runs
}
