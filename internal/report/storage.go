package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SavedReport describes one report file landed on disk.
type SavedReport struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourceFile string    `json:"sourceFile"`
	Size       int64     `json:"size"`
	SavedAt    time.Time `json:"savedAt"`
}

// Saver is the slice of report storage the retriever needs.
type Saver interface {
	Save(name, sourceFile string, r io.Reader) (*SavedReport, error)
}

// LocalStore keeps downloaded reports on the local filesystem, keyed
// by a generated id so display names never collide on disk.
type LocalStore struct {
	mu      sync.RWMutex
	dir     string
	reports map[string]*SavedReport
}

// NewLocalStore creates a report store under dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		reports: make(map[string]*SavedReport),
	}, nil
}

// Save lands a report on disk and registers its metadata.
func (s *LocalStore) Save(name, sourceFile string, r io.Reader) (*SavedReport, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing report file: %w", err)
	}

	rep := &SavedReport{
		ID:         id,
		Name:       name,
		SourceFile: sourceFile,
		Size:       size,
		SavedAt:    time.Now(),
	}

	s.mu.Lock()
	s.reports[id] = rep
	s.mu.Unlock()

	fmt.Printf("[Report] Saved %s (%d bytes) for %s\n", name, size, sourceFile)
	return rep, nil
}

// Get retrieves report metadata by id.
func (s *LocalStore) Get(id string) (*SavedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rep, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report not found: %s", id)
	}
	return rep, nil
}

// List returns saved reports, most recent first.
func (s *LocalStore) List() []*SavedReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*SavedReport, 0, len(s.reports))
	for _, rep := range s.reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out
}

// Path returns the on-disk location of a saved report.
func (s *LocalStore) Path(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.reports[id]; !ok {
		return "", fmt.Errorf("report not found: %s", id)
	}
	return filepath.Join(s.dir, id), nil
}

// Delete removes a saved report from disk and the registry.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("report not found: %s", id)
	}
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting report file: %w", err)
	}
	delete(s.reports, id)
	return nil
}
