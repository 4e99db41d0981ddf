// Package correction tracks the issue list produced by a validation
// run and the operator's resolution of each issue.
package correction

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vatwizard/backend/internal/models"
)

// ErrUnknownIssue is returned for operations on an issue id the tracker
// does not hold.
var ErrUnknownIssue = errors.New("issue not found")

// Counts aggregates the tracked issues for display.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Corrected int `json:"corrected"`
	Ignored   int `json:"ignored"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
}

// Tracker holds the issues of the current validation run.
type Tracker struct {
	mu     sync.RWMutex
	issues map[int]*models.ValidationIssue
}

// NewTracker creates an empty issue tracker.
func NewTracker() *Tracker {
	return &Tracker{issues: make(map[int]*models.ValidationIssue)}
}

// Replace swaps in the issue list of a fresh validation run. Prior
// resolutions are discarded along with the prior issues.
func (t *Tracker) Replace(issues []models.ValidationIssue) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.issues = make(map[int]*models.ValidationIssue, len(issues))
	for i := range issues {
		issue := issues[i]
		t.issues[issue.ID] = &issue
	}
	fmt.Printf("[Correction] Loaded %d issues\n", len(issues))
}

// Issues returns all tracked issues ordered by id.
func (t *Tracker) Issues() []models.ValidationIssue {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ValidationIssue, 0, len(t.issues))
	for _, issue := range t.issues {
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IssuesForFile returns the tracked issues of one file, ordered by id.
func (t *Tracker) IssuesForFile(fileName string) []models.ValidationIssue {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []models.ValidationIssue
	for _, issue := range t.issues {
		if issue.FileName == fileName {
			out = append(out, *issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a single issue by id.
func (t *Tracker) Get(id int) (models.ValidationIssue, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	issue, ok := t.issues[id]
	if !ok {
		return models.ValidationIssue{}, false
	}
	return *issue, true
}

// MarkCorrected resolves a pending issue, optionally recording the
// corrected value. A no-op unless the issue is still pending.
func (t *Tracker) MarkCorrected(id int, value string) error {
	return t.resolve(id, models.IssueCorrected, value)
}

// MarkIgnored resolves a pending issue without a correction. A no-op
// unless the issue is still pending.
func (t *Tracker) MarkIgnored(id int) error {
	return t.resolve(id, models.IssueIgnored, "")
}

// resolve applies the one-way status transition: a resolved issue never
// changes status again, so a repeated or crossing mark leaves it as is.
func (t *Tracker) resolve(id int, target models.IssueStatus, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	issue, ok := t.issues[id]
	if !ok {
		return ErrUnknownIssue
	}
	if issue.Status != models.IssuePending {
		return nil
	}
	issue.Status = target
	if target == models.IssueCorrected && value != "" {
		issue.SuggestedValue = value
	}
	return nil
}

// DropFile removes all issues belonging to a file. Called when the file
// itself leaves the session.
func (t *Tracker) DropFile(fileName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, issue := range t.issues {
		if issue.FileName == fileName {
			delete(t.issues, id)
			removed++
		}
	}
	return removed
}

// AllResolved reports whether no issue is still pending. True for an
// empty tracker: a clean validation run has nothing to resolve.
func (t *Tracker) AllResolved() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, issue := range t.issues {
		if issue.Status == models.IssuePending {
			return false
		}
	}
	return true
}

// Counts tallies the tracked issues by status and severity.
func (t *Tracker) Counts() Counts {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var c Counts
	for _, issue := range t.issues {
		c.Total++
		switch issue.Status {
		case models.IssuePending:
			c.Pending++
		case models.IssueCorrected:
			c.Corrected++
		case models.IssueIgnored:
			c.Ignored++
		}
		switch issue.Severity {
		case models.SeverityHigh:
			c.High++
		case models.SeverityMedium:
			c.Medium++
		case models.SeverityLow:
			c.Low++
		}
	}
	return c
}
