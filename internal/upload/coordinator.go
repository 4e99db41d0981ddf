// Package upload admits operator files into the session, simulates
// per-file transfer progress and hands the combined batch to the
// validation service exactly once.
package upload

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/validate"
)

// Status represents the coordinator's batch state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusValidating Status = "validating"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// MaxFileSize is the default admission cap per file.
const MaxFileSize = 5 * 1024 * 1024

// DefaultExtensions is the default admission whitelist, matched case
// insensitively against the file name extension.
var DefaultExtensions = []string{".csv", ".txt", ".xls", ".xlsx"}

// IncomingFile is an operator-provided candidate for admission.
type IncomingFile struct {
	Name string
	Data []byte
}

// AdmissionResult reports the per-file outcome of one Admit call.
// Rejections never abort admission of valid siblings.
type AdmissionResult struct {
	Admitted []models.FileRecord   `json:"admitted"`
	Rejected []models.RejectedFile `json:"rejected"`
}

// Validator is the slice of the validation adapter the coordinator
// needs.
type Validator interface {
	Validate(ctx context.Context, files []validate.FilePayload) (*validate.Result, error)
}

// ResultHandler receives the outcome of a validation run. Called from
// the coordinator's submission goroutine.
type ResultHandler func(result *validate.Result, err error)

// Coordinator owns the raw bytes of admitted files between admission
// and successful validation. It is the session store's ByteHolder.
type Coordinator struct {
	mu        sync.Mutex
	store     *session.Store
	validator Validator
	onResult  ResultHandler

	bytes     map[string][]byte
	status    Status
	lastError string
	submitted bool

	tick      time.Duration
	increment func() float64
	maxSize   int64
	allowed   map[string]bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTick overrides the progress tick interval.
func WithTick(d time.Duration) Option {
	return func(c *Coordinator) { c.tick = d }
}

// WithIncrement overrides the per-tick progress increment source.
func WithIncrement(f func() float64) Option {
	return func(c *Coordinator) { c.increment = f }
}

// WithMaxFileSize overrides the per-file admission size cap.
func WithMaxFileSize(n int64) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithAllowedExtensions overrides the admission extension whitelist.
func WithAllowedExtensions(exts []string) Option {
	return func(c *Coordinator) {
		if len(exts) == 0 {
			return
		}
		c.allowed = extensionSet(exts)
	}
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// NewCoordinator creates an upload coordinator bound to the session
// store and validation adapter.
func NewCoordinator(store *session.Store, validator Validator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		validator: validator,
		bytes:     make(map[string][]byte),
		status:    StatusIdle,
		tick:      200 * time.Millisecond,
		increment: func() float64 { return rand.Float64() * 30 },
		maxSize:   MaxFileSize,
		allowed:   extensionSet(DefaultExtensions),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetResultHandler registers the callback invoked after each validation
// run. Must be called before the first Admit.
func (c *Coordinator) SetResultHandler(h ResultHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = h
}

// Admit filters the candidates against the extension whitelist, the
// size cap and duplicate names, registers the survivors in the session
// and starts their progress simulation.
func (c *Coordinator) Admit(files []IncomingFile) AdmissionResult {
	var res AdmissionResult

	for _, f := range files {
		if reason, ok := c.checkAdmissible(f); !ok {
			res.Rejected = append(res.Rejected, models.RejectedFile{Name: f.Name, Reason: reason})
			continue
		}

		rec := models.FileRecord{
			Name:       f.Name,
			SizeBytes:  int64(len(f.Data)),
			MimeHint:   mimeHint(f.Name),
			AdmittedAt: time.Now(),
		}
		if err := c.store.AddFile(rec); err != nil {
			res.Rejected = append(res.Rejected, models.RejectedFile{Name: f.Name, Reason: err.Error()})
			continue
		}

		c.mu.Lock()
		c.bytes[f.Name] = f.Data
		c.status = StatusUploading
		c.submitted = false
		c.mu.Unlock()

		res.Admitted = append(res.Admitted, rec)
		go c.simulateProgress(f.Name)
	}

	fmt.Printf("[Upload] Admitted %d files, rejected %d\n", len(res.Admitted), len(res.Rejected))
	return res
}

// checkAdmissible applies the per-file admission rules.
func (c *Coordinator) checkAdmissible(f IncomingFile) (string, bool) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !c.allowed[ext] {
		return fmt.Sprintf("unsupported file type %q, allowed: %s", ext, c.allowedList()), false
	}
	if int64(len(f.Data)) > c.maxSize {
		return fmt.Sprintf("file exceeds the %d MB limit", c.maxSize/(1024*1024)), false
	}
	if c.store.HasFile(f.Name) {
		return "a file with this name is already part of the session", false
	}
	return "", true
}

// allowedList renders the whitelist for rejection messages.
func (c *Coordinator) allowedList() string {
	exts := make([]string, 0, len(c.allowed))
	for ext := range c.allowed {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

func mimeHint(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// simulateProgress drives a file from 0 to 100 in randomized steps.
// The final tick to 100 may trigger the combined submission.
func (c *Coordinator) simulateProgress(name string) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	var pct float64
	for range ticker.C {
		if !c.store.HasFile(name) {
			// Removed mid-upload.
			return
		}
		pct += c.increment()
		if pct >= 100 {
			pct = 100
		}
		if err := c.store.SetProgress(name, pct); err != nil {
			return
		}
		if pct >= 100 {
			break
		}
	}

	if c.store.AllUploaded() {
		c.submitBatch()
	}
}

// submitBatch performs the combined validation submission. Guarded so
// only one goroutine per batch actually submits.
func (c *Coordinator) submitBatch() {
	c.mu.Lock()
	if c.submitted || c.status == StatusValidating {
		c.mu.Unlock()
		return
	}
	c.submitted = true
	c.status = StatusValidating

	payloads := make([]validate.FilePayload, 0, len(c.bytes))
	for name, data := range c.bytes {
		payloads = append(payloads, validate.FilePayload{Name: name, Data: data})
	}
	handler := c.onResult
	c.mu.Unlock()

	fmt.Printf("[Upload] All files at 100%%, submitting batch of %d\n", len(payloads))

	result, err := c.validator.Validate(context.Background(), payloads)

	c.mu.Lock()
	if err != nil {
		// Bytes stay held so the operator can retry the same batch.
		c.status = StatusError
		c.lastError = err.Error()
		c.submitted = false
		c.mu.Unlock()
		fmt.Printf("[Upload] Validation failed: %v\n", err)
		if handler != nil {
			handler(nil, err)
		}
		return
	}
	c.status = StatusComplete
	c.lastError = ""
	c.mu.Unlock()

	for name, id := range result.SessionIDs {
		if err := c.store.SetSessionID(name, id); err != nil {
			fmt.Printf("[Upload] Could not record session id for %s: %v\n", name, err)
		}
	}

	// Mappings recorded, the raw bytes have served their purpose.
	c.mu.Lock()
	c.bytes = make(map[string][]byte)
	c.mu.Unlock()

	fmt.Printf("[Upload] Validation complete: %d issues, %d session ids\n",
		len(result.Issues), len(result.SessionIDs))
	if handler != nil {
		handler(result, nil)
	}
}

// Retry re-submits the held batch after a failed validation run.
func (c *Coordinator) Retry() error {
	c.mu.Lock()
	if c.status != StatusError {
		c.mu.Unlock()
		return fmt.Errorf("no failed validation to retry")
	}
	if len(c.bytes) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("no file contents held, upload the files again")
	}
	c.mu.Unlock()

	go c.submitBatch()
	return nil
}

// Remove drops a file from the session and releases its bytes. Safe to
// call mid-upload; the progress goroutine notices and stops.
func (c *Coordinator) Remove(name string) error {
	if err := c.store.RemoveFile(name); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.bytes, name)
	if len(c.bytes) == 0 && c.status == StatusUploading {
		c.status = StatusIdle
	}
	c.mu.Unlock()

	fmt.Printf("[Upload] Removed %s\n", name)
	return nil
}

// HeldCount reports how many admitted files still have live raw bytes.
func (c *Coordinator) HeldCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bytes)
}

// Status returns the current batch state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the message of the most recent failed validation.
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}
