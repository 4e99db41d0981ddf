package upload

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/validate"
)

type fakeValidator struct {
	mu      sync.Mutex
	calls   int
	batches [][]validate.FilePayload
	fail    bool
}

func (f *fakeValidator) Validate(ctx context.Context, files []validate.FilePayload) (*validate.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, files)
	if f.fail {
		return nil, &validate.NetworkError{Err: errors.New("connection refused")}
	}
	ids := make(map[string]string, len(files))
	for _, fp := range files {
		ids[fp.Name] = "sess-" + fp.Name
	}
	return &validate.Result{SessionIDs: ids}, nil
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCoordinator(t *testing.T, v Validator) (*Coordinator, *session.Store, chan error) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	c := NewCoordinator(store, v,
		WithTick(time.Millisecond),
		WithIncrement(func() float64 { return 50 }))
	done := make(chan error, 4)
	c.SetResultHandler(func(result *validate.Result, err error) {
		done <- err
	})
	return c, store, done
}

func waitResult(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for validation result")
		return nil
	}
}

func TestAdmitFiltersAndIsolatesRejections(t *testing.T) {
	v := &fakeValidator{}
	c, store, done := newTestCoordinator(t, v)

	res := c.Admit([]IncomingFile{
		{Name: "good.csv", Data: []byte("a,b")},
		{Name: "image.png", Data: []byte("png")},
		{Name: "huge.xlsx", Data: bytes.Repeat([]byte("x"), MaxFileSize+1)},
	})

	if len(res.Admitted) != 1 || res.Admitted[0].Name != "good.csv" {
		t.Fatalf("Expected only good.csv admitted, got %+v", res.Admitted)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("Expected 2 rejections, got %+v", res.Rejected)
	}
	if !store.HasFile("good.csv") {
		t.Errorf("Admitted file must be in the session")
	}
	if store.HasFile("image.png") || store.HasFile("huge.xlsx") {
		t.Errorf("Rejected files must not enter the session")
	}

	// Duplicate of an admitted name is an explicit rejection
	dup := c.Admit([]IncomingFile{{Name: "good.csv", Data: []byte("again")}})
	if len(dup.Admitted) != 0 || len(dup.Rejected) != 1 {
		t.Errorf("Expected duplicate rejection, got %+v", dup)
	}

	if err := waitResult(t, done); err != nil {
		t.Fatalf("Validation failed: %v", err)
	}
}

func TestAdmitHonorsConfiguredLimits(t *testing.T) {
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	c := NewCoordinator(store, &fakeValidator{},
		WithTick(time.Millisecond),
		WithIncrement(func() float64 { return 100 }),
		WithMaxFileSize(10),
		WithAllowedExtensions([]string{"csv", ".JSON"}))

	res := c.Admit([]IncomingFile{
		{Name: "small.csv", Data: []byte("a,b")},
		{Name: "big.csv", Data: bytes.Repeat([]byte("x"), 11)},
		{Name: "data.json", Data: []byte("{}")},
		{Name: "sheet.xlsx", Data: []byte("x")},
	})

	if len(res.Admitted) != 2 {
		t.Fatalf("Expected small.csv and data.json admitted, got %+v", res.Admitted)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("Expected 2 rejections, got %+v", res.Rejected)
	}
	for _, r := range res.Rejected {
		switch r.Name {
		case "big.csv":
			if !strings.Contains(r.Reason, "exceeds") {
				t.Errorf("Expected size rejection for big.csv, got %q", r.Reason)
			}
		case "sheet.xlsx":
			if !strings.Contains(r.Reason, "unsupported") {
				t.Errorf("Expected type rejection for sheet.xlsx, got %q", r.Reason)
			}
		default:
			t.Errorf("Unexpected rejection: %+v", r)
		}
	}
}

func TestProgressReachesHundredThenSubmitsOnce(t *testing.T) {
	v := &fakeValidator{}
	c, store, done := newTestCoordinator(t, v)

	c.Admit([]IncomingFile{
		{Name: "a.csv", Data: []byte("1")},
		{Name: "b.txt", Data: []byte("2")},
	})

	if err := waitResult(t, done); err != nil {
		t.Fatalf("Validation failed: %v", err)
	}

	if !store.AllUploaded() {
		t.Errorf("Expected both files at 100")
	}
	if got := v.callCount(); got != 1 {
		t.Errorf("Expected exactly one combined submission, got %d", got)
	}
	if len(v.batches[0]) != 2 {
		t.Errorf("Expected both files in one batch, got %d", len(v.batches[0]))
	}

	// Session mappings recorded, bytes released
	if id, _ := store.SessionID("a.csv"); id != "sess-a.csv" {
		t.Errorf("Unexpected session id: %q", id)
	}
	if c.HeldCount() != 0 {
		t.Errorf("Bytes must be released after successful validation")
	}
	if c.Status() != StatusComplete {
		t.Errorf("Expected complete status, got %v", c.Status())
	}
}

func TestFailedValidationKeepsBytesAndRetries(t *testing.T) {
	v := &fakeValidator{fail: true}
	c, store, done := newTestCoordinator(t, v)

	c.Admit([]IncomingFile{{Name: "a.csv", Data: []byte("1")}})

	if err := waitResult(t, done); err == nil {
		t.Fatalf("Expected validation failure")
	}
	if c.Status() != StatusError {
		t.Errorf("Expected error status, got %v", c.Status())
	}
	if c.HeldCount() != 1 {
		t.Errorf("Bytes must be held for retry, held %d", c.HeldCount())
	}
	// Progress is not rolled back
	if !store.AllUploaded() {
		t.Errorf("Failed validation must not roll back progress")
	}

	v.mu.Lock()
	v.fail = false
	v.mu.Unlock()

	if err := c.Retry(); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Retried validation failed: %v", err)
	}
	if id, _ := store.SessionID("a.csv"); id != "sess-a.csv" {
		t.Errorf("Expected session id after retry, got %q", id)
	}
	if c.HeldCount() != 0 {
		t.Errorf("Bytes must be released after retry succeeds")
	}
}

func TestRetryWithoutFailureIsRefused(t *testing.T) {
	c, _, _ := newTestCoordinator(t, &fakeValidator{})
	if err := c.Retry(); err == nil {
		t.Errorf("Retry without a failed run must be refused")
	}
}

func TestRemoveReleasesBytes(t *testing.T) {
	v := &fakeValidator{fail: true}
	c, store, done := newTestCoordinator(t, v)

	c.Admit([]IncomingFile{{Name: "a.csv", Data: []byte("1")}})
	waitResult(t, done)

	if err := c.Remove("a.csv"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if c.HeldCount() != 0 {
		t.Errorf("Remove must release bytes")
	}
	if store.HasFile("a.csv") {
		t.Errorf("Remove must drop the session record")
	}
	if err := c.Remove("a.csv"); !errors.Is(err, session.ErrUnknownFile) {
		t.Errorf("Expected ErrUnknownFile, got %v", err)
	}
}
