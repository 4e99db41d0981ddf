// Package wizard is the 4-stage stepper driving the compliance
// workflow: Upload, Correction, Payment, Overview.
package wizard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vatwizard/backend/internal/correction"
	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/session"
)

// Exit-guard errors. Each names the precondition blocking the forward
// transition so the caller can surface an actionable message.
var (
	ErrUploadsIncomplete = errors.New("all files must finish uploading before continuing")
	ErrIssuesPending     = errors.New("all validation issues must be corrected or ignored before continuing")
	ErrPaymentRequired   = errors.New("payment must be completed before continuing")
	ErrAtFinalStage      = errors.New("already at the final stage")
	ErrSkipAhead         = errors.New("cannot skip ahead past the next stage")
)

// Controller enforces the wizard's transition rules. Forward moves are
// guarded by the current stage's exit condition, backward moves are
// always free.
type Controller struct {
	mu      sync.Mutex
	stage   models.Stage
	store   *session.Store
	tracker *correction.Tracker
}

// NewController creates a controller starting at the Upload stage.
func NewController(store *session.Store, tracker *correction.Tracker) *Controller {
	return &Controller{
		stage:   models.StageUpload,
		store:   store,
		tracker: tracker,
	}
}

// Current returns the active stage.
func (c *Controller) Current() models.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Advance moves to the next stage if the current stage's exit guard
// holds. On failure the stage is unchanged and the guard error names
// the blocking precondition.
func (c *Controller) Advance() (models.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage == models.StageOverview {
		return c.stage, ErrAtFinalStage
	}
	if err := c.exitGuard(c.stage); err != nil {
		return c.stage, err
	}
	c.stage++
	fmt.Printf("[Wizard] Advanced to stage %d (%s)\n", int(c.stage), c.stage.Name())
	return c.stage, nil
}

// Retreat moves one stage back. At Upload it stays put.
func (c *Controller) Retreat() models.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage > models.StageUpload {
		c.stage--
		fmt.Printf("[Wizard] Returned to stage %d (%s)\n", int(c.stage), c.stage.Name())
	}
	return c.stage
}

// JumpTo moves directly to a stage. Any stage at or before the current
// one is always reachable; the next stage is reachable through the
// current stage's exit guard; anything further is refused.
func (c *Controller) JumpTo(target models.Stage) (models.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !target.Valid() {
		return c.stage, fmt.Errorf("unknown stage %d", int(target))
	}
	switch {
	case target <= c.stage:
		c.stage = target
	case target == c.stage+1:
		if err := c.exitGuard(c.stage); err != nil {
			return c.stage, err
		}
		c.stage = target
	default:
		return c.stage, ErrSkipAhead
	}
	fmt.Printf("[Wizard] Jumped to stage %d (%s)\n", int(c.stage), c.stage.Name())
	return c.stage, nil
}

// Restore sets the stage from a raw route parameter at wizard mount.
// Malformed or out-of-range values fall back to Upload.
func (c *Controller) Restore(raw string) models.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stage = models.ParseStage(raw)
	fmt.Printf("[Wizard] Restored stage %d (%s)\n", int(c.stage), c.stage.Name())
	return c.stage
}

// Set places the wizard at a stage without guard checks. Used by
// session recovery, which has already decided where to resume.
func (c *Controller) Set(stage models.Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stage.Valid() {
		c.stage = stage
	}
}

// Reset clears the whole session and returns the wizard to Upload.
// This is the only path from a later stage back into a fresh Upload.
func (c *Controller) Reset() (models.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Reset(); err != nil {
		return c.stage, fmt.Errorf("resetting session: %w", err)
	}
	c.tracker.Replace(nil)
	c.stage = models.StageUpload
	fmt.Printf("[Wizard] Session reset, back to stage 1\n")
	return c.stage, nil
}

// exitGuard checks the forward precondition of a stage. Callers hold
// the lock.
func (c *Controller) exitGuard(stage models.Stage) error {
	switch stage {
	case models.StageUpload:
		if !c.store.AllUploaded() {
			return ErrUploadsIncomplete
		}
	case models.StageCorrection:
		if !c.tracker.AllResolved() {
			return ErrIssuesPending
		}
	case models.StagePayment:
		if !c.store.PaymentCompleted() {
			return ErrPaymentRequired
		}
	}
	return nil
}
