// handlers_wizard.go - Stage navigation handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/wizard"
)

// WizardHandlerImpl implements the WizardHandler interface
type WizardHandlerImpl struct {
	controller *wizard.Controller
	store      *session.Store
}

// NewWizardHandler creates a new wizard handler instance
func NewWizardHandler(controller *wizard.Controller, store *session.Store) WizardHandler {
	return &WizardHandlerImpl{
		controller: controller,
		store:      store,
	}
}

func stageView(s models.Stage) map[string]interface{} {
	return map[string]interface{}{
		"stage": int(s),
		"name":  s.Name(),
	}
}

// HandleCurrentStage returns the active wizard stage
func (h *WizardHandlerImpl) HandleCurrentStage(c echo.Context) error {
	return c.JSON(http.StatusOK, stageView(h.controller.Current()))
}

// HandleAdvance moves forward through the current stage's exit guard
func (h *WizardHandlerImpl) HandleAdvance(c echo.Context) error {
	stage, err := h.controller.Advance()
	if err != nil {
		if errors.Is(err, wizard.ErrAtFinalStage) {
			return NewConflictError(err.Error())
		}
		return NewStageBlockedError(err)
	}
	return c.JSON(http.StatusOK, stageView(stage))
}

// HandleRetreat moves one stage back
func (h *WizardHandlerImpl) HandleRetreat(c echo.Context) error {
	return c.JSON(http.StatusOK, stageView(h.controller.Retreat()))
}

type jumpRequest struct {
	Stage int `json:"stage"`
}

// HandleJump moves directly to a stage within the allowed range
func (h *WizardHandlerImpl) HandleJump(c echo.Context) error {
	var req jumpRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	stage, err := h.controller.JumpTo(models.Stage(req.Stage))
	if err != nil {
		if errors.Is(err, wizard.ErrSkipAhead) {
			return NewConflictError(err.Error())
		}
		return NewStageBlockedError(err)
	}
	return c.JSON(http.StatusOK, stageView(stage))
}

// HandleRestore sets the stage from the route's step parameter
func (h *WizardHandlerImpl) HandleRestore(c echo.Context) error {
	stage := h.controller.Restore(c.QueryParam("step"))
	return c.JSON(http.StatusOK, stageView(stage))
}

// HandleReset starts a new process: clears the session and returns to
// the Upload stage
func (h *WizardHandlerImpl) HandleReset(c echo.Context) error {
	stage, err := h.controller.Reset()
	if err != nil {
		return NewInternalError("failed to reset session", err)
	}
	return c.JSON(http.StatusOK, stageView(stage))
}

// HandlePaymentInitiate records that a checkout was started
func (h *WizardHandlerImpl) HandlePaymentInitiate(c echo.Context) error {
	if err := h.store.MarkPaymentInitiated(); err != nil {
		return NewInternalError("failed to record payment start", err)
	}
	return c.NoContent(http.StatusAccepted)
}

// HandlePaymentComplete records the payment collaborator's confirmation
func (h *WizardHandlerImpl) HandlePaymentComplete(c echo.Context) error {
	if err := h.store.SetPaymentCompleted(true); err != nil {
		return NewInternalError("failed to record payment", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"paymentCompleted": true,
	})
}
