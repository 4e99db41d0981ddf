// handlers_session.go - Session recovery handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/wizard"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	recovery   *session.Recovery
	store      *session.Store
	controller *wizard.Controller
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(recovery *session.Recovery, store *session.Store, controller *wizard.Controller) SessionHandler {
	return &SessionHandlerImpl{
		recovery:   recovery,
		store:      store,
		controller: controller,
	}
}

// HandleRecoveryStatus reports whether a previous session can be
// resumed
func (h *SessionHandlerImpl) HandleRecoveryStatus(c echo.Context) error {
	info, ok := h.recovery.Detect()
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"recoverable": false,
		})
	}
	staleCleared, err := h.store.ClearStalePayment()
	if err != nil {
		return NewInternalError("failed to check payment state", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recoverable":         true,
		"info":                info,
		"stalePaymentCleared": staleCleared,
	})
}

// HandleResume keeps the persisted session and places the wizard at
// the stage it should continue at
func (h *SessionHandlerImpl) HandleResume(c echo.Context) error {
	stage := h.recovery.Resume()
	h.controller.Set(stage)
	return c.JSON(http.StatusOK, stageView(stage))
}

// HandleDiscard clears the persisted session and returns to Upload
func (h *SessionHandlerImpl) HandleDiscard(c echo.Context) error {
	stage, err := h.recovery.Discard()
	if err != nil {
		return NewInternalError("failed to discard session", err)
	}
	h.controller.Set(stage)
	return c.JSON(http.StatusOK, stageView(stage))
}
