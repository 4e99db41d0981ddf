// handlers_review.go - Manual-review delivery handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/review"
	"github.com/vatwizard/backend/internal/session"
)

// ReviewHandlerImpl implements the ReviewHandler interface
type ReviewHandlerImpl struct {
	coordinator *review.Coordinator
}

// NewReviewHandler creates a new review handler instance
func NewReviewHandler(coordinator *review.Coordinator) ReviewHandler {
	return &ReviewHandlerImpl{coordinator: coordinator}
}

type deliveryRequest struct {
	FileName string `json:"fileName"`
	Email    string `json:"email"`
}

// HandleRequestDelivery attaches a delivery address to a file flagged
// for manual review
func (h *ReviewHandlerImpl) HandleRequestDelivery(c echo.Context) error {
	var req deliveryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.FileName == "" {
		return NewValidationError("fileName")
	}

	outcome, err := h.coordinator.RequestDelivery(c.Request().Context(), req.FileName, req.Email)
	if err != nil {
		if errors.Is(err, review.ErrInvalidEmail) {
			return NewValidationError("email")
		}
		if errors.Is(err, session.ErrUnknownFile) {
			return NewNotFoundError("validation session for file", req.FileName)
		}
		return NewInternalError("failed to request delivery", err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// HandlePendingDelivery returns the registered address for a file
func (h *ReviewHandlerImpl) HandlePendingDelivery(c echo.Context) error {
	name := c.Param("name")
	email, ok := h.coordinator.PendingFor(name)
	if !ok {
		return NewNotFoundError("pending delivery for file", name)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fileName": name,
		"email":    email,
	})
}
