// handlers_issues.go - Validation issue handlers
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/correction"
)

// IssueHandlerImpl implements the IssueHandler interface
type IssueHandlerImpl struct {
	tracker *correction.Tracker
}

// NewIssueHandler creates a new issue handler instance
func NewIssueHandler(tracker *correction.Tracker) IssueHandler {
	return &IssueHandlerImpl{tracker: tracker}
}

// HandleListIssues returns the tracked issues, optionally filtered by
// file
func (h *IssueHandlerImpl) HandleListIssues(c echo.Context) error {
	if file := c.QueryParam("file"); file != "" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"issues": h.tracker.IssuesForFile(file),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"issues":      h.tracker.Issues(),
		"allResolved": h.tracker.AllResolved(),
	})
}

// HandleIssueCounts returns the status and severity tallies
func (h *IssueHandlerImpl) HandleIssueCounts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tracker.Counts())
}

type correctRequest struct {
	Value string `json:"value"`
}

// HandleMarkCorrected resolves an issue with an optional corrected
// value
func (h *IssueHandlerImpl) HandleMarkCorrected(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError("id")
	}

	var req correctRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := h.tracker.MarkCorrected(id, req.Value); err != nil {
		return issueError(err, id)
	}
	issue, _ := h.tracker.Get(id)
	return c.JSON(http.StatusOK, issue)
}

// HandleMarkIgnored resolves an issue without a correction
func (h *IssueHandlerImpl) HandleMarkIgnored(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError("id")
	}

	if err := h.tracker.MarkIgnored(id); err != nil {
		return issueError(err, id)
	}
	issue, _ := h.tracker.Get(id)
	return c.JSON(http.StatusOK, issue)
}

func issueError(err error, id int) *APIError {
	if errors.Is(err, correction.ErrUnknownIssue) {
		return NewNotFoundError("issue", strconv.Itoa(id))
	}
	return NewInternalError("failed to update issue", err)
}
