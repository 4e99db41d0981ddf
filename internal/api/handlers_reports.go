// handlers_reports.go - Report retrieval handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/report"
	"github.com/vatwizard/backend/internal/session"
)

// ReportHandlerImpl implements the ReportHandler interface
type ReportHandlerImpl struct {
	store     *session.Store
	retriever *report.Retriever
	reports   *report.LocalStore
}

// NewReportHandler creates a new report handler instance
func NewReportHandler(store *session.Store, retriever *report.Retriever, reports *report.LocalStore) ReportHandler {
	return &ReportHandlerImpl{
		store:     store,
		retriever: retriever,
		reports:   reports,
	}
}

type fetchRequest struct {
	FileName string `json:"fileName"`
	Email    string `json:"email"`
}

// HandleFetchReport downloads one file's report
func (h *ReportHandlerImpl) HandleFetchReport(c echo.Context) error {
	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.FileName == "" {
		return NewValidationError("fileName")
	}
	if !h.store.HasFile(req.FileName) {
		return NewNotFoundError("file", req.FileName)
	}

	sessionID, _ := h.store.SessionID(req.FileName)
	outcome := h.retriever.FetchOne(c.Request().Context(), report.Request{
		FileName:  req.FileName,
		SessionID: sessionID,
		Email:     req.Email,
	})
	return c.JSON(http.StatusOK, outcome)
}

// HandleFetchAllReports downloads the reports of every file with a
// recorded validation session and returns the aggregate
func (h *ReportHandlerImpl) HandleFetchAllReports(c echo.Context) error {
	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	var reqs []report.Request
	sessions := h.store.SessionIDs()
	for _, f := range h.store.Files() {
		reqs = append(reqs, report.Request{
			FileName:  f.Name,
			SessionID: sessions[f.Name],
			Email:     req.Email,
		})
	}
	if len(reqs) == 0 {
		return NewConflictError("no files to fetch reports for")
	}

	summary := h.retriever.FetchAll(c.Request().Context(), reqs)
	return c.JSON(http.StatusOK, summary)
}

// HandleFetchAnnotated downloads the issue-annotated copy of a file
func (h *ReportHandlerImpl) HandleFetchAnnotated(c echo.Context) error {
	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.FileName == "" {
		return NewValidationError("fileName")
	}

	sessionID, ok := h.store.SessionID(req.FileName)
	if !ok {
		return NewNotFoundError("validation session for file", req.FileName)
	}

	outcome := h.retriever.FetchAnnotated(c.Request().Context(), report.Request{
		FileName:  req.FileName,
		SessionID: sessionID,
	})
	return c.JSON(http.StatusOK, outcome)
}

// HandleListSaved returns the saved report files
func (h *ReportHandlerImpl) HandleListSaved(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reports": h.reports.List(),
	})
}

// HandleDownloadSaved serves a saved report file
func (h *ReportHandlerImpl) HandleDownloadSaved(c echo.Context) error {
	id := c.Param("id")
	rep, err := h.reports.Get(id)
	if err != nil {
		return NewNotFoundError("report", id)
	}
	path, err := h.reports.Path(id)
	if err != nil {
		return NewNotFoundError("report", id)
	}
	return c.Attachment(path, rep.Name)
}
