// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// FileHandler handles file admission and upload tracking operations
type FileHandler interface {
	HandleAdmitFiles(c echo.Context) error
	HandleListFiles(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleUploadProgress(c echo.Context) error
	HandleUploadStatus(c echo.Context) error
	HandleRetryValidation(c echo.Context) error
}

// WizardHandler handles stage navigation operations
type WizardHandler interface {
	HandleCurrentStage(c echo.Context) error
	HandleAdvance(c echo.Context) error
	HandleRetreat(c echo.Context) error
	HandleJump(c echo.Context) error
	HandleRestore(c echo.Context) error
	HandleReset(c echo.Context) error
	HandlePaymentInitiate(c echo.Context) error
	HandlePaymentComplete(c echo.Context) error
}

// IssueHandler handles validation issue operations
type IssueHandler interface {
	HandleListIssues(c echo.Context) error
	HandleIssueCounts(c echo.Context) error
	HandleMarkCorrected(c echo.Context) error
	HandleMarkIgnored(c echo.Context) error
}

// ReportHandler handles report retrieval operations
type ReportHandler interface {
	HandleFetchReport(c echo.Context) error
	HandleFetchAllReports(c echo.Context) error
	HandleFetchAnnotated(c echo.Context) error
	HandleListSaved(c echo.Context) error
	HandleDownloadSaved(c echo.Context) error
}

// ReviewHandler handles manual-review delivery operations
type ReviewHandler interface {
	HandleRequestDelivery(c echo.Context) error
	HandlePendingDelivery(c echo.Context) error
}

// SessionHandler handles session recovery operations
type SessionHandler interface {
	HandleRecoveryStatus(c echo.Context) error
	HandleResume(c echo.Context) error
	HandleDiscard(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
