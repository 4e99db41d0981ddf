// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/correction"
	"github.com/vatwizard/backend/internal/report"
	"github.com/vatwizard/backend/internal/review"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/upload"
	"github.com/vatwizard/backend/internal/wizard"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store       *session.Store
	Coordinator *upload.Coordinator
	Tracker     *correction.Tracker
	Controller  *wizard.Controller
	Retriever   *report.Retriever
	Reports     *report.LocalStore
	Review      *review.Coordinator
	Recovery    *session.Recovery
	Version     string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Files   FileHandler
	Wizard  WizardHandler
	Issues  IssueHandler
	Reports ReportHandler
	Review  ReviewHandler
	Session SessionHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Files:   NewFileHandler(deps.Store, deps.Coordinator, deps.Tracker),
		Wizard:  NewWizardHandler(deps.Controller, deps.Store),
		Issues:  NewIssueHandler(deps.Tracker),
		Reports: NewReportHandler(deps.Store, deps.Retriever, deps.Reports),
		Review:  NewReviewHandler(deps.Review),
		Session: NewSessionHandler(deps.Recovery, deps.Store, deps.Controller),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// File admission and upload tracking
	fileGroup := e.Group("/api/files")
	fileGroup.POST("", handlers.Files.HandleAdmitFiles)
	fileGroup.GET("", handlers.Files.HandleListFiles)
	fileGroup.GET("/progress", handlers.Files.HandleUploadProgress)
	fileGroup.GET("/status", handlers.Files.HandleUploadStatus)
	fileGroup.POST("/retry-validation", handlers.Files.HandleRetryValidation)
	fileGroup.DELETE("/:name", handlers.Files.HandleRemoveFile)

	// Wizard navigation
	wizardGroup := e.Group("/api/wizard")
	wizardGroup.GET("", handlers.Wizard.HandleCurrentStage)
	wizardGroup.POST("/advance", handlers.Wizard.HandleAdvance)
	wizardGroup.POST("/back", handlers.Wizard.HandleRetreat)
	wizardGroup.POST("/jump", handlers.Wizard.HandleJump)
	wizardGroup.POST("/restore", handlers.Wizard.HandleRestore)
	wizardGroup.POST("/reset", handlers.Wizard.HandleReset)

	// Payment collaborator callbacks
	e.POST("/api/payment/initiate", handlers.Wizard.HandlePaymentInitiate)
	e.POST("/api/payment/complete", handlers.Wizard.HandlePaymentComplete)

	// Validation issues
	issueGroup := e.Group("/api/issues")
	issueGroup.GET("", handlers.Issues.HandleListIssues)
	issueGroup.GET("/counts", handlers.Issues.HandleIssueCounts)
	issueGroup.POST("/:id/correct", handlers.Issues.HandleMarkCorrected)
	issueGroup.POST("/:id/ignore", handlers.Issues.HandleMarkIgnored)

	// Report retrieval
	reportGroup := e.Group("/api/reports")
	reportGroup.POST("/fetch", handlers.Reports.HandleFetchReport)
	reportGroup.POST("/fetch-all", handlers.Reports.HandleFetchAllReports)
	reportGroup.POST("/annotated", handlers.Reports.HandleFetchAnnotated)
	reportGroup.GET("", handlers.Reports.HandleListSaved)
	reportGroup.GET("/:id/download", handlers.Reports.HandleDownloadSaved)

	// Manual-review delivery
	reviewGroup := e.Group("/api/review")
	reviewGroup.POST("/email", handlers.Review.HandleRequestDelivery)
	reviewGroup.GET("/pending/:name", handlers.Review.HandlePendingDelivery)

	// Session recovery
	sessionGroup := e.Group("/api/session")
	sessionGroup.GET("/recovery", handlers.Session.HandleRecoveryStatus)
	sessionGroup.POST("/resume", handlers.Session.HandleResume)
	sessionGroup.POST("/discard", handlers.Session.HandleDiscard)
}

// SetupMiddleware configures the custom error handler
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
