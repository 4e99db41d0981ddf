package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vatwizard/backend/internal/api"
	"github.com/vatwizard/backend/internal/config"
	"github.com/vatwizard/backend/internal/correction"
	"github.com/vatwizard/backend/internal/report"
	"github.com/vatwizard/backend/internal/review"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/upload"
	"github.com/vatwizard/backend/internal/validate"
	"github.com/vatwizard/backend/internal/wizard"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "vatwizard.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Session store rehydrates a previous run's snapshot if present
	store, err := session.NewStore(cfg.GetDataDir())
	if err != nil {
		fmt.Printf("Failed to initialize session store: %v\n", err)
		os.Exit(1)
	}

	reports, err := report.NewLocalStore(cfg.GetReportsDir())
	if err != nil {
		fmt.Printf("Failed to initialize report store: %v\n", err)
		os.Exit(1)
	}

	adapter := validate.NewAdapter(cfg.Validation.BaseURL, cfg.Validation.APIToken)
	tracker := correction.NewTracker()

	coordinator := upload.NewCoordinator(store, adapter,
		upload.WithTick(time.Duration(cfg.Upload.ProgressTickMs)*time.Millisecond),
		upload.WithMaxFileSize(cfg.Upload.MaxFileSizeBytes()),
		upload.WithAllowedExtensions(cfg.Upload.AllowedExtensions()))
	coordinator.SetResultHandler(func(result *validate.Result, err error) {
		if err != nil {
			return
		}
		tracker.Replace(result.Issues)
	})

	retriever := report.NewRetriever(cfg.Validation.BaseURL, cfg.Validation.APIToken, reports)
	retriever.SetConcurrency(cfg.Validation.Concurrency)
	controller := wizard.NewController(store, tracker)
	reviewer := review.NewCoordinator(store, retriever)
	recovery := session.NewRecovery(store, coordinator)

	handlers := api.NewHandlers(&api.Dependencies{
		Store:       store,
		Coordinator: coordinator,
		Tracker:     tracker,
		Controller:  controller,
		Retriever:   retriever,
		Reports:     reports,
		Review:      reviewer,
		Recovery:    recovery,
		Version:     Version,
	})

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Report fetches and admissions proxy slow remote calls
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/api/reports") ||
				strings.HasPrefix(path, "/api/files") ||
				strings.HasPrefix(path, "/api/review")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	api.RegisterRoutes(e, handlers)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("VAT Wizard Backend\n")
	fmt.Printf("  Version:    %s (%s)\n", Version, BuildTime)
	fmt.Printf("  Config:     %s\n", configPath)
	fmt.Printf("  Listen:     http://%s\n", cfg.GetServerAddr())
	fmt.Printf("  Data Dir:   %s\n", cfg.GetDataDir())
	fmt.Printf("  Validation: %s\n", cfg.Validation.BaseURL)
	fmt.Printf("\n")

	if info, ok := recovery.Detect(); ok {
		fmt.Printf("[Session] Previous session found: %d files, %d session ids (resume or discard via /api/session)\n",
			info.FileCount, info.SessionCount)
	}

	e.Logger.Fatal(e.StartServer(s))
}
