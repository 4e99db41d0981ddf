// handlers_files.go - File admission and upload tracking handlers
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vatwizard/backend/internal/correction"
	"github.com/vatwizard/backend/internal/session"
	"github.com/vatwizard/backend/internal/upload"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store       *session.Store
	coordinator *upload.Coordinator
	tracker     *correction.Tracker
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store *session.Store, coordinator *upload.Coordinator, tracker *correction.Tracker) FileHandler {
	return &FileHandlerImpl{
		store:       store,
		coordinator: coordinator,
		tracker:     tracker,
	}
}

// HandleAdmitFiles accepts multipart files and admits them into the
// session. Per-file rejections are reported in the response, they
// never fail the request as a whole.
func (h *FileHandlerImpl) HandleAdmitFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return NewBadRequestError("no files provided", nil)
	}

	incoming := make([]upload.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return NewInternalError("failed to read uploaded file", err)
		}
		incoming = append(incoming, upload.IncomingFile{Name: fh.Filename, Data: data})
	}

	result := h.coordinator.Admit(incoming)
	return c.JSON(http.StatusOK, result)
}

// HandleListFiles returns the admitted files with their progress
func (h *FileHandlerImpl) HandleListFiles(c echo.Context) error {
	progress := h.store.Progress()
	sessions := h.store.SessionIDs()

	type fileView struct {
		Name      string  `json:"name"`
		SizeBytes int64   `json:"sizeBytes"`
		Progress  float64 `json:"progress"`
		SessionID string  `json:"sessionId,omitempty"`
	}

	files := h.store.Files()
	out := make([]fileView, 0, len(files))
	for _, f := range files {
		out = append(out, fileView{
			Name:      f.Name,
			SizeBytes: f.SizeBytes,
			Progress:  progress[f.Name],
			SessionID: sessions[f.Name],
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"files":       out,
		"allUploaded": h.store.AllUploaded(),
	})
}

// HandleRemoveFile drops a file from the session
func (h *FileHandlerImpl) HandleRemoveFile(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return NewValidationError("name")
	}

	if err := h.coordinator.Remove(name); err != nil {
		if errors.Is(err, session.ErrUnknownFile) {
			return NewNotFoundError("file", name)
		}
		return NewInternalError("failed to remove file", err)
	}
	// Issues of a removed file would otherwise stay pending forever and
	// block the correction stage.
	h.tracker.DropFile(name)
	return c.NoContent(http.StatusNoContent)
}

// HandleUploadProgress returns the per-file progress map
func (h *FileHandlerImpl) HandleUploadProgress(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"progress":    h.store.Progress(),
		"allUploaded": h.store.AllUploaded(),
	})
}

// HandleUploadStatus returns the coordinator batch state
func (h *FileHandlerImpl) HandleUploadStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    h.coordinator.Status(),
		"lastError": h.coordinator.LastError(),
		"heldFiles": h.coordinator.HeldCount(),
	})
}

// HandleRetryValidation re-submits the batch after a failed validation
func (h *FileHandlerImpl) HandleRetryValidation(c echo.Context) error {
	if err := h.coordinator.Retry(); err != nil {
		return NewConflictError(err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"status": upload.StatusValidating,
	})
}
