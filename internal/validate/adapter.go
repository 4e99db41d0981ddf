// Package validate submits admitted files to the remote compliance
// validation service and normalizes its heterogeneous response into a
// canonical issue list.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vatwizard/backend/internal/models"
)

// RequestTimeout bounds the combined validation call. The call covers
// every admitted file at once, so it gets a generous fixed deadline.
const RequestTimeout = 30 * time.Second

// FilePayload pairs a file name with its raw content for submission.
type FilePayload struct {
	Name string
	Data []byte
}

// Result is the normalized output of one validation run.
type Result struct {
	Issues     []models.ValidationIssue
	SessionIDs map[string]string
	TotalRows  int
}

// NetworkError marks a transport or timeout failure. The same call can
// be retried by the operator.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("validation service unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError carries structured 4xx/5xx detail from the validation
// service. Not retried automatically.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("validation service returned %d: %s", e.Status, e.Detail)
}

// Adapter is the HTTP client for the validation collaborator.
type Adapter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAdapter creates a validation adapter for the given service URL.
// The bearer token may be empty when auth is handled upstream.
func NewAdapter(baseURL, token string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// Wire types mirroring the validation service response.

type validateResponse struct {
	Files []fileResult `json:"files"`
}

type fileResult struct {
	FileName         string            `json:"file_name"`
	SessionID        string            `json:"session_id"`
	Success          bool              `json:"success"`
	HasIssues        bool              `json:"has_issues"`
	Message          string            `json:"message"`
	ValidationResult *validationResult `json:"validation_result"`
}

type validationResult struct {
	MissingHeadersDetailed []missingHeader `json:"missing_headers_detailed"`
	DataIssues             []dataIssue     `json:"data_issues"`
	TotalRows              int             `json:"total_rows"`
}

type missingHeader struct {
	HeaderValue  string `json:"header_value"`
	HeaderLabel  string `json:"header_label"`
	ExpectedName string `json:"expected_name"`
	Description  string `json:"description"`
}

type dataIssue struct {
	HeaderValue      string   `json:"header_value"`
	HeaderLabel      string   `json:"header_label"`
	IssueType        string   `json:"issue_type"`
	IssueDescription string   `json:"issue_description"`
	ColumnName       string   `json:"column_name"`
	DataType         string   `json:"data_type"`
	TotalMissing     int      `json:"total_missing"`
	TotalRows        int      `json:"total_rows"`
	Percentage       float64  `json:"percentage"`
	MissingRows      []string `json:"missing_rows"`
	HasMoreRows      bool     `json:"has_more_rows"`
}

// Validate submits all file contents in one multipart request and
// returns the normalized issues plus the per-file remote session ids.
func (a *Adapter) Validate(ctx context.Context, files []FilePayload) (*Result, error) {
	if len(files) == 0 {
		return &Result{SessionIDs: map[string]string{}}, nil
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("building multipart request: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("writing file %s to request: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/validate-file", body)
	if err != nil {
		return nil, fmt.Errorf("creating validation request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	fmt.Printf("[Validate] Submitting %d files\n", len(files))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &ServerError{Status: resp.StatusCode, Detail: ExtractDetail(raw)}
	}

	var payload validateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing validation response: %w", err)
	}

	return normalize(payload), nil
}

// normalize flattens the per-file results into canonical issues with
// fresh sequential ids, starting at 1 for each run.
func normalize(payload validateResponse) *Result {
	res := &Result{SessionIDs: make(map[string]string)}
	nextID := 1

	for _, f := range payload.Files {
		if f.SessionID != "" {
			res.SessionIDs[f.FileName] = f.SessionID
		}

		if f.ValidationResult == nil {
			// Per-file processing failure: the service could not read
			// the file at all. Surfaced as a single high issue so it
			// is never silently dropped.
			if !f.Success && f.Message != "" {
				res.Issues = append(res.Issues, models.ValidationIssue{
					ID:            nextID,
					FileName:      f.FileName,
					Category:      "File Error",
					Severity:      models.SeverityHigh,
					OriginalValue: f.Message,
					Status:        models.IssuePending,
				})
				nextID++
			}
			continue
		}

		vr := f.ValidationResult
		if vr.TotalRows > res.TotalRows {
			res.TotalRows = vr.TotalRows
		}

		for _, mh := range vr.MissingHeadersDetailed {
			label := mh.HeaderLabel
			if label == "" {
				label = mh.HeaderValue
			}
			res.Issues = append(res.Issues, models.ValidationIssue{
				ID:             nextID,
				FileName:       f.FileName,
				Category:       "Missing Column: " + label,
				Severity:       models.SeverityHigh,
				OriginalValue:  "Column not found",
				SuggestedValue: mh.ExpectedName,
				Status:         models.IssuePending,
				Detail: &models.IssueDetail{
					ColumnName:  label,
					Description: mh.Description,
				},
			})
			nextID++
		}

		for _, di := range vr.DataIssues {
			column := di.ColumnName
			if column == "" {
				column = di.HeaderLabel
			}
			res.Issues = append(res.Issues, models.ValidationIssue{
				ID:            nextID,
				FileName:      f.FileName,
				Category:      "Missing Data: " + column,
				Severity:      models.SeverityForPercentage(di.Percentage),
				OriginalValue: "(empty)",
				Status:        models.IssuePending,
				Detail: &models.IssueDetail{
					ColumnName:         column,
					DataType:           di.DataType,
					AffectedRows:       di.MissingRows,
					HasMoreRows:        di.HasMoreRows,
					TotalAffected:      di.TotalMissing,
					TotalRows:          di.TotalRows,
					PercentageAffected: di.Percentage,
					Description:        di.IssueDescription,
				},
			})
			nextID++
		}
	}

	return res
}

// ExtractDetail pulls a human-readable message out of the known error
// body shapes: a bare string, {"detail": "..."} or
// {"detail": [{"loc": ..., "msg": "..."}, ...]}.
func ExtractDetail(raw []byte) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || len(wrapper.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var msg string
	if err := json.Unmarshal(wrapper.Detail, &msg); err == nil {
		return msg
	}

	var fieldErrs []struct {
		Loc []json.RawMessage `json:"loc"`
		Msg string            `json:"msg"`
	}
	if err := json.Unmarshal(wrapper.Detail, &fieldErrs); err == nil {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			if fe.Msg != "" {
				parts = append(parts, fe.Msg)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	return strings.TrimSpace(string(wrapper.Detail))
}
