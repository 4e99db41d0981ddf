// Package report fetches finished VAT reports from the compliance
// service. A download can resolve to a single spreadsheet, a zip
// archive of spreadsheets, or a manual-review marker; the shape is
// decided once here and downstream code only sees tagged outcomes.
package report

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/validate"
)

// DownloadTimeout bounds each per-file report download.
const DownloadTimeout = 60 * time.Second

// DefaultConcurrency caps parallel downloads in a whole-batch fetch.
const DefaultConcurrency = 4

// Request identifies one file's report to fetch.
type Request struct {
	FileName  string
	SessionID string
	Email     string
}

// Retriever is the HTTP client for report downloads.
type Retriever struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	saver       Saver
	concurrency int
}

// NewRetriever creates a report retriever storing downloads through
// the given saver.
func NewRetriever(baseURL, token string, saver Saver) *Retriever {
	return &Retriever{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DownloadTimeout,
		},
		saver:       saver,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency overrides the batch download limit. Values below 1 are
// ignored.
func (r *Retriever) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// statusBody is the JSON shape the service returns when no spreadsheet
// is ready yet.
type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// FetchOne downloads one file's report and resolves it to exactly one
// outcome. Never returns an error: every failure mode becomes a
// Failure outcome so batch aggregation stays total.
func (r *Retriever) FetchOne(ctx context.Context, req Request) models.ReportOutcome {
	outcome := models.ReportOutcome{FileName: req.FileName}

	if req.SessionID == "" {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = "no validation session recorded for this file"
		return outcome
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("user_email", req.Email); err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("building request: %v", err)
		return outcome
	}
	writer.Close()

	url := r.baseURL + "/download-vat-report/" + req.SessionID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("creating request: %v", err)
		return outcome
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("download failed: %v", err)
		return outcome
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("reading response: %v", err)
		return outcome
	}

	if resp.StatusCode >= 400 {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = validate.ExtractDetail(raw)
		return outcome
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case contentType == "application/json":
		return r.resolveStatus(req, raw)
	case contentType == "application/zip" || contentType == "application/x-zip-compressed":
		return r.extractArchive(req, raw)
	default:
		return r.saveSpreadsheet(req, resp.Header.Get("Content-Disposition"), raw)
	}
}

// resolveStatus handles the JSON shapes: a manual-review marker or a
// still-processing notice.
func (r *Retriever) resolveStatus(req Request, raw []byte) models.ReportOutcome {
	outcome := models.ReportOutcome{FileName: req.FileName}

	var sb statusBody
	if err := json.Unmarshal(raw, &sb); err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("unexpected response: %s", strings.TrimSpace(string(raw)))
		return outcome
	}

	switch sb.Status {
	case "manual_review_required":
		outcome.Kind = models.OutcomeManualReview
		outcome.ManualReviewCount = sb.Count
		outcome.Reason = sb.Message
		fmt.Printf("[Report] %s flagged for manual review (%d items)\n", req.FileName, sb.Count)
	case "manual_review_initiated":
		// Fulfillment is underway on the remote side; informational,
		// no file payload to save.
		outcome.Kind = models.OutcomeSuccess
		outcome.Reason = sb.Message
		fmt.Printf("[Report] Manual review underway for %s\n", req.FileName)
	case "processing":
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = "report is still being generated, try again shortly"
	default:
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("unexpected status %q", sb.Status)
	}
	return outcome
}

// extractArchive unpacks a zip of spreadsheets and saves each member.
func (r *Retriever) extractArchive(req Request, raw []byte) models.ReportOutcome {
	outcome := models.ReportOutcome{FileName: req.FileName}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("reading report archive: %v", err)
		return outcome
	}

	var members []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			outcome.Kind = models.OutcomeFailure
			outcome.Reason = fmt.Sprintf("opening archive member %s: %v", zf.Name, err)
			return outcome
		}
		name := path.Base(zf.Name)
		_, err = r.saver.Save(name, req.FileName, rc)
		rc.Close()
		if err != nil {
			outcome.Kind = models.OutcomeFailure
			outcome.Reason = fmt.Sprintf("saving archive member %s: %v", name, err)
			return outcome
		}
		members = append(members, name)
	}

	if len(members) == 0 {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = "report archive contained no files"
		return outcome
	}

	outcome.Kind = models.OutcomeArchiveExtracted
	outcome.MemberNames = members
	fmt.Printf("[Report] Extracted %d files from archive for %s\n", len(members), req.FileName)
	return outcome
}

// saveSpreadsheet lands a single spreadsheet response under the name
// from Content-Disposition, falling back to a derived name.
func (r *Retriever) saveSpreadsheet(req Request, disposition string, raw []byte) models.ReportOutcome {
	outcome := models.ReportOutcome{FileName: req.FileName}

	name := fileNameFromDisposition(disposition)
	if name == "" {
		name = FallbackReportName(req.FileName)
	}

	if _, err := r.saver.Save(name, req.FileName, bytes.NewReader(raw)); err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("saving report: %v", err)
		return outcome
	}

	outcome.Kind = models.OutcomeSuccess
	outcome.SavedFileName = name
	return outcome
}

// FetchAll downloads every requested report with bounded concurrency
// and waits for all of them. Per-file failures never abort siblings,
// so the summary always accounts for every request.
func (r *Retriever) FetchAll(ctx context.Context, reqs []Request) models.BatchSummary {
	outcomes := make([]models.ReportOutcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			outcomes[i] = r.FetchOne(gctx, req)
			return nil
		})
	}
	g.Wait()

	summary := models.Summarize(outcomes)
	fmt.Printf("[Report] Batch done: %d successful, %d failed, %d manual review\n",
		summary.Successful, summary.Failed, summary.ManualReview)
	return summary
}

// FetchAnnotated downloads the issue-annotated copy of an uploaded
// file, used at the Correction stage.
func (r *Retriever) FetchAnnotated(ctx context.Context, req Request) models.ReportOutcome {
	outcome := models.ReportOutcome{FileName: req.FileName}

	if req.SessionID == "" {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = "no validation session recorded for this file"
		return outcome
	}

	url := r.baseURL + "/download-vat-issues/" + req.SessionID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("creating request: %v", err)
		return outcome
	}
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("download failed: %v", err)
		return outcome
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("reading response: %v", err)
		return outcome
	}
	if resp.StatusCode >= 400 {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = validate.ExtractDetail(raw)
		return outcome
	}

	name := fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = stem(req.FileName) + "_validation_annotated.xlsx"
	}
	if _, err := r.saver.Save(name, req.FileName, bytes.NewReader(raw)); err != nil {
		outcome.Kind = models.OutcomeFailure
		outcome.Reason = fmt.Sprintf("saving annotated file: %v", err)
		return outcome
	}
	outcome.Kind = models.OutcomeSuccess
	outcome.SavedFileName = name
	return outcome
}

// FallbackReportName derives the saved name when the response carries
// no usable Content-Disposition.
func FallbackReportName(fileName string) string {
	return stem(fileName) + "_vat_report.xlsx"
}

func stem(fileName string) string {
	base := path.Base(fileName)
	if ext := path.Ext(base); ext != "" {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

func fileNameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return path.Base(params["filename"])
}
