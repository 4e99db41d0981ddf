// Package review handles the manual-review path: when the compliance
// service cannot finish a report automatically, the operator leaves an
// email address and fulfillment continues asynchronously on the remote
// side.
package review

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/report"
	"github.com/vatwizard/backend/internal/session"
)

// ErrInvalidEmail is returned when the delivery address fails the
// format check. Nothing is sent upstream in that case.
var ErrInvalidEmail = errors.New("invalid email address")

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Fetcher is the slice of the report retriever the coordinator needs.
type Fetcher interface {
	FetchOne(ctx context.Context, req report.Request) models.ReportOutcome
}

// Coordinator validates delivery addresses and initiates manual-review
// fulfillment.
type Coordinator struct {
	store   *session.Store
	fetcher Fetcher
}

// NewCoordinator creates a manual-review coordinator.
func NewCoordinator(store *session.Store, fetcher Fetcher) *Coordinator {
	return &Coordinator{store: store, fetcher: fetcher}
}

// ValidEmail reports whether the address passes the format check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// RequestDelivery re-requests a file's report with a delivery address
// attached. If the service confirms manual review, the file is marked
// pending delivery so the operator sees it is being handled. If the
// report turned out to be ready after all, the outcome says so.
func (c *Coordinator) RequestDelivery(ctx context.Context, fileName, email string) (models.ReportOutcome, error) {
	if !ValidEmail(email) {
		return models.ReportOutcome{}, ErrInvalidEmail
	}

	sessionID, ok := c.store.SessionID(fileName)
	if !ok {
		return models.ReportOutcome{}, session.ErrUnknownFile
	}

	outcome := c.fetcher.FetchOne(ctx, report.Request{
		FileName:  fileName,
		SessionID: sessionID,
		Email:     email,
	})

	if deliveryConfirmed(outcome) {
		if err := c.store.MarkPendingDelivery(fileName, email); err != nil {
			return outcome, fmt.Errorf("recording pending delivery: %w", err)
		}
		fmt.Printf("[Review] %s queued for manual review, delivery to %s\n", fileName, email)
	}
	return outcome, nil
}

// deliveryConfirmed reports whether the service will deliver the report
// by email: either it flagged the file for manual review, or it
// acknowledged the request without a file payload, meaning fulfillment
// is already underway.
func deliveryConfirmed(outcome models.ReportOutcome) bool {
	if outcome.Kind == models.OutcomeManualReview {
		return true
	}
	return outcome.Kind == models.OutcomeSuccess && outcome.SavedFileName == ""
}

// PendingFor returns the registered delivery address for a file.
func (c *Coordinator) PendingFor(fileName string) (string, bool) {
	return c.store.PendingDelivery(fileName)
}
