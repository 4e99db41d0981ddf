package models

// OutcomeKind discriminates the shapes a report download can resolve to.
// The kind is decided once at the network boundary; downstream code
// switches on it and never re-inspects raw responses.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeArchiveExtracted OutcomeKind = "archive_extracted"
	OutcomeManualReview     OutcomeKind = "manual_review_required"
	OutcomeFailure          OutcomeKind = "failure"
)

// ReportOutcome is the per-file result of a report download.
type ReportOutcome struct {
	FileName          string      `json:"fileName"`
	Kind              OutcomeKind `json:"kind"`
	SavedFileName     string      `json:"savedFileName,omitempty"`
	MemberNames       []string    `json:"memberNames,omitempty"`
	ManualReviewCount int         `json:"manualReviewCount,omitempty"`
	Reason            string      `json:"reason,omitempty"`
}

// BatchSummary aggregates a whole-batch download.
// Successful + Failed + ManualReview always equals Requested.
type BatchSummary struct {
	Requested    int             `json:"requested"`
	Successful   int             `json:"successful"`
	Failed       int             `json:"failed"`
	ManualReview int             `json:"manualReview"`
	Outcomes     []ReportOutcome `json:"outcomes"`
}

// Summarize tallies per-file outcomes into a batch summary.
func Summarize(outcomes []ReportOutcome) BatchSummary {
	s := BatchSummary{Requested: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeManualReview:
			s.ManualReview++
		case OutcomeFailure:
			s.Failed++
		default:
			s.Successful++
		}
	}
	return s
}
