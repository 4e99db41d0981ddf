package models

import "testing"

func TestSummarizeAccountsForEveryOutcome(t *testing.T) {
	outcomes := []ReportOutcome{
		{FileName: "a.csv", Kind: OutcomeSuccess, SavedFileName: "a_vat_report.xlsx"},
		{FileName: "b.csv", Kind: OutcomeManualReview, ManualReviewCount: 3},
		{FileName: "c.csv", Kind: OutcomeFailure, Reason: "timeout"},
		{FileName: "d.csv", Kind: OutcomeArchiveExtracted, MemberNames: []string{"x.xlsx", "y.xlsx"}},
	}

	s := Summarize(outcomes)
	if s.Requested != 4 {
		t.Errorf("Expected 4 requested, got %d", s.Requested)
	}
	if s.Successful != 2 || s.Failed != 1 || s.ManualReview != 1 {
		t.Errorf("Unexpected tallies: %+v", s)
	}
	if s.Successful+s.Failed+s.ManualReview != s.Requested {
		t.Errorf("Tallies must account for every request")
	}
}
