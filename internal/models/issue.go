package models

// Severity classifies how urgent a validation issue is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// IssueStatus is the lifecycle state of a validation issue.
// Transitions are pending→corrected or pending→ignored, never back.
type IssueStatus string

const (
	IssuePending   IssueStatus = "pending"
	IssueCorrected IssueStatus = "corrected"
	IssueIgnored   IssueStatus = "ignored"
)

// IssueDetail carries the structured payload of a data-quality issue.
type IssueDetail struct {
	ColumnName         string   `json:"columnName"`
	DataType           string   `json:"dataType,omitempty"`
	AffectedRows       []string `json:"affectedRows,omitempty"`
	HasMoreRows        bool     `json:"hasMoreRows"`
	TotalAffected      int      `json:"totalAffected"`
	TotalRows          int      `json:"totalRows"`
	PercentageAffected float64  `json:"percentageAffected"`
	Description        string   `json:"description,omitempty"`
}

// ValidationIssue is one normalized finding from a validation run.
// IDs are sequential starting at 1 within a run.
type ValidationIssue struct {
	ID             int          `json:"id"`
	FileName       string       `json:"fileName"`
	Category       string       `json:"category"`
	Severity       Severity     `json:"severity"`
	OriginalValue  string       `json:"originalValue"`
	SuggestedValue string       `json:"suggestedValue,omitempty"`
	Status         IssueStatus  `json:"status"`
	Detail         *IssueDetail `json:"detail,omitempty"`
}

// SeverityForPercentage maps the share of affected rows to a severity.
func SeverityForPercentage(pct float64) Severity {
	switch {
	case pct > 50:
		return SeverityHigh
	case pct > 20:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
