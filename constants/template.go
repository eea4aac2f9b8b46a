package constants

// TemplateKind selects the outreach email the backend renders.
type TemplateKind string

const (
	TemplateReviewRequest     TemplateKind = "review_request"
	TemplateIssueNotification TemplateKind = "issue_notification"
	TemplateValidationSummary TemplateKind = "validation_summary"
)

// DefaultTemplate is used when no kind is requested.
const DefaultTemplate = TemplateReviewRequest
