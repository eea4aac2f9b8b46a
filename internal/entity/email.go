package entity

// EmailTemplate is a generated outreach draft. It is never cached.
type EmailTemplate struct {
	ProviderID   int64    `json:"provider_id"`
	ProviderName string   `json:"provider_name"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Issues       []string `json:"issues"`
}
