// Package domain holds the internal outreach model exchanged between the
// application layer and the provider adapters. Adapters own the mapping from
// these types to each provider's wire shape.
package domain

// Lead is a person targeted by an outreach campaign. Email is the minimal
// identity: adapters never send a lead without one.
type Lead struct {
	Email           string            `json:"email"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	CompanyName     string            `json:"companyName"`
	Website         string            `json:"website"`
	Phone           string            `json:"phone"`
	RoleTitle       string            `json:"roleTitle"`
	Personalization string            `json:"personalization"`
	Custom          map[string]string `json:"custom,omitempty"`
}

// SequenceStep is one email in a campaign sequence. Body is plain multi-line
// text with {{placeholders}}; DelayDays is the wait before this step is sent
// (zero for the first step).
type SequenceStep struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	DelayDays int    `json:"delayDays"`
}

// Campaign is a multi-step outreach sequence.
type Campaign struct {
	Name  string         `json:"name"`
	Steps []SequenceStep `json:"steps"`
}

// Account is a company record to create or associate on the data platform.
type Account struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Phone  string `json:"phone"`
}

// SearchQuery describes a people search on the data platform.
type SearchQuery struct {
	Titles         []string `json:"titles,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	CompanyDomains []string `json:"companyDomains,omitempty"`
	Keywords       string   `json:"keywords,omitempty"`
	Page           int      `json:"page,omitempty"`
}

// Message is an outbound text message. To is the minimal identity: adapters
// never send a message without a recipient.
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// ScrapeRun requests a launch of a scraping agent with its argument payload.
type ScrapeRun struct {
	AgentID  string         `json:"agentId"`
	Argument map[string]any `json:"argument,omitempty"`
}
