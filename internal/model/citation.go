package model

// CitationType identifies the kind of upstream source behind a fact.
type CitationType string

const (
	CitationIXBRL    CitationType = "ixbrl"
	CitationPDF      CitationType = "pdf"
	CitationAPI      CitationType = "api"
	CitationFixtures CitationType = "fixtures"
)

// Citation is a provenance record pointing at the upstream source of a fact.
// Every non-empty data response carries at least one.
type Citation struct {
	URL        string       `json:"url"`
	Label      string       `json:"label"`
	AccessedAt string       `json:"accessed_at,omitempty"` // RFC 3339
	Type       CitationType `json:"type,omitempty"`
	Page       int          `json:"page,omitempty"`
}
