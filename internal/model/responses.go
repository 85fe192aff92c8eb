package model

// SearchResult is the normalized response to a company search. Limit and
// Offset echo the effective paging window; NextOffset points at the next
// page and is null on the last one.
type SearchResult struct {
	Items      []SearchItem `json:"items"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset"`
	Citations  []Citation   `json:"citations"`
}

// CompanyResult is the normalized response to a single-company lookup.
type CompanyResult struct {
	Company   *Company   `json:"company"`
	Citations []Citation `json:"citations"`
}

// FilingsResult is the normalized response to a filings listing.
type FilingsResult struct {
	Filings   []Filing   `json:"filings"`
	Citations []Citation `json:"citations"`
}

// AccountsResult carries the latest two fiscal periods for a company.
// Either snapshot may be nil when the upstream has no data for it.
type AccountsResult struct {
	Current   *AccountsSnapshot `json:"current,omitempty"`
	Previous  *AccountsSnapshot `json:"previous,omitempty"`
	Citations []Citation        `json:"citations"`
}

// CompareResult is the derived comparison between the latest two periods.
type CompareResult struct {
	CurrentPeriod  string          `json:"current_period,omitempty"`
	PreviousPeriod string          `json:"previous_period,omitempty"`
	KeyChanges     []AccountsDelta `json:"key_changes"`
	CurrentRatios  *Ratios         `json:"current_ratios,omitempty"`
	PreviousRatios *Ratios         `json:"previous_ratios,omitempty"`
	Narrative      string          `json:"narrative"`
	Sources        []Citation      `json:"sources"`
}
