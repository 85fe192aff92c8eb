package model

import "regexp"

// CVRPattern matches a Danish CVR number: exactly 8 digits.
var CVRPattern = regexp.MustCompile(`^\d{8}$`)

// ValidCVR reports whether s is a well-formed CVR number.
func ValidCVR(s string) bool {
	return CVRPattern.MatchString(s)
}

// Industry is a NACE industry classification.
type Industry struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text,omitempty"`
}

// Address is a registered company address.
type Address struct {
	Type    string `json:"type,omitempty"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Officer is a registered company officer (director, board member, auditor).
type Officer struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// Company is a registry entry keyed by CVR. A Company is immutable once
// fetched; it is never persisted between requests except through the cache.
type Company struct {
	CVR       string    `json:"cvr"`
	Name      string    `json:"name"`
	Status    string    `json:"status,omitempty"`
	Industry  *Industry `json:"industry,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`
	Officers  []Officer `json:"officers,omitempty"`
}

// SearchItem is a single hit in a company search result.
type SearchItem struct {
	CVR    string `json:"cvr"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	City   string `json:"city,omitempty"`
}

// Filing is a single published filing for a company. Ordering within a
// filings list is upstream-defined (most recent first).
type Filing struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Date string `json:"date"`
	URL  string `json:"url"`
}
