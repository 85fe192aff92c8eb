// Package provider defines the uniform company-registry contract and its
// implementations: fixtures on disk, the CVR index, the public
// announcement/accounts feeds, and a composite that splits the contract
// between two delegates.
package provider

import (
	"context"

	"github.com/sells-group/cvrgpt/internal/model"
)

// Provider is the uniform registry contract. All operations are read-only
// and idempotent; failures surface as apperr classified errors.
type Provider interface {
	// Name returns the provider identifier used in health payloads.
	Name() string

	// SearchCompanies finds companies by name fragment or CVR.
	SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error)

	// GetCompany fetches one company profile. Unknown CVRs yield a
	// NOT_FOUND error.
	GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error)

	// ListFilings lists published filings, most recent first.
	ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error)

	// LatestAccounts returns the latest two fiscal periods, either of which
	// may be absent.
	LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error)

	// Ping reports upstream reachability: true/false, never an error.
	Ping(ctx context.Context) bool
}

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	defaultFilingLimit = 10
	maxFilingLimit     = 50
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// paginate stamps the effective paging window onto a search result.
// NextOffset stays nil when the window reaches the end of the match set.
func paginate(res *model.SearchResult, limit, offset int) {
	res.Limit = limit
	res.Offset = offset
	if offset+limit < res.Total {
		next := offset + limit
		res.NextOffset = &next
	}
}
