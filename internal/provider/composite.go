package provider

import (
	"context"
	"fmt"

	"github.com/sells-group/cvrgpt/internal/model"
)

// Composite splits the registry contract between two delegates: core serves
// search and company lookups, filings serves filings and accounts. Both must
// be reachable for the composite to report healthy.
type Composite struct {
	core    Provider
	filings Provider
}

func NewComposite(core, filings Provider) *Composite {
	return &Composite{core: core, filings: filings}
}

func (c *Composite) Name() string {
	return fmt.Sprintf("composite(%s+%s)", c.core.Name(), c.filings.Name())
}

func (c *Composite) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	return c.core.SearchCompanies(ctx, query, limit, offset)
}

func (c *Composite) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	return c.core.GetCompany(ctx, cvr)
}

func (c *Composite) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	return c.filings.ListFilings(ctx, cvr, limit)
}

func (c *Composite) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	return c.filings.LatestAccounts(ctx, cvr)
}

func (c *Composite) Ping(ctx context.Context) bool {
	return c.core.Ping(ctx) && c.filings.Ping(ctx)
}
