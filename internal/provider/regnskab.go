package provider

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/cache"
	"github.com/sells-group/cvrgpt/internal/model"
	"github.com/sells-group/cvrgpt/internal/resilience"
	"github.com/sells-group/cvrgpt/pkg/cvrindeks"
)

// DefaultRegnskabBaseURL is the public datacvr announcements/accounts API.
const DefaultRegnskabBaseURL = "https://distribution.virk.dk/offentliggoerelser"

// Regnskab serves filings and annual-accounts figures from the public
// announcement feed and its facts endpoint. Search and company lookups are
// not its job; the composite provider pairs it with a CVRIndeks delegate.
type Regnskab struct {
	client  cvrindeks.Client
	baseURL string
	memo    *cache.Memoizer
	retry   resilience.RetryConfig
	ttl     time.Duration
}

// NewRegnskab creates the feed-backed provider. memo may be nil, which
// disables response caching.
func NewRegnskab(client cvrindeks.Client, baseURL string, memo *cache.Memoizer, ttl time.Duration) *Regnskab {
	if baseURL == "" {
		baseURL = DefaultRegnskabBaseURL
	}
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("regnskab", "call")
	return &Regnskab{client: client, baseURL: strings.TrimRight(baseURL, "/"), memo: memo, retry: cfg, ttl: ttl}
}

func (p *Regnskab) Name() string { return "regnskab" }

func (p *Regnskab) getJSON(ctx context.Context, rawURL string, out any, entity, id string) error {
	_, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (struct{}, error) {
		if err := p.client.GetJSON(ctx, rawURL, out); err != nil {
			return struct{}{}, mapClientErr(err, entity, id)
		}
		return struct{}{}, nil
	})
	return err
}

func (p *Regnskab) citation(rawURL, label string) model.Citation {
	return model.Citation{
		URL:        rawURL,
		Label:      label,
		AccessedAt: time.Now().UTC().Format(time.RFC3339),
		Type:       model.CitationAPI,
	}
}

// SearchCompanies is outside the feed's data set; the composite provider
// routes search to the CVRIndeks delegate.
func (p *Regnskab) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	return &model.SearchResult{Items: []model.SearchItem{}, Citations: []model.Citation{}}, nil
}

// GetCompany is outside the feed's data set; see SearchCompanies.
func (p *Regnskab) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	return nil, apperr.NotFound("company", cvr)
}

func (p *Regnskab) feedURL(cvr string, size int) string {
	return fmt.Sprintf("%s/feed?cvr=%s&size=%d", p.baseURL, url.QueryEscape(cvr), size)
}

func (p *Regnskab) factsURL(cvr string) string {
	return fmt.Sprintf("%s/regnskaber/%s/facts", p.baseURL, url.QueryEscape(cvr))
}

func (p *Regnskab) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	if !model.ValidCVR(cvr) {
		return nil, apperr.Validation("cvr must be exactly 8 digits")
	}
	limit = clampLimit(limit, defaultFilingLimit, maxFilingLimit)

	key := cache.Key("regnskab", "filings", cvr, fmt.Sprint(limit))
	return cache.Memoize(ctx, p.memo, key, p.ttl, func(ctx context.Context) (*model.FilingsResult, error) {
		feedURL := p.feedURL(cvr, maxFilingLimit)
		var feed cvrindeks.AnnouncementFeed
		if err := p.getJSON(ctx, feedURL, &feed, "company", cvr); err != nil {
			return nil, err
		}

		filings := make([]model.Filing, 0, len(feed.Entries()))
		for _, a := range feed.Entries() {
			filings = append(filings, normalizeFiling(a))
		}
		sort.Slice(filings, func(i, j int) bool { return filings[i].Date > filings[j].Date })
		if len(filings) > limit {
			filings = filings[:limit]
		}
		return &model.FilingsResult{
			Filings:   filings,
			Citations: []model.Citation{p.citation(feedURL, "CVR announcement feed")},
		}, nil
	})
}

func (p *Regnskab) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	if !model.ValidCVR(cvr) {
		return nil, apperr.Validation("cvr must be exactly 8 digits")
	}

	key := cache.Key("regnskab", "accounts", cvr)
	return cache.Memoize(ctx, p.memo, key, p.ttl, func(ctx context.Context) (*model.AccountsResult, error) {
		factsURL := p.factsURL(cvr)
		var periods []cvrindeks.AccountsFacts
		if err := p.getJSON(ctx, factsURL, &periods, "company", cvr); err != nil {
			return nil, err
		}

		sort.Slice(periods, func(i, j int) bool {
			pi, pj := periods[i].Period, periods[j].Period
			if pi.End != pj.End {
				return pi.End > pj.End
			}
			return pi.Year > pj.Year
		})

		cit := p.citation(factsURL, "CVR annual accounts facts")
		res := &model.AccountsResult{Citations: []model.Citation{cit}}
		if len(periods) > 0 {
			res.Current = normalizeAccounts(periods[0], cit)
		}
		if len(periods) > 1 {
			res.Previous = normalizeAccounts(periods[1], cit)
		}
		return res, nil
	})
}

func (p *Regnskab) Ping(ctx context.Context) bool {
	return p.client.Ping(ctx)
}

// normalizeFiling maps a feed entry to a filing, preferring current field
// names and falling back to the older ones.
func normalizeFiling(a cvrindeks.Announcement) model.Filing {
	pick := func(vals ...string) string {
		for _, v := range vals {
			if v != "" {
				return v
			}
		}
		return ""
	}
	t := pick(a.Type, a.AltType)
	if t == "" {
		t = "annual_report"
	}
	return model.Filing{
		ID:   pick(a.ID, a.AltID),
		Type: t,
		Date: pick(a.Date, a.AltDate),
		URL:  pick(a.URL, a.AltURL),
	}
}

// factKeys lists, per snapshot field, the upstream names to probe in order.
var factKeys = map[string][]string{
	"revenue":             {"revenue", "nettoomsaetning", "Revenue"},
	"ebit":                {"ebit", "driftsresultat", "ProfitLossFromOrdinaryOperatingActivities"},
	"net_income":          {"net_income", "aaretsresultat", "ProfitLoss"},
	"assets":              {"assets", "aktiver", "Assets"},
	"equity":              {"equity", "egenkapital", "Equity"},
	"cash":                {"cash", "likvider", "CashAndCashEquivalents"},
	"current_assets":      {"current_assets", "omsaetningsaktiver", "CurrentAssets"},
	"current_liabilities": {"current_liabilities", "kortfristetgaeld", "ShorttermLiabilitiesOtherThanProvisions"},
}

// normalizeAccounts builds a snapshot from one facts payload. Figures live
// in pl/bs maps on the current endpoint and a flat facts map on the older
// one; both are probed.
func normalizeAccounts(f cvrindeks.AccountsFacts, cit model.Citation) *model.AccountsSnapshot {
	lookup := func(field string) *decimal.Decimal {
		for _, key := range factKeys[field] {
			for _, m := range []map[string]any{f.PL, f.BS, f.Flat} {
				if m == nil {
					continue
				}
				if raw, ok := m[key]; ok {
					if d := toDecimal(raw); d != nil {
						return d
					}
				}
			}
		}
		return nil
	}

	s := &model.AccountsSnapshot{
		Revenue:            lookup("revenue"),
		EBIT:               lookup("ebit"),
		NetIncome:          lookup("net_income"),
		Assets:             lookup("assets"),
		Equity:             lookup("equity"),
		Cash:               lookup("cash"),
		CurrentAssets:      lookup("current_assets"),
		CurrentLiabilities: lookup("current_liabilities"),
		SourceAnchors:      []model.Citation{cit},
	}
	if f.Period.Start != "" || f.Period.End != "" || f.Period.Year != 0 {
		p := &model.Period{Start: f.Period.Start, End: f.Period.End, Year: f.Period.Year}
		if p.Year == 0 && len(p.End) >= 4 {
			if y, err := strconv.Atoi(p.End[:4]); err == nil {
				p.Year = y
			}
		}
		s.Period = p
	}
	return s
}

// toDecimal converts a loosely typed JSON fact value to a decimal, or nil
// when it is absent or unparseable.
func toDecimal(raw any) *decimal.Decimal {
	switch v := raw.(type) {
	case float64:
		d := decimal.NewFromFloat(v)
		return &d
	case string:
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil
		}
		return &d
	case int:
		d := decimal.NewFromInt(int64(v))
		return &d
	case int64:
		d := decimal.NewFromInt(v)
		return &d
	default:
		return nil
	}
}
