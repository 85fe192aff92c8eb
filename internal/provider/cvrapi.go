package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/cache"
	"github.com/sells-group/cvrgpt/internal/model"
	"github.com/sells-group/cvrgpt/internal/resilience"
	"github.com/sells-group/cvrgpt/pkg/cvrindeks"
)

// CVRIndeks serves search and company lookups from the CVR index. Filings
// and accounts are out of its reach; the composite provider pairs it with a
// Regnskab delegate for those.
type CVRIndeks struct {
	client cvrindeks.Client
	memo   *cache.Memoizer
	retry  resilience.RetryConfig
	ttl    time.Duration
}

// NewCVRIndeks creates the index-backed provider. memo may be nil, which
// disables response caching.
func NewCVRIndeks(client cvrindeks.Client, memo *cache.Memoizer, ttl time.Duration) *CVRIndeks {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("cvrindeks", "call")
	return &CVRIndeks{client: client, memo: memo, retry: cfg, ttl: ttl}
}

func (p *CVRIndeks) Name() string { return "cvrindeks" }

// mapClientErr translates transport-level errors into the canonical
// taxonomy. notFoundEntity/notFoundID name the entity for 404s on
// single-entity lookups; empty entity means a 404 is an upstream fault.
func mapClientErr(err error, notFoundEntity, notFoundID string) error {
	var se *cvrindeks.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 404 && notFoundEntity != "":
			return apperr.NotFound(notFoundEntity, notFoundID)
		case se.StatusCode == 429:
			return apperr.RateLimited("registry rate limit exceeded", se.RetryAfter)
		case se.StatusCode >= 500:
			return apperr.Upstream(fmt.Sprintf("registry returned status %d", se.StatusCode), err)
		default:
			return apperr.BadRequest(fmt.Sprintf("registry rejected request with status %d", se.StatusCode))
		}
	}
	if ae := apperr.As(err); ae != nil {
		return err
	}
	return apperr.Upstream("registry call failed", err)
}

func (p *CVRIndeks) search(ctx context.Context, body cvrindeks.SearchBody, entity, id string) (*cvrindeks.SearchResponse, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*cvrindeks.SearchResponse, error) {
		resp, err := p.client.SearchVirksomhed(ctx, body)
		if err != nil {
			return nil, mapClientErr(err, entity, id)
		}
		return resp, nil
	})
}

func (p *CVRIndeks) citation(label string) model.Citation {
	return model.Citation{
		URL:        "https://datacvr.virk.dk",
		Label:      label,
		AccessedAt: time.Now().UTC().Format(time.RFC3339),
		Type:       model.CitationAPI,
	}
}

func (p *CVRIndeks) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	limit = clampLimit(limit, defaultSearchLimit, maxSearchLimit)
	if offset < 0 {
		offset = 0
	}
	query = strings.TrimSpace(query)

	key := cache.Key("cvrindeks", "search", query, fmt.Sprint(limit), fmt.Sprint(offset))
	return cache.Memoize(ctx, p.memo, key, p.ttl, func(ctx context.Context) (*model.SearchResult, error) {
		var q map[string]any
		if model.ValidCVR(query) {
			q = cvrindeks.TermQuery(query)
		} else {
			q = cvrindeks.NameQuery(query)
		}
		resp, err := p.search(ctx, cvrindeks.SearchBody{From: offset, Size: limit, Query: q, Source: true}, "", "")
		if err != nil {
			return nil, err
		}

		items := make([]model.SearchItem, 0, len(resp.Hits.Hits))
		for _, hit := range resp.Hits.Hits {
			items = append(items, normalizeSearchItem(hit.Source.Doc()))
		}
		res := &model.SearchResult{
			Items:     items,
			Total:     resp.Hits.Total.Value,
			Citations: []model.Citation{p.citation("CVR registry search")},
		}
		paginate(res, limit, offset)
		return res, nil
	})
}

func (p *CVRIndeks) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	if !model.ValidCVR(cvr) {
		return nil, apperr.Validation("cvr must be exactly 8 digits")
	}

	key := cache.Key("cvrindeks", "company", cvr)
	return cache.Memoize(ctx, p.memo, key, p.ttl, func(ctx context.Context) (*model.CompanyResult, error) {
		body := cvrindeks.SearchBody{Size: 1, Query: cvrindeks.TermQuery(cvr), Source: true}
		resp, err := p.search(ctx, body, "company", cvr)
		if err != nil {
			return nil, err
		}
		if len(resp.Hits.Hits) == 0 {
			return nil, apperr.NotFound("company", cvr)
		}
		return &model.CompanyResult{
			Company:   normalizeCompany(resp.Hits.Hits[0].Source.Doc(), cvr),
			Citations: []model.Citation{p.citation("CVR registry company record")},
		}, nil
	})
}

// ListFilings is outside the index's data set. The composite provider routes
// filings to the Regnskab delegate instead.
func (p *CVRIndeks) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	return &model.FilingsResult{Filings: []model.Filing{}, Citations: []model.Citation{p.citation("CVR registry")}}, nil
}

// LatestAccounts is outside the index's data set; see ListFilings.
func (p *CVRIndeks) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	return &model.AccountsResult{Citations: []model.Citation{p.citation("CVR registry")}}, nil
}

func (p *CVRIndeks) Ping(ctx context.Context) bool {
	return p.client.Ping(ctx)
}

// normalizeSearchItem flattens one index hit into a search item, walking the
// fallback chain for each field since index versions disagree on placement.
func normalizeSearchItem(doc *cvrindeks.VirksomhedDoc) model.SearchItem {
	item := model.SearchItem{
		CVR:    docCVR(doc),
		Name:   docName(doc),
		Status: docStatus(doc),
	}
	if md := doc.VirksomhedMetadata; md != nil && md.NyesteBeliggenhedsadresse != nil {
		item.City = md.NyesteBeliggenhedsadresse.Postdistrikt
	}
	return item
}

// normalizeCompany builds the full company profile from an index document.
// requestedCVR backstops documents that omit the number.
func normalizeCompany(doc *cvrindeks.VirksomhedDoc, requestedCVR string) *model.Company {
	c := &model.Company{
		CVR:    docCVR(doc),
		Name:   docName(doc),
		Status: docStatus(doc),
	}
	if c.CVR == "" {
		c.CVR = requestedCVR
	}

	if md := doc.VirksomhedMetadata; md != nil {
		if hb := md.NyesteHovedbranche; hb != nil && (hb.Branchekode != "" || hb.Branchetekst != "") {
			c.Industry = &model.Industry{Code: hb.Branchekode, Text: hb.Branchetekst}
		}
		if adr := md.NyesteBeliggenhedsadresse; adr != nil {
			street := adr.Vejnavn
			if adr.HusnummerFra > 0 {
				street = fmt.Sprintf("%s %d", adr.Vejnavn, adr.HusnummerFra)
			}
			a := model.Address{
				Type:    "registered",
				Street:  strings.TrimSpace(street),
				City:    adr.Postdistrikt,
				Country: adr.Landekode,
			}
			if adr.Postnummer > 0 {
				a.Zip = fmt.Sprint(adr.Postnummer)
			}
			c.Addresses = append(c.Addresses, a)
		}
	}

	for _, rel := range doc.DeltagerRelation {
		if rel.Deltager == nil || len(rel.Deltager.Navne) == 0 {
			continue
		}
		role := "participant"
		if len(rel.Organisationer) > 0 && rel.Organisationer[0].Hovedtype != "" {
			role = strings.ToLower(rel.Organisationer[0].Hovedtype)
		}
		c.Officers = append(c.Officers, model.Officer{
			Role: role,
			Name: rel.Deltager.Navne[len(rel.Deltager.Navne)-1].Navn,
		})
	}

	return c
}

// docCVR stringifies the CVR number, which arrives as a JSON number in some
// index versions and a string in others.
func docCVR(doc *cvrindeks.VirksomhedDoc) string {
	switch v := doc.CVRNummer.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%08.0f", v)
	default:
		return ""
	}
}

func docName(doc *cvrindeks.VirksomhedDoc) string {
	if md := doc.VirksomhedMetadata; md != nil && md.NyesteNavn != nil && md.NyesteNavn.Navn != "" {
		return md.NyesteNavn.Navn
	}
	if len(doc.Navne) > 0 {
		return doc.Navne[len(doc.Navne)-1].Navn
	}
	return ""
}

func docStatus(doc *cvrindeks.VirksomhedDoc) string {
	if doc.Virksomhedsstatus != nil && doc.Virksomhedsstatus.Status != "" {
		return doc.Virksomhedsstatus.Status
	}
	if md := doc.VirksomhedMetadata; md != nil {
		return md.SammensatStatus
	}
	return ""
}
