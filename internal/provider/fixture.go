package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/model"
)

// Fixture serves deterministic registry data from JSON files on disk.
// Layout: <dir>/companies/<cvr>.json and <dir>/filings/<cvr>.json.
type Fixture struct {
	dir string
}

func NewFixture(dir string) *Fixture {
	return &Fixture{dir: dir}
}

func (f *Fixture) Name() string { return "fixture" }

// fixtureFilings is the on-disk shape of filings/<cvr>.json.
type fixtureFilings struct {
	Filings        []model.Filing `json:"filings"`
	LatestAccounts *struct {
		Current  *model.AccountsSnapshot `json:"current"`
		Previous *model.AccountsSnapshot `json:"previous"`
	} `json:"latest_accounts"`
}

func (f *Fixture) citation(path string) model.Citation {
	return model.Citation{
		URL:        "file://" + path,
		Label:      "Local fixture data",
		AccessedAt: time.Now().UTC().Format(time.RFC3339),
		Type:       model.CitationFixtures,
	}
}

func (f *Fixture) readCompany(cvr string) (*model.Company, string, error) {
	path := filepath.Join(f.dir, "companies", cvr+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", apperr.NotFound("company", cvr)
		}
		return nil, "", eris.Wrap(err, "fixture: read company")
	}
	var c model.Company
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, "", eris.Wrapf(err, "fixture: decode %s", path)
	}
	return &c, path, nil
}

func (f *Fixture) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	limit = clampLimit(limit, defaultSearchLimit, maxSearchLimit)
	if offset < 0 {
		offset = 0
	}

	dir := filepath.Join(f.dir, "companies")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "fixture: list companies")
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var items []model.SearchItem
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cvr := strings.TrimSuffix(e.Name(), ".json")
		c, _, err := f.readCompany(cvr)
		if err != nil {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(c.CVR, q) {
			continue
		}
		item := model.SearchItem{CVR: c.CVR, Name: c.Name, Status: c.Status}
		if len(c.Addresses) > 0 {
			item.City = c.Addresses[0].City
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	if items == nil {
		items = []model.SearchItem{}
	}

	total := len(items)
	if offset >= len(items) {
		items = []model.SearchItem{}
	} else {
		items = items[offset:]
	}
	if len(items) > limit {
		items = items[:limit]
	}

	res := &model.SearchResult{
		Items:     items,
		Total:     total,
		Citations: []model.Citation{f.citation(dir)},
	}
	paginate(res, limit, offset)
	return res, nil
}

func (f *Fixture) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	c, path, err := f.readCompany(cvr)
	if err != nil {
		return nil, err
	}
	return &model.CompanyResult{
		Company:   c,
		Citations: []model.Citation{f.citation(path)},
	}, nil
}

func (f *Fixture) readFilings(cvr string) (*fixtureFilings, string, error) {
	path := filepath.Join(f.dir, "filings", cvr+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A company without a filings file simply has none.
			if _, _, cerr := f.readCompany(cvr); cerr != nil {
				return nil, "", cerr
			}
			return &fixtureFilings{}, path, nil
		}
		return nil, "", eris.Wrap(err, "fixture: read filings")
	}
	var ff fixtureFilings
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, "", eris.Wrapf(err, "fixture: decode %s", path)
	}
	return &ff, path, nil
}

func (f *Fixture) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	limit = clampLimit(limit, defaultFilingLimit, maxFilingLimit)
	ff, path, err := f.readFilings(cvr)
	if err != nil {
		return nil, err
	}
	filings := ff.Filings
	if filings == nil {
		filings = []model.Filing{}
	}
	sort.Slice(filings, func(i, j int) bool { return filings[i].Date > filings[j].Date })
	if len(filings) > limit {
		filings = filings[:limit]
	}
	return &model.FilingsResult{
		Filings:   filings,
		Citations: []model.Citation{f.citation(path)},
	}, nil
}

func (f *Fixture) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	ff, path, err := f.readFilings(cvr)
	if err != nil {
		return nil, err
	}
	res := &model.AccountsResult{
		Citations: []model.Citation{f.citation(path)},
	}
	if ff.LatestAccounts != nil {
		res.Current = ff.LatestAccounts.Current
		res.Previous = ff.LatestAccounts.Previous
	}
	return res, nil
}

func (f *Fixture) Ping(ctx context.Context) bool {
	_, err := os.Stat(filepath.Join(f.dir, "companies"))
	return err == nil
}
