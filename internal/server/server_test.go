package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/chat"
	"github.com/sells-group/cvrgpt/internal/config"
	"github.com/sells-group/cvrgpt/internal/events"
	"github.com/sells-group/cvrgpt/internal/model"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// registryStub scripts the provider behind the HTTP surface.
type registryStub struct {
	company  *model.Company
	accounts *model.AccountsResult
	filings  []model.Filing
	err      error
	up       bool
}

func (s *registryStub) Name() string { return "stub" }

func (s *registryStub) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := &model.SearchResult{
		Items:     []model.SearchItem{{CVR: "12345678", Name: "Demo ApS"}},
		Total:     1,
		Limit:     limit,
		Offset:    offset,
		Citations: []model.Citation{},
	}
	if offset+limit < res.Total {
		next := offset + limit
		res.NextOffset = &next
	}
	return res, nil
}

func (s *registryStub) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.company == nil {
		return nil, apperr.NotFound("company", cvr)
	}
	return &model.CompanyResult{Company: s.company, Citations: []model.Citation{}}, nil
}

func (s *registryStub) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.FilingsResult{Filings: s.filings, Citations: []model.Citation{}}, nil
}

func (s *registryStub) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.accounts == nil {
		return &model.AccountsResult{Citations: []model.Citation{}}, nil
	}
	return s.accounts, nil
}

func (s *registryStub) Ping(ctx context.Context) bool { return s.up }

type serverOpts func(*config.ServerConfig)

func newTestServer(t *testing.T, stub *registryStub, opts ...serverOpts) *Server {
	t.Helper()

	dir := t.TempDir()
	eventsJSON := `[{"cvr":"12345678","name":"Demo ApS","event_type":"bankruptcy","nace":"620100",
	  "event_date":"2024-03-15T00:00:00Z","source_id":"ev-1"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte(eventsJSON), 0o644))

	cfg := config.ServerConfig{
		CORSOrigins:     []string{"*"},
		CacheMaxAgeSecs: 60,
	}
	for _, o := range opts {
		o(&cfg)
	}

	orch := chat.NewOrchestrator(stub, chat.NewThreadStore(0), nil)
	return New(stub, events.NewFixture(dir), orch, nil, cfg)
}

func doReq(t *testing.T, s *Server, method, target string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func demoCompany() *model.Company {
	return &model.Company{CVR: "12345678", Name: "Demo ApS", Status: "NORMAL"}
}

func demoAccounts() *model.AccountsResult {
	return &model.AccountsResult{
		Current: &model.AccountsSnapshot{
			Period:  &model.Period{Year: 2023},
			Revenue: dec("1200000"),
		},
		Previous: &model.AccountsSnapshot{
			Period:  &model.Period{Year: 2022},
			Revenue: dec("1000000"),
		},
		Citations: []model.Citation{},
	}
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "ok", target: "/v1/search?q=demo", want: 200},
		{name: "q too short", target: "/v1/search?q=a", want: 422},
		{name: "q missing", target: "/v1/search", want: 422},
		{name: "limit too high", target: "/v1/search?q=demo&limit=51", want: 422},
		{name: "limit zero", target: "/v1/search?q=demo&limit=0", want: 422},
		{name: "negative offset", target: "/v1/search?q=demo&offset=-1", want: 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doReq(t, s, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == 422 {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "VALIDATION_ERROR", body["code"])
			}
		})
	}
}

func TestSearch_EchoesPagingWindow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{})

	rec := doReq(t, s, http.MethodGet, "/v1/search?q=demo&limit=10&offset=0", "", nil)
	require.Equal(t, 200, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
	next, present := body["next_offset"]
	assert.True(t, present, "next_offset key always present")
	assert.Nil(t, next, "single page of results")
}

func TestCompany_OKAndErrors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{company: demoCompany()})

	rec := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
	require.Equal(t, 200, rec.Code)
	var body struct {
		Company model.Company `json:"company"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Demo ApS", body.Company.Name)

	rec = doReq(t, s, http.MethodGet, "/v1/company/123", "", nil)
	assert.Equal(t, 422, rec.Code)

	missing := newTestServer(t, &registryStub{})
	rec = doReq(t, missing, http.MethodGet, "/v1/company/99999999", "", nil)
	assert.Equal(t, 404, rec.Code)
	var errBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "NOT_FOUND", errBody["code"])
}

func TestCompany_UnclassifiedErrorIsOpaque500(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{err: eris.New("driver exploded: password=hunter2")})

	rec := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
	assert.Equal(t, 500, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body["code"])
	assert.Equal(t, "internal error", body["message"])
	assert.NotEmpty(t, body["request_id"])
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestETag_NotModified(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{company: demoCompany()})

	first := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
	require.Equal(t, 200, first.Code)
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, "public, max-age=60", first.Header().Get("Cache-Control"))

	second := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", map[string]string{"If-None-Match": tag})
	assert.Equal(t, 304, second.Code)
	assert.Empty(t, second.Body.String())
	assert.Equal(t, tag, second.Header().Get("ETag"))
}

func TestETag_ErrorsNotTagged(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{})

	rec := doReq(t, s, http.MethodGet, "/v1/company/99999999", "", nil)
	assert.Equal(t, 404, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestAuth_EnforcedOnlyWhenConfigured(t *testing.T) {
	t.Parallel()
	open := newTestServer(t, &registryStub{company: demoCompany()})
	rec := doReq(t, open, http.MethodGet, "/v1/company/12345678", "", nil)
	assert.Equal(t, 200, rec.Code)

	secured := newTestServer(t, &registryStub{company: demoCompany()}, func(c *config.ServerConfig) {
		c.APIKeys = []string{"sekrit"}
	})

	rec = doReq(t, secured, http.MethodGet, "/v1/company/12345678", "", nil)
	assert.Equal(t, 401, rec.Code)

	rec = doReq(t, secured, http.MethodGet, "/v1/company/12345678", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, 401, rec.Code)

	rec = doReq(t, secured, http.MethodGet, "/v1/company/12345678", "", map[string]string{"X-API-Key": "sekrit"})
	assert.Equal(t, 200, rec.Code)

	// Health endpoints stay open.
	rec = doReq(t, secured, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, 200, rec.Code)
}

func TestThrottle_ReturnsRetryAfter(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{company: demoCompany()}, func(c *config.ServerConfig) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	first := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
	require.Equal(t, 200, first.Code)

	second := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
	assert.Equal(t, 429, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT", body["code"])
}

func TestCompare_IncludesRatiosAndNarrative(t *testing.T) {
	t.Parallel()
	acc := demoAccounts()
	acc.Current.EBIT = dec("180000")
	acc.Current.Assets = dec("900000")
	acc.Current.Equity = dec("450000")
	s := newTestServer(t, &registryStub{accounts: acc})

	rec := doReq(t, s, http.MethodGet, "/v1/compare/12345678", "", nil)
	require.Equal(t, 200, rec.Code)

	var res model.CompareResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "2023", res.CurrentPeriod)
	assert.Equal(t, "2022", res.PreviousPeriod)
	require.NotEmpty(t, res.KeyChanges)
	assert.Contains(t, res.Narrative, "Revenue increased")
	require.NotNil(t, res.CurrentRatios)
	require.NotNil(t, res.CurrentRatios.Margin)
	assert.True(t, res.CurrentRatios.Margin.Equal(decimal.RequireFromString("0.15")))
}

func TestCompareExport_MissingPreviousIsHeaderOnly(t *testing.T) {
	t.Parallel()
	acc := demoAccounts()
	acc.Previous = nil
	s := newTestServer(t, &registryStub{accounts: acc})

	rec := doReq(t, s, http.MethodGet, "/v1/compare/12345678/export", "", nil)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "compare_12345678.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 1, "header row only")
	assert.Contains(t, lines[0], "Field")
}

func TestChat_EndToEnd(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{accounts: demoAccounts()})

	body := `{"messages":[{"role":"user","content":"12345678 revenue 2023"}]}`
	rec := doReq(t, s, http.MethodPost, "/v1/chat", body, map[string]string{"Content-Type": "application/json"})
	require.Equal(t, 200, rec.Code)

	var resp struct {
		ThreadID string `json:"thread_id"`
		Blocks   []struct {
			Type    string     `json:"type"`
			Columns []string   `json:"columns"`
			Rows    [][]string `json:"rows"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ThreadID)
	require.Len(t, resp.Blocks, 1)
	assert.Equal(t, "table", resp.Blocks[0].Type)
	assert.Equal(t, []string{"Year", "Revenue"}, resp.Blocks[0].Columns)

	// The rendered table is downloadable as CSV.
	rec = doReq(t, s, http.MethodGet, "/v1/chat/"+resp.ThreadID+"/export", "", nil)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Year,Revenue")

	rec = doReq(t, s, http.MethodGet, "/v1/chat/unknown-thread/export", "", nil)
	assert.Equal(t, 404, rec.Code)
}

func TestChat_BadJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{})

	rec := doReq(t, s, http.MethodPost, "/v1/chat", "{not json", nil)
	assert.Equal(t, 400, rec.Code)
}

func TestEvents_FilterAndValidation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{})

	rec := doReq(t, s, http.MethodGet, "/v1/events?type=bankruptcy&nace=62", "", nil)
	require.Equal(t, 200, rec.Code)
	var body struct {
		Events []model.Event `json:"events"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "12345678", body.Events[0].CVR)

	// last_days and explicit dates are mutually exclusive.
	rec = doReq(t, s, http.MethodGet, "/v1/events?last_days=30&from=2024-01-01", "", nil)
	assert.Equal(t, 400, rec.Code)

	rec = doReq(t, s, http.MethodGet, "/v1/events?from=not-a-date", "", nil)
	assert.Equal(t, 422, rec.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{up: true})

	rec := doReq(t, s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	down := newTestServer(t, &registryStub{up: false})
	rec = doReq(t, down, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, 200, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])

	rec = doReq(t, s, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, 200, rec.Code)
}

func TestCompany_ConcurrentFetches(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &registryStub{company: demoCompany()})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doReq(t, s, http.MethodGet, "/v1/company/12345678", "", nil)
			assert.Equal(t, 200, rec.Code)
		}()
	}
	wg.Wait()
}
