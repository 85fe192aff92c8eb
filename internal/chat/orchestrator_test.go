package chat

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/model"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// registryStub scripts the provider for orchestrator tests.
type registryStub struct {
	searchItems []model.SearchItem
	company     *model.Company
	filings     []model.Filing
	accounts    *model.AccountsResult
}

func (s *registryStub) Name() string { return "stub" }

func (s *registryStub) SearchCompanies(ctx context.Context, query string, limit, offset int) (*model.SearchResult, error) {
	return &model.SearchResult{Items: s.searchItems, Total: len(s.searchItems)}, nil
}

func (s *registryStub) GetCompany(ctx context.Context, cvr string) (*model.CompanyResult, error) {
	if s.company == nil {
		return nil, apperr.NotFound("company", cvr)
	}
	return &model.CompanyResult{Company: s.company}, nil
}

func (s *registryStub) ListFilings(ctx context.Context, cvr string, limit int) (*model.FilingsResult, error) {
	return &model.FilingsResult{Filings: s.filings}, nil
}

func (s *registryStub) LatestAccounts(ctx context.Context, cvr string) (*model.AccountsResult, error) {
	if s.accounts == nil {
		return &model.AccountsResult{}, nil
	}
	return s.accounts, nil
}

func (s *registryStub) Ping(ctx context.Context) bool { return true }

func demoAccounts() *model.AccountsResult {
	return &model.AccountsResult{
		Current: &model.AccountsSnapshot{
			Period:  &model.Period{Year: 2023},
			Revenue: dec("1200000"),
			EBIT:    dec("180000"),
		},
		Previous: &model.AccountsSnapshot{
			Period:  &model.Period{Year: 2022},
			Revenue: dec("1000000"),
			EBIT:    dec("60000"),
		},
	}
}

func userTurn(text string) model.ChatRequest {
	return model.ChatRequest{Messages: []model.ChatTurn{{Role: "user", Content: text}}}
}

func TestHandle_FinancialsByCVRAndYear(t *testing.T) {
	t.Parallel()
	stub := &registryStub{accounts: demoAccounts()}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("12345678 revenue 2023"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.ThreadID)
	require.Len(t, resp.Blocks, 1)

	table, ok := resp.Blocks[0].(model.TableBlock)
	require.True(t, ok, "expected a table block, got %T", resp.Blocks[0])
	assert.Equal(t, []string{"Year", "Revenue"}, table.Columns)
	require.Len(t, table.Rows, 1, "only the requested year")
	assert.Equal(t, []string{"2023", "1.2M DKK"}, table.Rows[0])
}

func TestHandle_FinancialsAllFieldsWhenNoneNamed(t *testing.T) {
	t.Parallel()
	stub := &registryStub{accounts: demoAccounts()}
	o := NewOrchestrator(stub, NewThreadStore(0), stubClassifier{IntentFinancials})

	resp, err := o.Handle(context.Background(), userTurn("nøgletal for 12345678"))
	require.NoError(t, err)
	table, ok := resp.Blocks[0].(model.TableBlock)
	require.True(t, ok)
	assert.Equal(t, []string{"Year", "Revenue", "EBIT", "Net income", "Assets", "Equity", "Cash"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2023", table.Rows[0][0], "newest year first")
	assert.Equal(t, "N/A", table.Rows[0][2], "unreported field")
}

func TestHandle_ProfileCard(t *testing.T) {
	t.Parallel()
	stub := &registryStub{company: &model.Company{
		CVR:       "12345678",
		Name:      "Demo ApS",
		Status:    "NORMAL",
		Industry:  &model.Industry{Text: "Computerprogrammering"},
		Addresses: []model.Address{{City: "København"}},
	}}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("who is 12345678?"))
	require.NoError(t, err)
	card, ok := resp.Blocks[0].(model.CardBlock)
	require.True(t, ok, "expected a card block, got %T", resp.Blocks[0])
	assert.Equal(t, "Demo ApS", card.Title)
	assert.Equal(t, "NORMAL", card.KV["Status"])
	assert.Equal(t, "København", card.KV["City"])
}

func TestHandle_FilingsTable(t *testing.T) {
	t.Parallel()
	stub := &registryStub{filings: []model.Filing{
		{ID: "f-1", Type: "annual_report", Date: "2024-05-30", URL: "https://example.test/f-1.pdf"},
	}}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("filings for 12345678"))
	require.NoError(t, err)
	table, ok := resp.Blocks[0].(model.TableBlock)
	require.True(t, ok)
	assert.Equal(t, []string{"Date", "Type", "URL"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2024-05-30", table.Rows[0][0])
}

func TestHandle_CompareNarrativeAndTable(t *testing.T) {
	t.Parallel()
	stub := &registryStub{accounts: demoAccounts()}
	threads := NewThreadStore(0)
	o := NewOrchestrator(stub, threads, nil)

	resp, err := o.Handle(context.Background(), userTurn("compare 12345678 2022 and 2023"))
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 2)

	text, ok := resp.Blocks[0].(model.TextBlock)
	require.True(t, ok)
	assert.Contains(t, text.Text, "EBIT increased")

	table, ok := resp.Blocks[1].(model.TableBlock)
	require.True(t, ok)
	assert.Equal(t, []string{"Field", "2022", "2023", "Change", "Change %"}, table.Columns)

	// The rendered table is exportable afterwards.
	csv, err := o.ExportLastTable(resp.ThreadID)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "Field,2022,2023,Change,Change %")
	assert.Contains(t, string(csv), "EBIT")
}

func TestHandle_CompareFewerThanTwoYearsPrompts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  string
	}{
		{"no years", "compare 12345678"},
		{"single year", "compare 12345678 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stub := &registryStub{accounts: demoAccounts()}
			o := NewOrchestrator(stub, NewThreadStore(0), nil)

			resp, err := o.Handle(context.Background(), userTurn(tt.msg))
			require.NoError(t, err)
			require.Len(t, resp.Blocks, 1)
			text, ok := resp.Blocks[0].(model.TextBlock)
			require.True(t, ok)
			assert.Contains(t, text.Text, "two distinct years")
		})
	}
}

func TestHandle_DisambiguationFlow(t *testing.T) {
	t.Parallel()
	stub := &registryStub{
		searchItems: []model.SearchItem{
			{CVR: "11111111", Name: "Demo ApS", City: "København"},
			{CVR: "22222222", Name: "Demo Holding ApS", City: "Aarhus"},
		},
		filings: []model.Filing{{ID: "f-1", Type: "annual_report", Date: "2024-05-30", URL: "u"}},
	}
	threads := NewThreadStore(0)
	o := NewOrchestrator(stub, threads, nil)

	resp, err := o.Handle(context.Background(), userTurn("filings for Demo"))
	require.NoError(t, err)
	choice, ok := resp.Blocks[0].(model.ChoiceBlock)
	require.True(t, ok, "expected a choice block, got %T", resp.Blocks[0])
	require.Len(t, choice.Choices, 2)

	// Selecting by index resumes the original request.
	sel := model.ChatRequest{
		ThreadID: resp.ThreadID,
		Messages: []model.ChatTurn{{Role: "user", Content: "2"}},
	}
	resp2, err := o.Handle(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, resp.ThreadID, resp2.ThreadID)
	table, ok := resp2.Blocks[0].(model.TableBlock)
	require.True(t, ok, "expected a table block, got %T", resp2.Blocks[0])
	assert.Equal(t, []string{"Date", "Type", "URL"}, table.Columns)

	thread, found := threads.Get(resp.ThreadID)
	require.True(t, found)
	assert.Equal(t, "22222222", thread.CVR)
	assert.Empty(t, thread.Choices)
}

func TestHandle_DisambiguationBadSelectionReprompts(t *testing.T) {
	t.Parallel()
	stub := &registryStub{searchItems: []model.SearchItem{
		{CVR: "11111111", Name: "Demo ApS"},
		{CVR: "22222222", Name: "Demo Holding ApS"},
	}}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("filings for Demo"))
	require.NoError(t, err)

	sel := model.ChatRequest{
		ThreadID: resp.ThreadID,
		Messages: []model.ChatTurn{{Role: "user", Content: "maybe the first one"}},
	}
	resp2, err := o.Handle(context.Background(), sel)
	require.NoError(t, err)
	_, ok := resp2.Blocks[0].(model.ChoiceBlock)
	assert.True(t, ok, "re-prompts with the same choices")
}

func TestHandle_NoCompanyPrompts(t *testing.T) {
	t.Parallel()
	stub := &registryStub{}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("filings please"))
	require.NoError(t, err)
	text, ok := resp.Blocks[0].(model.TextBlock)
	require.True(t, ok)
	assert.Contains(t, text.Text, "8-digit CVR")
}

func TestHandle_ThreadContextCarriesCompanyAndYears(t *testing.T) {
	t.Parallel()
	stub := &registryStub{accounts: demoAccounts(), filings: []model.Filing{
		{ID: "f-1", Type: "annual_report", Date: "2024-05-30", URL: "u"},
	}}
	o := NewOrchestrator(stub, NewThreadStore(0), nil)

	resp, err := o.Handle(context.Background(), userTurn("revenue for 12345678 in 2023"))
	require.NoError(t, err)

	// Follow-up names neither company nor year; both come from the thread.
	follow := model.ChatRequest{
		ThreadID: resp.ThreadID,
		Messages: []model.ChatTurn{{Role: "user", Content: "and the ebit?"}},
	}
	resp2, err := o.Handle(context.Background(), follow)
	require.NoError(t, err)
	table, ok := resp2.Blocks[0].(model.TableBlock)
	require.True(t, ok)
	assert.Equal(t, []string{"Year", "EBIT"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2023", table.Rows[0][0])
}

func TestHandle_UnknownIntentSaysUnavailable(t *testing.T) {
	t.Parallel()
	stub := &registryStub{}
	o := NewOrchestrator(stub, NewThreadStore(0), stubClassifier{IntentUnknown})

	resp, err := o.Handle(context.Background(), userTurn("sing a song about 12345678"))
	require.NoError(t, err)
	text, ok := resp.Blocks[0].(model.TextBlock)
	require.True(t, ok)
	assert.Equal(t, msgUnavailable, text.Text)
}

func TestHandle_EmptyMessagesRejected(t *testing.T) {
	t.Parallel()
	o := NewOrchestrator(&registryStub{}, NewThreadStore(0), nil)

	_, err := o.Handle(context.Background(), model.ChatRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidationError))
}

func TestExportLastTable_NoTable(t *testing.T) {
	t.Parallel()
	threads := NewThreadStore(0)
	o := NewOrchestrator(&registryStub{}, threads, nil)

	_, err := o.ExportLastTable("missing-thread")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	thread := threads.GetOrCreate("")
	_, err = o.ExportLastTable(thread.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

// stubClassifier always returns the same intent.
type stubClassifier struct{ intent Intent }

func (s stubClassifier) Classify(_ context.Context, _ string) (Intent, error) {
	return s.intent, nil
}
