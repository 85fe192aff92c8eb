// Package chat routes conversational turns to registry lookups: it resolves
// the company under discussion, classifies the user's intent and renders the
// answer as typed blocks.
package chat

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/compare"
	"github.com/sells-group/cvrgpt/internal/model"
	"github.com/sells-group/cvrgpt/internal/provider"
)

var (
	cvrToken  = regexp.MustCompile(`\b\d{8}\b`)
	yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

const (
	msgNoCompany   = "Tell me which company you mean, by name or 8-digit CVR."
	msgUnavailable = "I can help with company profiles, filings, financials and year-over-year comparisons. Try asking about one of those."
	msgPickOne     = "I found several matching companies. Which one do you mean?"
)

// Orchestrator drives one chat turn end to end.
type Orchestrator struct {
	provider   provider.Provider
	threads    *ThreadStore
	classifier IntentClassifier
}

func NewOrchestrator(p provider.Provider, threads *ThreadStore, classifier IntentClassifier) *Orchestrator {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Orchestrator{provider: p, threads: threads, classifier: classifier}
}

// Handle runs one turn: resolve company, classify intent, extract years,
// dispatch, and persist thread state (last-write-wins).
func (o *Orchestrator) Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	msg := lastUserMessage(req.Messages)
	if msg == "" {
		return nil, apperr.Validation("chat request needs at least one user message")
	}

	thread := o.threads.GetOrCreate(req.ThreadID)
	resp := &model.ChatResponse{ThreadID: thread.ID}

	// A pending disambiguation consumes this message as a selection.
	if len(thread.Choices) > 0 {
		picked := resolveChoice(thread.Choices, msg)
		if picked == "" {
			resp.Blocks = []model.Block{model.ChoiceBlock{Prompt: msgPickOne, Choices: thread.Choices}}
			o.threads.Put(thread)
			return resp, nil
		}
		thread.CVR = picked
		if thread.PendingMessage != "" {
			msg = thread.PendingMessage
		}
		thread.Choices = nil
		thread.PendingMessage = ""
	}

	cvr, blocks, err := o.resolveCompany(ctx, &thread, req, msg)
	if err != nil {
		return nil, err
	}
	if cvr == "" {
		resp.Blocks = blocks
		o.threads.Put(thread)
		return resp, nil
	}
	thread.CVR = cvr

	years := extractYears(msg)
	if len(years) == 0 {
		years = req.Years
	}
	if len(years) == 0 {
		years = thread.Years
	}
	if len(years) > 0 {
		thread.Years = years
	}

	intent, err := o.classifier.Classify(ctx, msg)
	if err != nil {
		intent = IntentUnknown
	}

	switch intent {
	case IntentProfile:
		blocks, err = o.renderProfile(ctx, cvr)
	case IntentFilings:
		blocks, err = o.renderFilings(ctx, &thread, cvr)
	case IntentFinancials:
		blocks, err = o.renderFinancials(ctx, &thread, cvr, years, msg)
	case IntentCompare:
		blocks, err = o.renderCompare(ctx, &thread, cvr, years)
	default:
		blocks = []model.Block{model.TextBlock{Text: msgUnavailable}}
	}
	if err != nil {
		return nil, err
	}

	resp.Blocks = blocks
	o.threads.Put(thread)
	return resp, nil
}

// ExportLastTable renders the thread's most recent table as CSV.
func (o *Orchestrator) ExportLastTable(threadID string) ([]byte, error) {
	thread, ok := o.threads.Get(threadID)
	if !ok {
		return nil, apperr.NotFound("thread", threadID)
	}
	if thread.LastTable == nil {
		return nil, apperr.NotFound("table for thread", threadID)
	}
	return tableCSV(thread.LastTable), nil
}

func lastUserMessage(turns []model.ChatTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" && strings.TrimSpace(turns[i].Content) != "" {
			return strings.TrimSpace(turns[i].Content)
		}
	}
	return ""
}

// resolveChoice interprets a message as a selection from pending candidates:
// a listed CVR, or a 1-based index.
func resolveChoice(choices []model.ChoiceItem, msg string) string {
	msg = strings.TrimSpace(msg)
	for _, c := range choices {
		if msg == c.ID {
			return c.ID
		}
	}
	if n, err := strconv.Atoi(msg); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1].ID
	}
	return ""
}

// resolveCompany finds the CVR this turn is about. Precedence: explicit
// 8-digit token, request hint, thread context, then name search. A non-empty
// block slice with an empty cvr means the turn ends with a prompt.
func (o *Orchestrator) resolveCompany(ctx context.Context, thread *Thread, req model.ChatRequest, msg string) (string, []model.Block, error) {
	if cvr := cvrToken.FindString(msg); cvr != "" {
		return cvr, nil, nil
	}
	if req.CVR != "" {
		if !model.ValidCVR(req.CVR) {
			return "", nil, apperr.Validation("cvr hint must be exactly 8 digits")
		}
		return req.CVR, nil, nil
	}
	if thread.CVR != "" {
		return thread.CVR, nil, nil
	}

	query := searchTerms(msg)
	if query == "" {
		return "", []model.Block{model.TextBlock{Text: msgNoCompany}}, nil
	}

	res, err := o.provider.SearchCompanies(ctx, query, 5, 0)
	if err != nil {
		return "", nil, err
	}
	switch len(res.Items) {
	case 0:
		return "", []model.Block{model.TextBlock{Text: fmt.Sprintf("I could not find a company matching %q. %s", query, msgNoCompany)}}, nil
	case 1:
		return res.Items[0].CVR, nil, nil
	default:
		choices := make([]model.ChoiceItem, len(res.Items))
		for i, it := range res.Items {
			choices[i] = model.ChoiceItem{
				ID:          it.CVR,
				Label:       it.Name,
				Description: strings.TrimSpace(strings.Join(nonEmpty(it.City, it.Status), ", ")),
			}
		}
		thread.Choices = choices
		thread.PendingMessage = msg
		return "", []model.Block{model.ChoiceBlock{Prompt: msgPickOne, Choices: choices}}, nil
	}
}

// searchTerms strips intent keywords and year tokens from the message so
// only candidate company words reach the search query.
func searchTerms(msg string) string {
	msg = yearToken.ReplaceAllString(msg, " ")
	var kept []string
	for _, word := range strings.Fields(msg) {
		if isIntentKeyword(strings.ToLower(strings.Trim(word, ".,?!"))) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func isIntentKeyword(word string) bool {
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if word == kw {
				return true
			}
		}
	}
	return false
}

func extractYears(msg string) []int {
	seen := map[int]bool{}
	var years []int
	for _, tok := range yearToken.FindAllString(msg, -1) {
		y, err := strconv.Atoi(tok)
		if err != nil || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	return years
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (o *Orchestrator) renderProfile(ctx context.Context, cvr string) ([]model.Block, error) {
	res, err := o.provider.GetCompany(ctx, cvr)
	if err != nil {
		return nil, err
	}
	c := res.Company

	kv := map[string]string{"CVR": c.CVR}
	if c.Status != "" {
		kv["Status"] = c.Status
	}
	if c.Industry != nil && c.Industry.Text != "" {
		kv["Industry"] = c.Industry.Text
	}
	if len(c.Addresses) > 0 && c.Addresses[0].City != "" {
		kv["City"] = c.Addresses[0].City
	}
	return []model.Block{model.CardBlock{Title: c.Name, KV: kv}}, nil
}

func (o *Orchestrator) renderFilings(ctx context.Context, thread *Thread, cvr string) ([]model.Block, error) {
	res, err := o.provider.ListFilings(ctx, cvr, 10)
	if err != nil {
		return nil, err
	}
	if len(res.Filings) == 0 {
		return []model.Block{model.TextBlock{Text: fmt.Sprintf("No filings on record for %s.", cvr)}}, nil
	}

	rows := make([][]string, len(res.Filings))
	for i, f := range res.Filings {
		rows[i] = []string{f.Date, f.Type, f.URL}
	}
	table := model.TableBlock{
		Caption: fmt.Sprintf("Filings for %s", cvr),
		Columns: []string{"Date", "Type", "URL"},
		Rows:    rows,
	}
	thread.LastTable = &table
	return []model.Block{table}, nil
}

func (o *Orchestrator) renderFinancials(ctx context.Context, thread *Thread, cvr string, years []int, msg string) ([]model.Block, error) {
	res, err := o.provider.LatestAccounts(ctx, cvr)
	if err != nil {
		return nil, err
	}

	snapshots := selectSnapshots(res, years)
	if len(snapshots) == 0 {
		if len(years) > 0 {
			return []model.Block{model.TextBlock{Text: fmt.Sprintf("No accounts on record for %s in the requested years.", cvr)}}, nil
		}
		return []model.Block{model.TextBlock{Text: fmt.Sprintf("No accounts on record for %s.", cvr)}}, nil
	}

	fields := mentionedFields(msg)
	if len(fields) == 0 {
		fields = compare.Fields()
	}

	columns := []string{"Year"}
	for _, f := range fields {
		columns = append(columns, compare.FieldTitle(f))
	}
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		row := []string{yearLabel(s)}
		for _, f := range fields {
			row = append(row, compare.FormatDKK(compare.FieldValue(s, f)))
		}
		rows = append(rows, row)
	}

	table := model.TableBlock{
		Caption: fmt.Sprintf("Financials for %s", cvr),
		Columns: columns,
		Rows:    rows,
	}
	thread.LastTable = &table
	return []model.Block{table}, nil
}

func (o *Orchestrator) renderCompare(ctx context.Context, thread *Thread, cvr string, years []int) ([]model.Block, error) {
	if len(years) < 2 {
		return []model.Block{model.TextBlock{Text: "I need two distinct years to compare. Name both, for example \"compare 2022 and 2023\"."}}, nil
	}

	res, err := o.provider.LatestAccounts(ctx, cvr)
	if err != nil {
		return nil, err
	}

	// The two newest requested years pick their snapshots; unmatched years
	// stay nil and surface as "no comparable data".
	sorted := append([]int(nil), years...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	cur := snapshotForYear(res, sorted[0])
	prev := snapshotForYear(res, sorted[1])

	cmp := compare.Compare(cur, prev)
	cmp.Sources = res.Citations

	blocks := []model.Block{model.TextBlock{Text: cmp.Narrative}}
	if len(cmp.KeyChanges) > 0 {
		prevLabel := orDefault(cmp.PreviousPeriod, "Previous")
		curLabel := orDefault(cmp.CurrentPeriod, "Current")
		rows := make([][]string, len(cmp.KeyChanges))
		for i, d := range cmp.KeyChanges {
			pct := "N/A"
			if d.PercentageChange != nil {
				pct = d.PercentageChange.StringFixed(1) + "%"
			}
			rows[i] = []string{
				compare.FieldTitle(d.Field),
				compare.FormatDKK(d.PreviousValue),
				compare.FormatDKK(d.CurrentValue),
				compare.FormatDKK(d.AbsoluteChange),
				pct,
			}
		}
		table := model.TableBlock{
			Caption: fmt.Sprintf("Key changes for %s", cvr),
			Columns: []string{"Field", prevLabel, curLabel, "Change", "Change %"},
			Rows:    rows,
		}
		thread.LastTable = &table
		blocks = append(blocks, table)
	}
	return blocks, nil
}

// selectSnapshots returns the available snapshots newest first, filtered to
// the requested years when any are given.
func selectSnapshots(res *model.AccountsResult, years []int) []*model.AccountsSnapshot {
	var out []*model.AccountsSnapshot
	for _, s := range []*model.AccountsSnapshot{res.Current, res.Previous} {
		if s == nil {
			continue
		}
		if len(years) > 0 && !containsYear(years, s.YearOrZero()) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func snapshotForYear(res *model.AccountsResult, year int) *model.AccountsSnapshot {
	for _, s := range []*model.AccountsSnapshot{res.Current, res.Previous} {
		if s != nil && s.YearOrZero() == year {
			return s
		}
	}
	return nil
}

func containsYear(years []int, y int) bool {
	for _, v := range years {
		if v == y {
			return true
		}
	}
	return false
}

// mentionedFields returns the tracked fields named in the message, in
// tracked order.
func mentionedFields(msg string) []string {
	msg = strings.ToLower(msg)
	var out []string
	for _, f := range compare.Fields() {
		title := strings.ToLower(compare.FieldTitle(f))
		if strings.Contains(msg, title) || strings.Contains(msg, strings.ReplaceAll(f, "_", " ")) {
			out = append(out, f)
		}
	}
	return out
}

func yearLabel(s *model.AccountsSnapshot) string {
	if y := s.YearOrZero(); y > 0 {
		return strconv.Itoa(y)
	}
	return "Unknown"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
