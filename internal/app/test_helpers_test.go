package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// mockTicketPlatform implements secondary.TicketPlatform for testing.
// pages maps a ticket type to its listing pages; a page index past the end
// returns an empty list.
type mockTicketPlatform struct {
	mu       sync.Mutex
	pages    map[string][][]secondary.RawTicket
	failAt   map[string]int // ticket type -> page index returning an error
	nonList  map[string]int // ticket type -> page index returning a non-list payload
	requests []secondary.TicketPageRequest
}

func newMockTicketPlatform() *mockTicketPlatform {
	return &mockTicketPlatform{
		pages:   make(map[string][][]secondary.RawTicket),
		failAt:  make(map[string]int),
		nonList: make(map[string]int),
	}
}

func (m *mockTicketPlatform) PluginConfig(ctx context.Context) (*config.PluginDocument, error) {
	return &config.PluginDocument{}, nil
}

func (m *mockTicketPlatform) ListTickets(ctx context.Context, req secondary.TicketPageRequest) (*secondary.TicketPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if page, ok := m.failAt[req.TicketType]; ok && page == req.Page {
		return nil, errors.New("HTTP 502")
	}
	if page, ok := m.nonList[req.TicketType]; ok && page == req.Page {
		return &secondary.TicketPage{}, nil
	}
	pages := m.pages[req.TicketType]
	if req.Page >= len(pages) {
		return &secondary.TicketPage{IsList: true}, nil
	}
	return &secondary.TicketPage{IsList: true, Tickets: pages[req.Page]}, nil
}

func (m *mockTicketPlatform) requestsFor(ticketType string) int {
	n := 0
	for _, r := range m.requests {
		if r.TicketType == ticketType {
			n++
		}
	}
	return n
}

// mockSearcher implements secondary.IssueSearcher for testing.
type mockSearcher struct {
	mu       sync.Mutex
	searchFn func(req secondary.SearchRequest) (*secondary.SearchPage, error)
	requests []secondary.SearchRequest
}

func (m *mockSearcher) Search(ctx context.Context, req secondary.SearchRequest) (*secondary.SearchPage, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.searchFn == nil {
		return &secondary.SearchPage{}, nil
	}
	return m.searchFn(req)
}

func (m *mockSearcher) requestsWithLabel(prefix string) []secondary.SearchRequest {
	var out []secondary.SearchRequest
	for _, r := range m.requests {
		if strings.HasPrefix(r.Label, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// issuesPage returns a single complete page of open issues.
func issuesPage(keys ...string) *secondary.SearchPage {
	page := &secondary.SearchPage{Total: len(keys)}
	for _, k := range keys {
		page.Issues = append(page.Issues, secondary.RawIssue{Key: k, Status: "Open"})
	}
	return page
}

// mockIndex implements secondary.SearchIndex for testing. docs maps a
// ticket number to its document.
type mockIndex struct {
	mu        sync.Mutex
	docs      map[string]secondary.IndexHit
	searchErr error
	updateErr map[string]error
	updates   []indexUpdate
	onSearch  func()
}

type indexUpdate struct {
	Index string
	ID    string
	Body  map[string]any
}

func newMockIndex() *mockIndex {
	return &mockIndex{docs: make(map[string]secondary.IndexHit), updateErr: make(map[string]error)}
}

// addDoc registers a document of ticketType for number.
func (m *mockIndex) addDoc(number, id, ticketType string) {
	source, _ := json.Marshal(map[string]any{
		"fields": map[string]any{
			"atr_coredata_number": map[string]any{"value": number},
			"atr_coredata_type":   map[string]any{"value": ticketType},
		},
	})
	m.docs[number] = secondary.IndexHit{Index: strings.ToLower(ticketType), ID: id, Source: source}
}

func (m *mockIndex) Search(ctx context.Context, index string, query map[string]any) ([]secondary.IndexHit, error) {
	if m.onSearch != nil {
		m.onSearch()
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	term, _ := query["query"].(map[string]any)["term"].(map[string]any)
	for _, v := range term {
		if hit, ok := m.docs[fmt.Sprint(v)]; ok {
			return []secondary.IndexHit{hit}, nil
		}
	}
	return nil, nil
}

func (m *mockIndex) Update(ctx context.Context, index, id string, body map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.updates = append(m.updates, indexUpdate{Index: index, ID: id, Body: body})
	return nil
}

// mockResolver implements secondary.IndexResolver by returning the type.
type mockResolver struct{}

func (mockResolver) IndexFor(ticketType string) string {
	return "atr-" + ticketType
}

// mockRunRepository implements secondary.RunRepository for testing.
type mockRunRepository struct {
	mu         sync.Mutex
	runs       map[string]*secondary.RunRecord
	categories map[string][]*secondary.CategoryRecord
	marks      map[string][]*secondary.MarkRecord
	pruneDays  int
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{
		runs:       make(map[string]*secondary.RunRecord),
		categories: make(map[string][]*secondary.CategoryRecord),
		marks:      make(map[string][]*secondary.MarkRecord),
	}
}

func (m *mockRunRepository) CreateRun(ctx context.Context, run *secondary.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *mockRunRepository) FinishRun(ctx context.Context, run *secondary.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.runs[run.ID]
	if !ok {
		return errors.New("not found")
	}
	existing.Status = run.Status
	existing.EpicStatus = run.EpicStatus
	existing.EpicCount = run.EpicCount
	existing.FinishedAt = run.FinishedAt
	return nil
}

func (m *mockRunRepository) RecordCategory(ctx context.Context, c *secondary.CategoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.RunID] = append(m.categories[c.RunID], c)
	return nil
}

func (m *mockRunRepository) RecordMark(ctx context.Context, mark *secondary.MarkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[mark.RunID] = append(m.marks[mark.RunID], mark)
	return nil
}

func (m *mockRunRepository) GetRun(ctx context.Context, id string) (*secondary.RunRecord, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (m *mockRunRepository) ListRuns(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	var result []*secondary.RunRecord
	for _, r := range m.runs {
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		result = append(result, r)
	}
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (m *mockRunRepository) ListCategories(ctx context.Context, runID string) ([]*secondary.CategoryRecord, error) {
	return m.categories[runID], nil
}

func (m *mockRunRepository) ListMarks(ctx context.Context, runID string) ([]*secondary.MarkRecord, error) {
	return m.marks[runID], nil
}

func (m *mockRunRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	m.pruneDays = days
	return 2, nil
}

// mockEventPublisher implements secondary.EventPublisher for testing.
type mockEventPublisher struct {
	mu     sync.Mutex
	events []secondary.OrphanEvent
	err    error
}

func (m *mockEventPublisher) PublishOrphanMarked(ctx context.Context, event secondary.OrphanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// mockMetrics implements secondary.MetricsRecorder for testing.
type mockMetrics struct {
	categories map[string]string
	marks      map[string]int
	runStatus  string
	flushed    bool
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{categories: make(map[string]string), marks: make(map[string]int)}
}

func (m *mockMetrics) ObserveCategory(category, outcome string, open, remote, orphans int) {
	m.categories[category] = outcome
}

func (m *mockMetrics) ObserveMark(category, result string) {
	m.marks[result]++
}

func (m *mockMetrics) ObserveRun(status string, durationSeconds float64) {
	m.runStatus = status
}

func (m *mockMetrics) Flush(ctx context.Context) error {
	m.flushed = true
	return nil
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// rawTickets builds open tickets numbered prefix-1..prefix-n.
func rawTickets(prefix string, from, n int, lastUpdate string) []secondary.RawTicket {
	out := make([]secondary.RawTicket, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, secondary.RawTicket{
			ID:         fmt.Sprintf("id-%s-%d", prefix, i),
			Number:     fmt.Sprintf("%s-%d", prefix, i),
			State:      "Open",
			LastUpdate: lastUpdate,
		})
	}
	return out
}
