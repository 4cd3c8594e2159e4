package app

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/orphanscan/internal/core/ticket"
)

var markTime = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

func orphanSet(numbers ...string) *ticket.OpenSet[ticket.Record] {
	set := ticket.NewOpenSet[ticket.Record]()
	for _, n := range numbers {
		_ = set.Add(n, ticket.Record{Number: n, ID: "id-" + n, State: "Open"})
	}
	return set
}

func newTestUpdater(index *mockIndex, events *mockEventPublisher, metrics *mockMetrics, history *mockRunRepository) *IndexUpdater {
	cfg := IndexUpdaterConfig{
		Index:    index,
		Resolver: mockResolver{},
		Clock:    fixedClock(markTime),
	}
	if events != nil {
		cfg.Events = events
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	if history != nil {
		cfg.History = history
	}
	return NewIndexUpdater(cfg)
}

func TestIndexUpdater_MarkOrphans(t *testing.T) {
	index := newMockIndex()
	index.addDoc("BUG-1", "doc-1", "JIRA_BUG")
	index.addDoc("BUG-3", "doc-3", "")
	index.addDoc("BUG-4", "doc-4", "JIRA_BUG")
	index.updateErr["doc-4"] = errors.New("version conflict")

	events := &mockEventPublisher{}
	metrics := newMockMetrics()
	history := newMockRunRepository()

	report := newTestUpdater(index, events, metrics, history).MarkOrphans(context.Background(), MarkRequest{
		RunID:    "run-1",
		Category: "BUG",
		Orphans:  orphanSet("BUG-1", "BUG-2", "BUG-3", "BUG-4"),
	})

	want := MarkReport{Marked: 1, NotFound: 1, TypeUnknown: 1, Errors: 1}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if report.Failures() != 3 {
		t.Errorf("Failures() = %d, want 3", report.Failures())
	}

	if len(index.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(index.updates))
	}
	u := index.updates[0]
	if u.Index != "atr-jira_bug" || u.ID != "doc-1" {
		t.Errorf("update target = %s/%s, want atr-jira_bug/doc-1", u.Index, u.ID)
	}
	if !reflect.DeepEqual(u.Body, OrphanUpdate(markTime)) {
		t.Errorf("update body = %v", u.Body)
	}

	if len(events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(events.events))
	}
	ev := events.events[0]
	if ev.TicketNumber != "BUG-1" || ev.TicketID != "id-BUG-1" || ev.DocumentID != "doc-1" || ev.MarkedAt != markTime.UnixMilli() {
		t.Errorf("event = %+v", ev)
	}

	if metrics.marks[MarkMarked] != 1 || metrics.marks[MarkNotFound] != 1 || metrics.marks[MarkTypeUnknown] != 1 || metrics.marks[MarkError] != 1 {
		t.Errorf("metrics marks = %v", metrics.marks)
	}

	marks := history.marks["run-1"]
	if len(marks) != 4 {
		t.Fatalf("history marks = %d, want 4", len(marks))
	}
	if marks[3].Result != MarkError || marks[3].Detail != "version conflict" {
		t.Errorf("mark 4 = %+v", marks[3])
	}
}

func TestIndexUpdater_SearchError(t *testing.T) {
	index := newMockIndex()
	index.searchErr = errors.New("connection refused")

	report := newTestUpdater(index, nil, nil, nil).MarkOrphans(context.Background(), MarkRequest{
		Category: "BUG",
		Orphans:  orphanSet("BUG-1", "BUG-2"),
	})
	if report.Errors != 2 {
		t.Errorf("Errors = %d, want 2 (every ticket attempted)", report.Errors)
	}
}

func TestIndexUpdater_DryRun(t *testing.T) {
	index := newMockIndex()
	index.addDoc("BUG-1", "doc-1", "JIRA_BUG")
	events := &mockEventPublisher{}

	report := newTestUpdater(index, events, nil, nil).MarkOrphans(context.Background(), MarkRequest{
		Category: "BUG",
		Orphans:  orphanSet("BUG-1"),
		DryRun:   true,
	})
	if report.DryRun != 1 || report.Marked != 0 {
		t.Errorf("report = %+v, want one dry run", report)
	}
	if len(index.updates) != 0 {
		t.Errorf("dry run wrote %d updates", len(index.updates))
	}
	if len(events.events) != 0 {
		t.Errorf("dry run published %d events", len(events.events))
	}
}

func TestIndexUpdater_MarkTwice(t *testing.T) {
	index := newMockIndex()
	index.addDoc("BUG-1", "doc-1", "JIRA_BUG")
	updater := newTestUpdater(index, nil, nil, nil)

	req := MarkRequest{Category: "BUG", Orphans: orphanSet("BUG-1")}
	first := updater.MarkOrphans(context.Background(), req)
	second := updater.MarkOrphans(context.Background(), req)

	if first != second {
		t.Errorf("reports differ: %+v vs %+v", first, second)
	}
	if len(index.updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(index.updates))
	}
	if !reflect.DeepEqual(index.updates[0], index.updates[1]) {
		t.Error("repeated mark must send the same update")
	}
}

func TestIndexUpdater_EventFailureDoesNotFailMark(t *testing.T) {
	index := newMockIndex()
	index.addDoc("BUG-1", "doc-1", "JIRA_BUG")
	events := &mockEventPublisher{err: errors.New("nats: connection closed")}

	report := newTestUpdater(index, events, nil, nil).MarkOrphans(context.Background(), MarkRequest{
		Category: "BUG",
		Orphans:  orphanSet("BUG-1"),
	})
	if report.Marked != 1 {
		t.Errorf("Marked = %d, want 1", report.Marked)
	}
}

func TestIndexUpdater_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	index := newMockIndex()
	report := newTestUpdater(index, nil, nil, nil).MarkOrphans(ctx, MarkRequest{
		Category: "BUG",
		Orphans:  orphanSet("BUG-1", "BUG-2"),
	})
	if report.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", report.Skipped)
	}
}

func TestNumberQuery(t *testing.T) {
	got, err := json.Marshal(NumberQuery("fields.atr_coredata_number.value", "BUG-7"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"query":{"term":{"fields.atr_coredata_number.value":"BUG-7"}},"size":1}`
	if string(got) != want {
		t.Errorf("NumberQuery = %s, want %s", got, want)
	}
}

func TestOrphanUpdate(t *testing.T) {
	got, err := json.Marshal(OrphanUpdate(markTime))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"doc":{"fields":{"atr_coredata_state":{"value":"Orphan"}},"updateDate":1706779800000}}`
	if string(got) != want {
		t.Errorf("OrphanUpdate = %s, want %s", got, want)
	}
}

func TestDocumentType(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"coredata type", `{"fields":{"atr_coredata_type":{"value":"JIRA_BUG"}}}`, "jira_bug"},
		{"all fields fallback", `{"allFields":{"type":"Jira_Service_Request"}}`, "jira_service_request"},
		{"coredata wins", `{"fields":{"atr_coredata_type":{"value":"A"}},"allFields":{"type":"B"}}`, "a"},
		{"empty coredata falls back", `{"fields":{"atr_coredata_type":{"value":" "}},"allFields":{"type":"B"}}`, "b"},
		{"malformed coredata falls back", `{"fields":"oops","allFields":{"type":"B"}}`, "b"},
		{"non-string value", `{"fields":{"atr_coredata_type":{"value":42}}}`, ""},
		{"missing", `{"other":1}`, ""},
		{"invalid json", `{`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocumentType(json.RawMessage(tt.source)); got != tt.want {
				t.Errorf("DocumentType() = %q, want %q", got, tt.want)
			}
		})
	}
}
