package ticket

import (
	"testing"
	"time"
)

func TestStateFilter_Excluded(t *testing.T) {
	f := NewStateFilter([]string{"Closed", " Resolved ", ""})

	tests := []struct {
		state string
		want  bool
	}{
		{"Closed", true},
		{"closed", true},
		{"RESOLVED", true},
		{"  resolved", true},
		{"Open", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := f.Excluded(tt.state); got != tt.want {
				t.Errorf("Excluded(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestOpenSet_Add(t *testing.T) {
	s := NewOpenSet[RemoteRecord]()

	if err := s.Add("T-1", RemoteRecord{Key: "T-1", State: "Open"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("", RemoteRecord{}); err == nil {
		t.Error("expected error for empty key")
	}
	if err := s.Add("T-1", RemoteRecord{Key: "T-1", State: "Done"}); err == nil {
		t.Error("expected error for duplicate key")
	}

	got, _ := s.Get("T-1")
	if got.State != "Open" {
		t.Errorf("duplicate insert replaced record: state = %q", got.State)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestOpenSet_KeysPreserveInsertionOrder(t *testing.T) {
	s := NewOpenSet[int]()
	for i, k := range []string{"c", "a", "b"} {
		_ = s.Add(k, i)
	}

	keys := s.Keys()
	want := []string{"c", "a", "b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
	}
}

func TestOpenSet_Merge(t *testing.T) {
	a := NewOpenSet[int]()
	_ = a.Add("x", 1)
	b := NewOpenSet[int]()
	_ = b.Add("x", 2)
	_ = b.Add("y", 3)

	if added := a.Merge(b); added != 1 {
		t.Errorf("Merge added %d, want 1", added)
	}
	if v, _ := a.Get("x"); v != 1 {
		t.Errorf("x = %d, want 1 (first wins)", v)
	}
	if !a.Has("y") {
		t.Error("expected y after merge")
	}
}

func TestOpen(t *testing.T) {
	filter := NewStateFilter([]string{"Closed", "Resolved"})
	records := []Record{
		{Number: "T-1", ID: "1", State: "Open", LastUpdateRaw: "2024-03-01T10:00:00Z"},
		{Number: "T-2", ID: "2", State: "closed", LastUpdateRaw: "2024-03-01T10:00:00Z"},
		{Number: "", ID: "3", State: "Open", LastUpdateRaw: "2024-03-01T10:00:00Z"},
		{Number: "T-4", ID: "", State: "Open", LastUpdateRaw: "2024-03-01T10:00:00Z"},
		{Number: "T-5", ID: "5", State: "Open", LastUpdateRaw: ""},
		{Number: "T-6", ID: "6", State: " In Progress ", LastUpdateRaw: "2024-02-01 08:30:00"},
		{Number: "T-7", ID: "7", State: "Open", LastUpdateRaw: "yesterday"},
		{Number: "T-1", ID: "99", State: "Open", LastUpdateRaw: "2024-03-01T10:00:00Z"},
	}

	set := Open(records, filter)

	want := []string{"T-1", "T-6", "T-7"}
	keys := set.Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
	}

	first, _ := set.Get("T-1")
	if first.ID != "1" {
		t.Errorf("T-1 id = %q, want first occurrence", first.ID)
	}
	six, _ := set.Get("T-6")
	if six.State != "In Progress" {
		t.Errorf("state not trimmed: %q", six.State)
	}
	seven, _ := set.Get("T-7")
	if !seven.LastUpdate.IsZero() {
		t.Error("unparseable timestamp should leave LastUpdate zero")
	}
}

func TestOpenRemote(t *testing.T) {
	filter := NewStateFilter([]string{"Closed"})
	set := OpenRemote([]RemoteRecord{
		{Key: "J-1", State: "Open"},
		{Key: "J-2", State: "CLOSED"},
		{Key: "", State: "Open"},
		{Key: "J-3", State: ""},
	}, filter)

	if set.Len() != 2 || !set.Has("J-1") || !set.Has("J-3") {
		t.Errorf("OpenRemote keys = %v, want [J-1 J-3]", set.Keys())
	}
}

func TestOrphans(t *testing.T) {
	a := NewOpenSet[Record]()
	_ = a.Add("T-1", Record{Number: "T-1", ID: "1"})
	_ = a.Add("T-2", Record{Number: "T-2", ID: "2"})
	_ = a.Add("t-3", Record{Number: "t-3", ID: "3"})

	b := NewOpenSet[RemoteRecord]()
	_ = b.Add("T-2", RemoteRecord{Key: "T-2"})
	_ = b.Add("T-3", RemoteRecord{Key: "T-3"})

	orphans := Orphans(a, b)

	keys := orphans.Keys()
	if len(keys) != 2 || keys[0] != "T-1" || keys[1] != "t-3" {
		t.Fatalf("Orphans = %v, want [T-1 t-3]", keys)
	}
	for _, k := range keys {
		if !a.Has(k) || b.Has(k) {
			t.Errorf("orphan %q must be in A and not in B", k)
		}
	}
}

func TestOrphans_EmptyRemote(t *testing.T) {
	a := NewOpenSet[Record]()
	_ = a.Add("T-1", Record{Number: "T-1"})

	orphans := Orphans(a, NewOpenSet[RemoteRecord]())
	if orphans.Len() != 1 {
		t.Errorf("expected every A ticket orphaned, got %d", orphans.Len())
	}
}

func TestOldestUpdate(t *testing.T) {
	set := Open([]Record{
		{Number: "T-1", ID: "1", State: "Open", LastUpdateRaw: "2024-03-01T10:00:00Z"},
		{Number: "T-2", ID: "2", State: "Open", LastUpdateRaw: "2024-01-15 07:45:59"},
		{Number: "T-3", ID: "3", State: "Open", LastUpdateRaw: "garbage"},
	}, NewStateFilter(nil))

	oldest, ok := OldestUpdate(set)
	if !ok {
		t.Fatal("expected an oldest timestamp")
	}
	if got := oldest.Format(QueryTimeLayout); got != "2024-01-15 07:45" {
		t.Errorf("oldest = %q, want 2024-01-15 07:45", got)
	}
}

func TestOldestUpdate_NoParseableDates(t *testing.T) {
	set := NewOpenSet[Record]()
	_ = set.Add("T-1", Record{Number: "T-1", LastUpdateRaw: "garbage"})

	if _, ok := OldestUpdate(set); ok {
		t.Error("expected no oldest timestamp")
	}
}

func TestParseUpdate(t *testing.T) {
	got, ok := ParseUpdate("2024-05-06T01:02:03Z")
	if !ok {
		t.Fatal("ParseUpdate failed on ISO layout")
	}
	if !got.Equal(time.Date(2024, 5, 6, 1, 2, 3, 0, time.UTC)) {
		t.Errorf("ParseUpdate = %v", got)
	}
	if _, ok := ParseUpdate("06/05/2024"); ok {
		t.Error("expected unknown layout to fail")
	}
}
