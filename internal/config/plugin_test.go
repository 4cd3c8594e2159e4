package config

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/orphanscan/internal/core/reconcile"
)

func field(id string, value any) PluginField {
	raw, _ := json.Marshal(value)
	return PluginField{ID: id, Value: raw}
}

func fullDocument() PluginDocument {
	return PluginDocument{Fields: []PluginField{
		field(FieldHomeURL, "https://jira.example.com/"),
		field(FieldServiceFields, "status,summary"),
		field(FieldServiceIssueType, "Service Request"),
		field(FieldBugFields, "status"),
		field(FieldBugProjects, "PROJ, OPS"),
		field(FieldEpicJQL, `project = "SR"`),
		field(FieldEpicSwitch, "true"),
		field(FieldBugFilters, `{"jql": "labels = prod"}`),
		field(FieldServiceFilters, "priority = High"),
		field(FieldJQLFiltersByType, `{"Service Request": "component = Core"}`),
		field(FieldServiceProjectsMap, `{"service request": "SR1, SR2"}`),
	}}
}

func TestParsePlugin(t *testing.T) {
	p, err := ParsePlugin(fullDocument())
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}

	if p.HomeURL != "https://jira.example.com" {
		t.Errorf("HomeURL = %q, want trailing slash trimmed", p.HomeURL)
	}
	if len(p.BugProjects) != 2 || p.BugProjects[1] != "OPS" {
		t.Errorf("BugProjects = %v", p.BugProjects)
	}
	if p.BugFilter.Kind != FilterStructured || p.BugFilter.JQL != "labels = prod" {
		t.Errorf("BugFilter = %+v", p.BugFilter)
	}
	if p.ServiceFilter.Kind != FilterRaw || p.ServiceFilter.Clause() != "priority = High" {
		t.Errorf("ServiceFilter = %+v", p.ServiceFilter)
	}
	if !p.EpicSwitch {
		t.Error("EpicSwitch = false, want true")
	}
	if got := p.CustomFilter("SERVICE REQUEST"); got != "component = Core" {
		t.Errorf("CustomFilter = %q", got)
	}
	if got := p.ProjectsFor("Service Request"); len(got) != 2 || got[0] != "SR1" {
		t.Errorf("ProjectsFor = %v", got)
	}
	if p.EpicStatus() != reconcile.EpicPending {
		t.Errorf("EpicStatus = %v, want pending", p.EpicStatus())
	}
}

func TestParsePlugin_MissingHomeURL(t *testing.T) {
	_, err := ParsePlugin(PluginDocument{Fields: []PluginField{
		field(FieldBugFields, "status"),
	}})
	if !errors.Is(err, reconcile.ErrMissingHomeURL) {
		t.Errorf("error = %v, want ErrMissingHomeURL", err)
	}
}

func TestParsePlugin_FirstFieldWins(t *testing.T) {
	p, err := ParsePlugin(PluginDocument{Fields: []PluginField{
		field(FieldHomeURL, "https://first"),
		field(FieldHomeURL, "https://second"),
	}})
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}
	if p.HomeURL != "https://first" {
		t.Errorf("HomeURL = %q, want first occurrence", p.HomeURL)
	}
}

func TestParsePlugin_BooleanSwitch(t *testing.T) {
	p, err := ParsePlugin(PluginDocument{Fields: []PluginField{
		field(FieldHomeURL, "https://jira"),
		field(FieldEpicSwitch, true),
	}})
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}
	if !p.EpicSwitch {
		t.Error("expected JSON true to enable the switch")
	}
	if p.EpicStatus() != reconcile.EpicNotConfigured {
		t.Errorf("EpicStatus = %v, want not_configured", p.EpicStatus())
	}
}

func TestParsePlugin_InvalidMaps(t *testing.T) {
	p, err := ParsePlugin(PluginDocument{Fields: []PluginField{
		field(FieldHomeURL, "https://jira"),
		field(FieldJQLFiltersByType, "{not json"),
		field(FieldServiceProjectsMap, `["a","b"]`),
	}})
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}
	if len(p.CustomFilters) != 0 {
		t.Errorf("CustomFilters = %v, want empty", p.CustomFilters)
	}
	if len(p.ProjectsByIssueType) != 0 {
		t.Errorf("ProjectsByIssueType = %v, want empty", p.ProjectsByIssueType)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		allowRaw bool
		wantKind FilterKind
		wantJQL  string
	}{
		{"empty", "", true, FilterAbsent, ""},
		{"structured", `{"jql": "labels = a"}`, false, FilterStructured, "labels = a"},
		{"structured without jql", `{"other": 1}`, true, FilterAbsent, ""},
		{"json array", `["x"]`, true, FilterAbsent, ""},
		{"raw allowed", "  status = Open ", true, FilterRaw, "status = Open"},
		{"raw rejected", "status = Open", false, FilterAbsent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ParseFilter(tt.value, tt.allowRaw)
			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", f.Kind, tt.wantKind)
			}
			if f.Clause() != tt.wantJQL {
				t.Errorf("Clause() = %q, want %q", f.Clause(), tt.wantJQL)
			}
		})
	}
}

func TestPlugin_Categories(t *testing.T) {
	p, err := ParsePlugin(fullDocument())
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}

	cats := p.Categories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Kind != reconcile.KindServiceRequest || cats[1].Kind != reconcile.KindBug {
		t.Errorf("category order = %v, %v; want service request first", cats[0].Kind, cats[1].Kind)
	}
	if cats[1].IssueType != "Bug" || cats[1].TrackerTypeID != TicketTypeBug {
		t.Errorf("bug category = %+v", cats[1])
	}
	for _, c := range cats {
		if len(c.Missing) != 0 {
			t.Errorf("%s unexpectedly missing %v", c.ShortLabel, c.Missing)
		}
	}
}

func TestPlugin_Categories_Missing(t *testing.T) {
	p, err := ParsePlugin(PluginDocument{Fields: []PluginField{
		field(FieldHomeURL, "https://jira"),
		field(FieldBugFields, "status"),
	}})
	if err != nil {
		t.Fatalf("ParsePlugin failed: %v", err)
	}

	cats := p.Categories()
	if len(cats[0].Missing) != 2 {
		t.Errorf("service request Missing = %v, want 2 fields", cats[0].Missing)
	}
	if len(cats[1].Missing) != 1 || cats[1].Missing[0] != FieldBugProjects {
		t.Errorf("bug Missing = %v, want [%s]", cats[1].Missing, FieldBugProjects)
	}
}
