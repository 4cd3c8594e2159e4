package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/orphanscan/internal/core/jql"
	"github.com/example/orphanscan/internal/core/reconcile"
)

// Plugin field ids read from the Tracker B plugin configuration document.
const (
	FieldHomeURL            = "JIRA_HOMEURL"
	FieldServiceFields      = "JIRA_FIELDS_SREQUEST"
	FieldBugFields          = "JIRA_FIELDS_BUG"
	FieldServiceIssueType   = "JIRA_SREQUEST_ISSUE_TYPES"
	FieldBugProjects        = "JIRA_PROJECTS_BUG"
	FieldEpicJQL            = "JIRA_SREQUEST_EPIC"
	FieldEpicSwitch         = "JIRA_SREQUEST_SWITCH"
	FieldBugFilters         = "JIRA_FILTERS_BUG"
	FieldServiceFilters     = "JIRA_FILTERS_SREQUEST"
	FieldJQLFiltersByType   = "JIRA_JQL_FILTERS"
	FieldServiceProjectsMap = "JIRA_SREQ_PROJECT_ITYPES"
)

// Tracker A ticket types driving the two categories.
const (
	TicketTypeServiceRequest = "JIRA_SERVICE_REQUEST"
	TicketTypeBug            = "JIRA_BUG"
	BugIssueType             = "Bug"
)

// PluginDocument is the raw plugin configuration returned by Tracker A.
type PluginDocument struct {
	Fields []PluginField `json:"fields"`
}

// PluginField is one id/value pair of the plugin configuration.
type PluginField struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// FilterKind tags how a filter fragment was supplied.
type FilterKind int

const (
	FilterAbsent FilterKind = iota
	FilterStructured
	FilterRaw
)

func (k FilterKind) String() string {
	switch k {
	case FilterStructured:
		return "structured"
	case FilterRaw:
		return "raw"
	default:
		return "absent"
	}
}

// Filter is a free-form JQL fragment resolved once at load time.
type Filter struct {
	Kind FilterKind
	JQL  string
}

// Clause returns the fragment, or "" when absent.
func (f Filter) Clause() string {
	if f.Kind == FilterAbsent {
		return ""
	}
	return f.JQL
}

// ParseFilter resolves a filter value. A JSON object contributes its "jql"
// member. Anything else that is not JSON is taken verbatim when allowRaw
// is set and dropped otherwise.
func ParseFilter(value string, allowRaw bool) Filter {
	value = strings.TrimSpace(value)
	if value == "" {
		return Filter{}
	}

	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		if allowRaw {
			return Filter{Kind: FilterRaw, JQL: value}
		}
		return Filter{}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return Filter{}
	}
	q, _ := obj["jql"].(string)
	if strings.TrimSpace(q) == "" {
		return Filter{}
	}
	return Filter{Kind: FilterStructured, JQL: q}
}

// Plugin is the typed plugin configuration.
type Plugin struct {
	HomeURL string

	ServiceFields    string
	ServiceIssueType string
	ServiceFilter    Filter

	BugFields   string
	BugProjects []string
	BugFilter   Filter

	EpicJQL    string
	EpicSwitch bool

	// CustomFilters and ProjectsByIssueType are keyed by lower-cased
	// issue type.
	CustomFilters       map[string]string
	ProjectsByIssueType map[string][]string
}

// ParsePlugin validates a plugin document in a single pass. Only a missing
// home URL is fatal; absent category fields surface later as skipped
// categories.
func ParsePlugin(doc PluginDocument) (*Plugin, error) {
	values := make(map[string]string, len(doc.Fields))
	for _, f := range doc.Fields {
		if _, seen := values[f.ID]; seen {
			continue
		}
		values[f.ID] = rawString(f.Value)
	}

	p := &Plugin{
		HomeURL:          strings.TrimRight(strings.TrimSpace(values[FieldHomeURL]), "/"),
		ServiceFields:    strings.TrimSpace(values[FieldServiceFields]),
		ServiceIssueType: strings.TrimSpace(values[FieldServiceIssueType]),
		ServiceFilter:    ParseFilter(values[FieldServiceFilters], true),
		BugFields:        strings.TrimSpace(values[FieldBugFields]),
		BugProjects:      jql.SplitList(values[FieldBugProjects]),
		BugFilter:        ParseFilter(values[FieldBugFilters], false),
		EpicJQL:          strings.TrimSpace(values[FieldEpicJQL]),
		EpicSwitch:       strings.TrimSpace(values[FieldEpicSwitch]) == "true",
	}

	p.CustomFilters = parseStringMap(values[FieldJQLFiltersByType])
	p.ProjectsByIssueType = make(map[string][]string)
	for k, v := range parseStringMap(values[FieldServiceProjectsMap]) {
		if projects := jql.SplitList(v); len(projects) > 0 {
			p.ProjectsByIssueType[k] = projects
		}
	}

	if p.HomeURL == "" {
		return nil, fmt.Errorf("%w: field %s", reconcile.ErrMissingHomeURL, FieldHomeURL)
	}
	return p, nil
}

// Categories returns the configured categories, service requests first.
// Categories whose required fields are absent are returned with Missing set.
func (p *Plugin) Categories() []reconcile.Category {
	sr := reconcile.Category{
		TrackerTypeID: TicketTypeServiceRequest,
		ShortLabel:    "SREQUEST",
		Fields:        p.ServiceFields,
		IssueType:     p.ServiceIssueType,
		Kind:          reconcile.KindServiceRequest,
	}
	if p.ServiceFields == "" {
		sr.Missing = append(sr.Missing, FieldServiceFields)
	}
	if p.ServiceIssueType == "" {
		sr.Missing = append(sr.Missing, FieldServiceIssueType)
	}

	bug := reconcile.Category{
		TrackerTypeID: TicketTypeBug,
		ShortLabel:    "BUG",
		Fields:        p.BugFields,
		IssueType:     BugIssueType,
		Kind:          reconcile.KindBug,
	}
	if p.BugFields == "" {
		bug.Missing = append(bug.Missing, FieldBugFields)
	}
	if len(p.BugProjects) == 0 {
		bug.Missing = append(bug.Missing, FieldBugProjects)
	}

	return []reconcile.Category{sr, bug}
}

// EpicStatus classifies epic scoping before any resolution happens.
func (p *Plugin) EpicStatus() reconcile.EpicStatus {
	switch {
	case !p.EpicSwitch:
		return reconcile.EpicDisabled
	case p.EpicJQL == "":
		return reconcile.EpicNotConfigured
	default:
		return reconcile.EpicPending
	}
}

// CustomFilter returns the per-issue-type JQL fragment, if any.
func (p *Plugin) CustomFilter(issueType string) string {
	return p.CustomFilters[strings.ToLower(issueType)]
}

// ProjectsFor returns the projects mapped to an issue type, if any.
func (p *Plugin) ProjectsFor(issueType string) []string {
	return p.ProjectsByIssueType[strings.ToLower(issueType)]
}

// rawString returns a JSON string value unquoted, and any other JSON value
// as its literal text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// parseStringMap decodes a JSON object whose values are strings or lists of
// strings. Keys are lower-cased. Invalid JSON yields an empty map.
func parseStringMap(value string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(value) == "" {
		return out
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return out
	}
	for k, v := range decoded {
		key := strings.ToLower(strings.TrimSpace(k))
		switch typed := v.(type) {
		case string:
			out[key] = typed
		case []any:
			parts := make([]string, 0, len(typed))
			for _, item := range typed {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			out[key] = strings.Join(parts, ",")
		}
	}
	return out
}
