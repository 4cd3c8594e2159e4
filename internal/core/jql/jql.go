// Package jql builds JQL query strings for Tracker B.
// Builders are pure string functions; clause order is preserved so the
// same inputs always produce the same query text.
package jql

import (
	"strings"
	"time"

	"github.com/example/orphanscan/internal/core/ticket"
)

// EpicLinkField is the field linking an issue to its parent epic.
const EpicLinkField = "Epic Link"

// Build joins the non-empty clauses with AND in the given order.
func Build(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " AND ")
}

// Quote renders s as a JQL string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// List renders values as a parenthesized list of quoted literals.
// Values are trimmed and empty ones dropped. Returns "" when nothing is left.
func List(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		quoted = append(quoted, Quote(v))
	}
	if len(quoted) == 0 {
		return ""
	}
	return "(" + strings.Join(quoted, ",") + ")"
}

// SplitList splits a comma-separated config value such as "ABC, DEF".
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// In renders `field IN (...)`. field is emitted verbatim so callers can pass
// either a bare or a quoted field name. Returns "" for an empty list.
func In(field string, values []string) string {
	list := List(values)
	if list == "" {
		return ""
	}
	return field + " IN " + list
}

// Eq renders `field="value"`. field is emitted verbatim.
func Eq(field, value string) string {
	return field + "=" + Quote(value)
}

// EpicLink renders the epic-membership clause over keys.
func EpicLink(keys []string) string {
	return In(Quote(EpicLinkField), keys)
}

// UpdatedAfter formats t at minute precision, as JQL date literals expect.
func UpdatedAfter(t time.Time) string {
	return t.Format(ticket.QueryTimeLayout)
}

// Group wraps a free-form clause in parentheses. Empty stays empty.
func Group(clause string) string {
	if strings.TrimSpace(clause) == "" {
		return ""
	}
	return "(" + clause + ")"
}

// BugClauses returns the ordered clauses for a bug category query.
func BugClauses(projects []string, issueType, oldest, filter string) []string {
	project := In(Quote("project"), projects)
	return []string{
		Group(project),
		Eq(Quote("issuetype"), issueType),
		Quote("updated") + ">" + Quote(oldest),
		filter,
	}
}

// ServiceRequestClauses returns the ordered base clauses for a service
// request query, without the epic clause.
func ServiceRequestClauses(projects []string, issueType, oldest, filter, custom string) []string {
	return []string{
		In("project", projects),
		Eq("issuetype", issueType),
		"updated > " + Quote(oldest),
		filter,
		custom,
	}
}

// EpicQuery returns the query selecting epics that match epicFilter.
func EpicQuery(epicFilter string) string {
	return Build(Eq(Quote("issuetype"), "Epic"), Group(epicFilter))
}
