package jira

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from Tracker B. Jira reports failures as
// errorMessages plus per-field errors.
type APIError struct {
	StatusCode    int
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
	Body          string            `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "jira: HTTP %d", e.StatusCode)
	if len(e.ErrorMessages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.ErrorMessages, "; "))
	} else if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	for field, msg := range e.Errors {
		fmt.Fprintf(&b, "; %s: %s", field, msg)
	}
	return b.String()
}

// IsBadQuery reports whether err is Jira rejecting the JQL.
func IsBadQuery(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 400
}
