package atr

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from Tracker A.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("atr: HTTP %d on %s: %s", e.StatusCode, e.Path, e.Body)
}

// IsUnauthorized reports whether err is a 401 or 403 from Tracker A.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403)
}
