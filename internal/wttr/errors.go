// internal/wttr/errors.go
package wttr

import "fmt"

// NetworkError reports a transport-level failure while contacting the
// weather provider: DNS, connection, timeout, or a non-200 response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that is not valid provider JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedPayloadError reports provider JSON that decoded cleanly but is
// missing an expected entry, such as an empty current_condition collection.
// Field names the first access that failed.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed provider payload: %s", e.Field)
}

// wrapFailure produces the diagnostic every adapter presents, regardless of
// which of the three error kinds occurred. The underlying error stays
// reachable through errors.As.
func wrapFailure(query string, err error) error {
	return fmt.Errorf("Failed to get weather for %s: %w", query, err)
}
