package feed

import "fmt"

// APIError represents a failure talking to the government open-data feed
type APIError struct {
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fuel feed error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("fuel feed error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new feed API error
func NewAPIError(message string, err error) *APIError {
	return &APIError{
		Message: message,
		Err:     err,
	}
}
