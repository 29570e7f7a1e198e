package services

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a provider answers 2xx with no usable text.
var ErrEmptyResponse = errors.New("oracle returned an empty response")

const maxErrorBody = 512

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func newStatusError(provider string, statusCode int, body []byte) *StatusError {
	b := string(body)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return &StatusError{Provider: provider, StatusCode: statusCode, Body: b}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}
