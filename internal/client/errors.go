package client

import (
	"fmt"
)

// FetchError reports a failed page read: network failure or non-2xx response.
type FetchError struct {
	Page       int
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %s", e.Page, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError reports a failed create, update or delete.
type MutationError struct {
	Op         string // "create", "update" or "delete"
	ID         string
	StatusCode int
	Message    string
	Err        error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s transaction: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s transaction %s: %s", e.Op, e.ID, e.Message)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
