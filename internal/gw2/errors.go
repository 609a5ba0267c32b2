package gw2

import "fmt"

var (
	ErrNotFound = fmt.Errorf("not found")

	// ErrInvalidKey covers 401/403 responses: the key is missing, revoked
	// or lacks the permission the endpoint needs.
	ErrInvalidKey = fmt.Errorf("invalid api key")
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gw2 api status %d: %s", e.Status, e.Body)
}
