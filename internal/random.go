package internal

import "github.com/google/uuid"

// NewTabID returns the identifier that scopes the reload-loop guard to one
// tab lifetime.
func NewTabID() string {
	return uuid.New().String()
}
