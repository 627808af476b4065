package util

import "github.com/google/uuid"

// NewID returns a URL-safe random ID.
func NewID() string {
	return uuid.NewString()
}
