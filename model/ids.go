package model

import (
	"strings"

	"github.com/gofrs/uuid"
)

// NewID returns a random opaque identifier for surveys, pages and questions.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// NewShareURL returns the public slug a survey is reachable under.
func NewShareURL() string {
	return strings.ReplaceAll(NewID(), "-", "")[:16]
}
