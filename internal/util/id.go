package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier suitable for simulation IDs and file
// names: a UUIDv4 without dashes.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
