package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-char hex request id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
