package common

import (
	"fmt"

	"github.com/google/uuid"
)

// NewFactID generates a unique fact ID for a user- or AI-added fact.
// Format: <side>-<uuid>. Generated analysis facts use positional IDs
// (source-0, target-3); custom facts need collision-free ones.
func NewFactID(side string) string {
	return fmt.Sprintf("%s-%s", side, uuid.New().String())
}
