package entity

import (
	"strings"
	"time"
)

// Topic groups message references under a title owned by one user.
type Topic struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeTitle trims and lowercases a topic title.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
