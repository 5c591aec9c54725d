package core

import "github.com/google/uuid"

// NewRecordID returns a time-ordered unique identifier (UUIDv7: millisecond timestamp + random bits).
func NewRecordID() string {
	return uuid.Must(uuid.NewV7()).String()
}
