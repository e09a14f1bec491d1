package model

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a programmatic credential for the MCP endpoint. Only the SHA-256
// hash of the secret is stored; KeyPrefix keeps the first characters visible
// so users can tell their keys apart.
type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"userId" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"keyPrefix" db:"key_prefix"`
	IsActive   bool       `json:"isActive" db:"is_active"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}
