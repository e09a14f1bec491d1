package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Credits is the current spendable balance;
// every change to it is mirrored by a CreditLedgerEntry.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Credits      int       `json:"credits" db:"credits"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Claims carried inside the JWT issued at login.
type Claims struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}
