package model

import (
	"time"

	"github.com/google/uuid"
)

// Credit costs per billable action.
const (
	CreditCostPresentationCreate = 10
)

// CreditAction names a billable (or compensating) operation in the ledger.
type CreditAction string

const (
	ActionPresentationCreate CreditAction = "presentation_create"
	ActionRefund             CreditAction = "refund"
	ActionGrant              CreditAction = "grant"
)

// CreditLedgerEntry is one append-only audit record of a balance change.
// BalanceAfter = BalanceBefore - CreditsUsed holds for every entry; refunds
// carry a negative CreditsUsed.
type CreditLedgerEntry struct {
	ID            int64             `json:"id" db:"id"`
	UserID        uuid.UUID         `json:"userId" db:"user_id"`
	Action        CreditAction      `json:"action" db:"action"`
	CreditsUsed   int               `json:"creditsUsed" db:"credits_used"`
	BalanceBefore int               `json:"balanceBefore" db:"balance_before"`
	BalanceAfter  int               `json:"balanceAfter" db:"balance_after"`
	Metadata      map[string]string `json:"metadata,omitempty" db:"-"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
}
