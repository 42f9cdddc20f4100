package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType labels a completed funds movement.
type TransactionType string

// Transaction types emitted to the events stream.
const (
	TransactionDeposit      TransactionType = "deposit"
	TransactionCreditUpdate TransactionType = "credit_update"
	TransactionWithdrawal   TransactionType = "withdrawal"
	TransactionTransfer     TransactionType = "transfer"
)

// TransactionEvent is published after a funds movement completes.
type TransactionEvent struct {
	Type           TransactionType `json:"type"`
	AccountID      string          `json:"account_id"`
	CounterpartyID string          `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
