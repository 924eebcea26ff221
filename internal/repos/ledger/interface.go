package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEntryNotFound = errors.New("ledger entry not found")
	// ErrDuplicateKey means the idempotency key was already used; the
	// caller should replay the recorded entry instead.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

const (
	KindCreate  = "CREATE"
	KindJoin    = "JOIN"
	KindDeposit = "DEPOSIT"
	KindHarvest = "HARVEST"
)

const StatusApplied = "APPLIED"

// Entry is one applied mutating operation. Rows are written exactly once
// per accepted request and never updated.
type Entry struct {
	ID             uuid.UUID
	IdempotencyKey string
	UserID         uuid.UUID
	SubclubID      uuid.UUID
	Kind           string
	AmountUSDC     decimal.NullDecimal
	Status         string
	Details        json.RawMessage
	CreatedAt      time.Time
}

type Ledger interface {
	GetByKey(ctx context.Context, key string) (Entry, error)
	// Append writes a new entry and fills CreatedAt. A reused
	// idempotency key yields ErrDuplicateKey.
	Append(tx *sql.Tx, e *Entry) error
}
