package vaultstates

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrStateNotFound = errors.New("vault state not found")
	// ErrEpochConflict means another writer already appended this epoch.
	ErrEpochConflict = errors.New("epoch already written")
)

// State is one immutable weekly snapshot of a sub-club's pooled balances.
type State struct {
	ID        int64
	SubclubID uuid.UUID
	EpochWeek int
	TVLUSDC   decimal.Decimal
	P1USDC    decimal.Decimal
	P2USDC    decimal.Decimal
	P3USDC    decimal.Decimal
	WBTCSats  int64
	CreatedAt time.Time
}

type VaultStates interface {
	// Latest returns the highest-epoch snapshot for the sub-club.
	Latest(ctx context.Context, subclubID uuid.UUID) (State, error)
	// LatestTx is Latest inside a write transaction, after the caller
	// has taken the sub-club row lock.
	LatestTx(tx *sql.Tx, subclubID uuid.UUID) (State, error)
	// Append writes a new snapshot row and fills ID and CreatedAt.
	// A duplicate (subclub, epoch) pair yields ErrEpochConflict.
	Append(tx *sql.Tx, st *State) error
}
