package subclubs

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSubClubNotFound = errors.New("subclub not found")

type SubClub struct {
	ID         uuid.UUID
	Name       string
	Rigor      string
	LockMonths int
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

type SubClubs interface {
	// Insert writes a new sub-club row and fills CreatedAt.
	Insert(tx *sql.Tx, sc *SubClub) error
	Get(ctx context.Context, id uuid.UUID) (SubClub, error)
	// Lock takes a row lock on the sub-club, serializing concurrent
	// epoch writers for it until the surrounding transaction ends.
	Lock(tx *sql.Tx, id uuid.UUID) error
}
