package memberships

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotAMember    = errors.New("user is not a member of this subclub")
	ErrAlreadyMember = errors.New("user is already a member of this subclub")
)

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

type Membership struct {
	SubclubID uuid.UUID
	UserID    uuid.UUID
	Role      string
	JoinedAt  time.Time
}

type Memberships interface {
	// Insert writes a membership row and fills JoinedAt. A duplicate
	// (subclub, user) pair yields ErrAlreadyMember.
	Insert(tx *sql.Tx, m *Membership) error
	// GetRole is the membership gate: it returns the caller's role or
	// ErrNotAMember.
	GetRole(ctx context.Context, subclubID, userID uuid.UUID) (string, error)
	Count(ctx context.Context, subclubID uuid.UUID) (int64, error)
}
