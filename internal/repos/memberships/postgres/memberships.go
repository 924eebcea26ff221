package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	"github.com/vaultclub/vault-api/internal/repos/memberships"
)

var _ memberships.Memberships = (*membershipsRepo)(nil)

type membershipsRepo struct{ db *sql.DB }

func New(db *sql.DB) *membershipsRepo {
	return &membershipsRepo{db: db}
}

func (r *membershipsRepo) Insert(tx *sql.Tx, m *memberships.Membership) error {
	err := tx.QueryRow(`
		INSERT INTO memberships (subclub_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at
	`, m.SubclubID, m.UserID, m.Role).Scan(&m.JoinedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return memberships.ErrAlreadyMember
		}

		return fmt.Errorf("insert membership: %w", err)
	}

	return nil
}

func (r *membershipsRepo) GetRole(ctx context.Context, subclubID, userID uuid.UUID) (string, error) {
	var role string

	err := r.db.QueryRowContext(ctx, `
		SELECT role
		FROM memberships
		WHERE subclub_id = $1 AND user_id = $2
	`, subclubID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", memberships.ErrNotAMember
		}

		return "", fmt.Errorf("get role: %w", err)
	}

	return role, nil
}

func (r *membershipsRepo) Count(ctx context.Context, subclubID uuid.UUID) (int64, error) {
	var n int64

	err := r.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM memberships
		WHERE subclub_id = $1
	`, subclubID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}

	return n, nil
}
