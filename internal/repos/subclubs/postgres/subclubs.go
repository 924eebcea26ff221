package subclubs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultclub/vault-api/internal/repos/subclubs"
)

var _ subclubs.SubClubs = (*subclubsRepo)(nil)

type subclubsRepo struct{ db *sql.DB }

func New(db *sql.DB) *subclubsRepo {
	return &subclubsRepo{db: db}
}

func (r *subclubsRepo) Insert(tx *sql.Tx, sc *subclubs.SubClub) error {
	err := tx.QueryRow(`
		INSERT INTO subclubs (id, name, rigor, lock_months, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, sc.ID, sc.Name, sc.Rigor, sc.LockMonths, sc.CreatedBy).Scan(&sc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subclub: %w", err)
	}

	return nil
}

func (r *subclubsRepo) Get(ctx context.Context, id uuid.UUID) (subclubs.SubClub, error) {
	var sc subclubs.SubClub

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, rigor, lock_months, created_by, created_at
		FROM subclubs
		WHERE id = $1
	`, id).Scan(&sc.ID, &sc.Name, &sc.Rigor, &sc.LockMonths, &sc.CreatedBy, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subclubs.SubClub{}, subclubs.ErrSubClubNotFound
		}

		return subclubs.SubClub{}, fmt.Errorf("get subclub: %w", err)
	}

	return sc, nil
}

func (r *subclubsRepo) Lock(tx *sql.Tx, id uuid.UUID) error {
	var locked uuid.UUID

	err := tx.QueryRow(`
		SELECT id
		FROM subclubs
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subclubs.ErrSubClubNotFound
		}

		return fmt.Errorf("lock subclub: %w", err)
	}

	return nil
}
