package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	"github.com/vaultclub/vault-api/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) GetByKey(ctx context.Context, key string) (ledger.Entry, error) {
	var e ledger.Entry

	err := r.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, user_id, subclub_id, kind, amount_usdc, status, details, created_at
		FROM tx_ledger
		WHERE idempotency_key = $1
	`, key).Scan(
		&e.ID, &e.IdempotencyKey, &e.UserID, &e.SubclubID,
		&e.Kind, &e.AmountUSDC, &e.Status, &e.Details, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Entry{}, ledger.ErrEntryNotFound
		}

		return ledger.Entry{}, fmt.Errorf("get ledger entry: %w", err)
	}

	return e, nil
}

func (r *ledgerRepo) Append(tx *sql.Tx, e *ledger.Entry) error {
	err := tx.QueryRow(`
		INSERT INTO tx_ledger (id, idempotency_key, user_id, subclub_id, kind, amount_usdc, status, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, e.ID, e.IdempotencyKey, e.UserID, e.SubclubID, e.Kind, e.AmountUSDC, e.Status, e.Details).
		Scan(&e.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return ledger.ErrDuplicateKey
		}

		return fmt.Errorf("append ledger entry: %w", err)
	}

	return nil
}
