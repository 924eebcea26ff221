package vaultstates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	"github.com/vaultclub/vault-api/internal/repos/vaultstates"
)

var _ vaultstates.VaultStates = (*vaultStatesRepo)(nil)

type vaultStatesRepo struct{ db *sql.DB }

func New(db *sql.DB) *vaultStatesRepo {
	return &vaultStatesRepo{db: db}
}

const latestQuery = `
	SELECT id, subclub_id, epoch_week, tvl_usdc, p1_usdc, p2_usdc, p3_usdc, wbtc_sats, created_at
	FROM vault_states
	WHERE subclub_id = $1
	ORDER BY epoch_week DESC
	LIMIT 1
`

func (r *vaultStatesRepo) Latest(ctx context.Context, subclubID uuid.UUID) (vaultstates.State, error) {
	return scanState(r.db.QueryRowContext(ctx, latestQuery, subclubID))
}

func (r *vaultStatesRepo) LatestTx(tx *sql.Tx, subclubID uuid.UUID) (vaultstates.State, error) {
	return scanState(tx.QueryRow(latestQuery, subclubID))
}

func (r *vaultStatesRepo) Append(tx *sql.Tx, st *vaultstates.State) error {
	err := tx.QueryRow(`
		INSERT INTO vault_states (subclub_id, epoch_week, tvl_usdc, p1_usdc, p2_usdc, p3_usdc, wbtc_sats)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, st.SubclubID, st.EpochWeek, st.TVLUSDC, st.P1USDC, st.P2USDC, st.P3USDC, st.WBTCSats).
		Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return vaultstates.ErrEpochConflict
		}

		return fmt.Errorf("append vault state: %w", err)
	}

	return nil
}

func scanState(row *sql.Row) (vaultstates.State, error) {
	var st vaultstates.State

	err := row.Scan(
		&st.ID, &st.SubclubID, &st.EpochWeek,
		&st.TVLUSDC, &st.P1USDC, &st.P2USDC, &st.P3USDC,
		&st.WBTCSats, &st.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vaultstates.State{}, vaultstates.ErrStateNotFound
		}

		return vaultstates.State{}, fmt.Errorf("scan vault state: %w", err)
	}

	return st, nil
}
