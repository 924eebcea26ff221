package vaultstates

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/infra/pgtestutil"
	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	"github.com/vaultclub/vault-api/internal/repos/vaultstates"
)

func seedSubclub(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	id := uuid.New()

	_, err := db.Exec(`
		INSERT INTO subclubs (id, name, rigor, lock_months, created_by)
		VALUES ($1, 'Seed Club', 'MEDIUM', 6, $2)
	`, id, uuid.New())
	if err != nil {
		t.Fatalf("seed subclub: %v", err)
	}

	return id
}

func appendState(t *testing.T, db *sql.DB, repo *vaultStatesRepo, st *vaultstates.State) error {
	t.Helper()

	return pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Append(tx, st)
	})
}

func TestVaultStates_AppendAndLatest(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	clubID := seedSubclub(t, db)
	repo := New(db)

	epochs := []vaultstates.State{
		{SubclubID: clubID, EpochWeek: 0, TVLUSDC: decimal.Zero, P1USDC: decimal.Zero, P2USDC: decimal.Zero, P3USDC: decimal.Zero},
		{SubclubID: clubID, EpochWeek: 1,
			TVLUSDC: decimal.RequireFromString("100"),
			P1USDC:  decimal.RequireFromString("60"),
			P2USDC:  decimal.RequireFromString("10"),
			P3USDC:  decimal.RequireFromString("30"),
			WBTCSats: 1500},
	}

	for i := range epochs {
		err := appendState(t, db, repo, &epochs[i])
		if err != nil {
			t.Fatalf("append epoch %d: %v", i, err)
		}
	}

	got, err := repo.Latest(t.Context(), clubID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if got.EpochWeek != 1 {
		t.Fatalf("latest epoch: want 1, got %d", got.EpochWeek)
	}
	if !got.P1USDC.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("p1: want 60, got %s", got.P1USDC)
	}
	if got.WBTCSats != 1500 {
		t.Fatalf("wbtc_sats: want 1500, got %d", got.WBTCSats)
	}
}

func TestVaultStates_Latest_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	_, err := repo.Latest(t.Context(), uuid.New())
	if !errors.Is(err, vaultstates.ErrStateNotFound) {
		t.Fatalf("want ErrStateNotFound, got %v", err)
	}
}

func TestVaultStates_EpochConflict(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	clubID := seedSubclub(t, db)
	repo := New(db)

	first := vaultstates.State{
		SubclubID: clubID, EpochWeek: 1,
		TVLUSDC: decimal.RequireFromString("10"),
		P1USDC:  decimal.RequireFromString("6"),
		P2USDC:  decimal.RequireFromString("1"),
		P3USDC:  decimal.RequireFromString("3"),
	}

	err := appendState(t, db, repo, &first)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}

	dup := first
	dup.ID = 0

	err = appendState(t, db, repo, &dup)
	if !errors.Is(err, vaultstates.ErrEpochConflict) {
		t.Fatalf("want ErrEpochConflict, got %v", err)
	}
}
