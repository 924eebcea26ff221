package vault

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/infra/pgtestutil"
	"github.com/vaultclub/vault-api/internal/policy"
	"github.com/vaultclub/vault-api/internal/repos/memberships"
	"github.com/vaultclub/vault-api/internal/repos/subclubs"
)

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	err := db.QueryRow(query, args...).Scan(&n)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}

	return n
}

func TestService_FullFlow(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db, policy.Default())
	ctx := t.Context()

	owner := uuid.New()
	member := uuid.New()
	stranger := uuid.New()

	// --- Create ---
	created, err := svc.Create(ctx, owner, CreateInput{
		Name:       "Alpha",
		Rigor:      RigorMedium,
		LockMonths: 6,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.SubclubID == uuid.Nil {
		t.Fatalf("expected generated subclub id")
	}

	clubID := created.SubclubID

	bal, err := svc.Balance(ctx, owner, clubID)
	if err != nil {
		t.Fatalf("balance after create: %v", err)
	}

	if bal.EpochWeek != 0 || !bal.TVLUSDC.IsZero() || !bal.P1USDC.IsZero() {
		t.Fatalf("epoch 0 should be all zero, got %+v", bal)
	}
	if bal.UserRole != memberships.RoleOwner {
		t.Fatalf("creator role: want OWNER, got %s", bal.UserRole)
	}

	// --- Join ---
	joined, err := svc.Join(ctx, member, clubID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Role != memberships.RoleMember {
		t.Fatalf("join role: want MEMBER, got %s", joined.Role)
	}

	_, err = svc.Join(ctx, member, clubID)
	if !errors.Is(err, memberships.ErrAlreadyMember) {
		t.Fatalf("second join: want ErrAlreadyMember, got %v", err)
	}

	_, err = svc.Join(ctx, member, uuid.New())
	if !errors.Is(err, subclubs.ErrSubClubNotFound) {
		t.Fatalf("join missing club: want ErrSubClubNotFound, got %v", err)
	}

	// --- Deposit ---
	amount := decimal.RequireFromString("100")

	dep, err := svc.Deposit(ctx, member, clubID, amount, "dep-key-1")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if dep.NewEpochWeek != 1 {
		t.Fatalf("deposit epoch: want 1, got %d", dep.NewEpochWeek)
	}
	if !dep.NewTVLUSDC.Equal(amount) {
		t.Fatalf("deposit tvl: want 100, got %s", dep.NewTVLUSDC)
	}
	if !dep.Split.P1.Equal(decimal.RequireFromString("60")) ||
		!dep.Split.P2.Equal(decimal.RequireFromString("10")) ||
		!dep.Split.P3.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("deposit split: got %+v", dep.Split)
	}
	if dep.Idempotent {
		t.Fatalf("first deposit must not be flagged idempotent")
	}

	// --- Idempotent replay ---
	replay, err := svc.Deposit(ctx, member, clubID, amount, "dep-key-1")
	if err != nil {
		t.Fatalf("deposit replay: %v", err)
	}

	if !replay.Idempotent {
		t.Fatalf("replay must be flagged idempotent")
	}
	if replay.TransactionID != dep.TransactionID {
		t.Fatalf("replay txid: want %s, got %s", dep.TransactionID, replay.TransactionID)
	}
	if replay.NewEpochWeek != 1 || !replay.NewTVLUSDC.Equal(amount) {
		t.Fatalf("replay should echo recorded state, got %+v", replay)
	}

	if n := countRows(t, db, `SELECT count(*) FROM vault_states WHERE subclub_id = $1`, clubID); n != 2 {
		t.Fatalf("replay must not append state: want 2 rows, got %d", n)
	}
	if n := countRows(t, db, `SELECT count(*) FROM tx_ledger WHERE idempotency_key = 'dep-key-1'`); n != 1 {
		t.Fatalf("replay must not append ledger row: got %d", n)
	}

	// --- Harvest ---
	har, err := svc.Harvest(ctx, owner, clubID, "har-key-1")
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}

	if har.NewEpochWeek != 2 {
		t.Fatalf("harvest epoch: want 2, got %d", har.NewEpochWeek)
	}

	wantYield := har.Profits.P1.Add(har.Profits.P2).Add(har.Profits.P3)
	if !har.TotalYieldUSDC.Equal(wantYield) {
		t.Fatalf("total yield: want %s, got %s", wantYield, har.TotalYieldUSDC)
	}
	if !har.NewTVLUSDC.Equal(amount.Add(wantYield)) {
		t.Fatalf("harvest tvl: want %s, got %s", amount.Add(wantYield), har.NewTVLUSDC)
	}
	if har.NewTVLUSDC.LessThan(amount) {
		t.Fatalf("tvl must never decrease on harvest")
	}

	hreplay, err := svc.Harvest(ctx, owner, clubID, "har-key-1")
	if err != nil {
		t.Fatalf("harvest replay: %v", err)
	}
	if !hreplay.Idempotent || hreplay.TransactionID != har.TransactionID {
		t.Fatalf("harvest replay mismatch: %+v", hreplay)
	}

	// --- Balance with per-member share ---
	bal, err = svc.Balance(ctx, member, clubID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}

	if bal.MemberCount != 2 {
		t.Fatalf("member count: want 2, got %d", bal.MemberCount)
	}
	if bal.PerMemberShare == nil {
		t.Fatalf("expected per-member share with members present")
	}

	two := decimal.NewFromInt(2)
	if !bal.PerMemberShare.TVLUSDC.Equal(bal.TVLUSDC.Div(two)) {
		t.Fatalf("per-member tvl share: got %s", bal.PerMemberShare.TVLUSDC)
	}

	// --- Membership gating ---
	_, err = svc.Deposit(ctx, stranger, clubID, amount, "dep-key-2")
	if !errors.Is(err, memberships.ErrNotAMember) {
		t.Fatalf("stranger deposit: want ErrNotAMember, got %v", err)
	}

	_, err = svc.Harvest(ctx, stranger, clubID, "har-key-2")
	if !errors.Is(err, memberships.ErrNotAMember) {
		t.Fatalf("stranger harvest: want ErrNotAMember, got %v", err)
	}

	_, err = svc.Balance(ctx, stranger, clubID)
	if !errors.Is(err, memberships.ErrNotAMember) {
		t.Fatalf("stranger balance: want ErrNotAMember, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db, policy.Default())
	ctx := t.Context()
	user := uuid.New()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{name: "empty_name", in: CreateInput{Name: "", Rigor: RigorLight, LockMonths: 3}},
		{name: "bad_rigor", in: CreateInput{Name: "X", Rigor: "EXTREME", LockMonths: 3}},
		{name: "zero_lock_months", in: CreateInput{Name: "X", Rigor: RigorLight, LockMonths: 0}},
		{name: "negative_lock_months", in: CreateInput{Name: "X", Rigor: RigorLight, LockMonths: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, user, tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("want ErrInvalidInput, got %v", err)
			}
		})
	}

	if n := countRows(t, db, `SELECT count(*) FROM subclubs`); n != 0 {
		t.Fatalf("rejected creates must not insert rows, got %d", n)
	}
}

func TestService_DepositValidation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db, policy.Default())
	ctx := t.Context()
	user := uuid.New()

	created, err := svc.Create(ctx, user, CreateInput{Name: "Alpha", Rigor: RigorHeavy, LockMonths: 12})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, raw := range []string{"0", "-1", "-0.01"} {
		_, err := svc.Deposit(ctx, user, created.SubclubID, decimal.RequireFromString(raw), "k-"+raw)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: want ErrInvalidAmount, got %v", raw, err)
		}
	}
}
