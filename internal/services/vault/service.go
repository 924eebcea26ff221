// Package vault implements the pooled-investment ledger core: sub-club
// creation, membership gating, deposit splitting, weekly harvests with
// profit routing, and balance reads. Every mutation runs inside a single
// database transaction and is deduplicated by idempotency key.
package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	"github.com/vaultclub/vault-api/internal/policy"
	"github.com/vaultclub/vault-api/internal/repos/ledger"
	pgledger "github.com/vaultclub/vault-api/internal/repos/ledger/postgres"
	"github.com/vaultclub/vault-api/internal/repos/memberships"
	pgmemberships "github.com/vaultclub/vault-api/internal/repos/memberships/postgres"
	"github.com/vaultclub/vault-api/internal/repos/subclubs"
	pgsubclubs "github.com/vaultclub/vault-api/internal/repos/subclubs/postgres"
	"github.com/vaultclub/vault-api/internal/repos/vaultstates"
	pgvaultstates "github.com/vaultclub/vault-api/internal/repos/vaultstates/postgres"
)

type Service struct {
	db      *sql.DB
	pol     policy.Policy
	clubs   subclubs.SubClubs
	members memberships.Memberships
	states  vaultstates.VaultStates
	txns    ledger.Ledger
}

func New(db *sql.DB, pol policy.Policy) *Service {
	return &Service{
		db:      db,
		pol:     pol,
		clubs:   pgsubclubs.New(db),
		members: pgmemberships.New(db),
		states:  pgvaultstates.New(db),
		txns:    pgledger.New(db),
	}
}

// Create provisions a new sub-club in one transaction: the club row, the
// creator's OWNER membership, the epoch-0 snapshot, and a CREATE ledger
// entry keyed on the generated id so a retried insert deduplicates.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (CreateResult, error) {
	if in.Name == "" {
		return CreateResult{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if _, err := ParseRigor(string(in.Rigor)); err != nil {
		return CreateResult{}, err
	}

	if in.LockMonths <= 0 {
		return CreateResult{}, fmt.Errorf("%w: lock_months must be positive", ErrInvalidInput)
	}

	sc := subclubs.SubClub{
		ID:         uuid.New(),
		Name:       in.Name,
		Rigor:      string(in.Rigor),
		LockMonths: in.LockMonths,
		CreatedBy:  userID,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.clubs.Insert(tx, &sc)
		if err != nil {
			return fmt.Errorf("insert subclub: %w", err)
		}

		err = s.members.Insert(tx, &memberships.Membership{
			SubclubID: sc.ID,
			UserID:    userID,
			Role:      memberships.RoleOwner,
		})
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}

		err = s.states.Append(tx, &vaultstates.State{
			SubclubID: sc.ID,
			EpochWeek: 0,
			TVLUSDC:   decimal.Zero,
			P1USDC:    decimal.Zero,
			P2USDC:    decimal.Zero,
			P3USDC:    decimal.Zero,
		})
		if err != nil {
			return fmt.Errorf("init vault state: %w", err)
		}

		err = s.txns.Append(tx, &ledger.Entry{
			ID:             uuid.New(),
			IdempotencyKey: fmt.Sprintf("create-%s", sc.ID),
			UserID:         userID,
			SubclubID:      sc.ID,
			Kind:           ledger.KindCreate,
			Status:         ledger.StatusApplied,
			Details: mustDetails(createDetails{
				SubclubName: sc.Name,
				Rigor:       in.Rigor,
				LockMonths:  sc.LockMonths,
			}),
		})
		if err != nil {
			return fmt.Errorf("log create: %w", err)
		}

		return nil
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("create subclub: %w", err)
	}

	slog.Info("subclub created", "subclub_id", sc.ID, "user_id", userID)

	return CreateResult{
		SubclubID:  sc.ID,
		Name:       sc.Name,
		Rigor:      in.Rigor,
		LockMonths: sc.LockMonths,
		CreatedAt:  sc.CreatedAt,
	}, nil
}

// Join adds the caller as a MEMBER of an existing sub-club.
func (s *Service) Join(ctx context.Context, userID, subclubID uuid.UUID) (JoinResult, error) {
	sc, err := s.clubs.Get(ctx, subclubID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("get subclub: %w", err)
	}

	m := memberships.Membership{
		SubclubID: subclubID,
		UserID:    userID,
		Role:      memberships.RoleMember,
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.members.Insert(tx, &m)
		if err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}

		err = s.txns.Append(tx, &ledger.Entry{
			ID:             uuid.New(),
			IdempotencyKey: fmt.Sprintf("join-%s-%s", subclubID, userID),
			UserID:         userID,
			SubclubID:      subclubID,
			Kind:           ledger.KindJoin,
			Status:         ledger.StatusApplied,
			Details:        mustDetails(joinDetails{SubclubName: sc.Name}),
		})
		if err != nil {
			// A reused join key means this user already joined once.
			if errors.Is(err, ledger.ErrDuplicateKey) {
				return memberships.ErrAlreadyMember
			}

			return fmt.Errorf("log join: %w", err)
		}

		return nil
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("join subclub: %w", err)
	}

	slog.Info("subclub joined", "subclub_id", subclubID, "user_id", userID)

	return JoinResult{
		SubclubID: subclubID,
		UserID:    userID,
		Role:      m.Role,
		JoinedAt:  m.JoinedAt,
	}, nil
}

// Deposit splits a contribution across the three pools and appends the
// next epoch snapshot. A repeated idempotency key replays the recorded
// result without touching state.
func (s *Service) Deposit(ctx context.Context, userID, subclubID uuid.UUID, amount decimal.Decimal, idemKey string) (DepositResult, error) {
	if !amount.IsPositive() {
		return DepositResult{}, ErrInvalidAmount
	}

	prior, err := s.txns.GetByKey(ctx, idemKey)
	if err == nil {
		return depositReplay(prior), nil
	}

	if !errors.Is(err, ledger.ErrEntryNotFound) {
		return DepositResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	_, err = s.members.GetRole(ctx, subclubID, userID)
	if err != nil {
		return DepositResult{}, fmt.Errorf("membership gate: %w", err)
	}

	var (
		entry ledger.Entry
		next  vaultstates.State
		split Split
	)

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Serialize concurrent writers for this sub-club before the
		// read-compute-append sequence.
		err := s.clubs.Lock(tx, subclubID)
		if err != nil {
			return fmt.Errorf("lock subclub: %w", err)
		}

		current, err := s.states.LatestTx(tx, subclubID)
		if err != nil {
			return fmt.Errorf("read latest state: %w", err)
		}

		split = SplitDeposit(s.pol.Split, amount)

		next = vaultstates.State{
			SubclubID: subclubID,
			EpochWeek: current.EpochWeek + 1,
			TVLUSDC:   current.TVLUSDC.Add(amount),
			P1USDC:    current.P1USDC.Add(split.P1),
			P2USDC:    current.P2USDC.Add(split.P2),
			P3USDC:    current.P3USDC.Add(split.P3),
			WBTCSats:  current.WBTCSats,
		}

		err = s.states.Append(tx, &next)
		if err != nil {
			return fmt.Errorf("append state: %w", err)
		}

		entry = ledger.Entry{
			ID:             uuid.New(),
			IdempotencyKey: idemKey,
			UserID:         userID,
			SubclubID:      subclubID,
			Kind:           ledger.KindDeposit,
			AmountUSDC:     decimal.NewNullDecimal(amount),
			Status:         ledger.StatusApplied,
			Details: mustDetails(depositDetails{
				BeforeEpoch: current.EpochWeek,
				AfterEpoch:  next.EpochWeek,
				Split:       split,
				BeforeTVL:   current.TVLUSDC,
				AfterTVL:    next.TVLUSDC,
			}),
		}

		err = s.txns.Append(tx, &entry)
		if err != nil {
			return fmt.Errorf("log deposit: %w", err)
		}

		return nil
	})
	if err != nil {
		// A concurrent retry with the same key won the race; replay it.
		if errors.Is(err, ledger.ErrDuplicateKey) {
			prior, gerr := s.txns.GetByKey(ctx, idemKey)
			if gerr == nil {
				return depositReplay(prior), nil
			}
		}

		return DepositResult{}, fmt.Errorf("process deposit: %w", err)
	}

	slog.Info("deposit processed",
		"subclub_id", subclubID, "user_id", userID,
		"amount_usdc", amount, "epoch_week", next.EpochWeek)

	return DepositResult{
		TransactionID: entry.ID,
		AmountUSDC:    amount,
		NewEpochWeek:  next.EpochWeek,
		NewTVLUSDC:    next.TVLUSDC,
		Split:         split,
		Status:        entry.Status,
	}, nil
}

// Harvest simulates one week of yield per pool, routes the profits per
// the policy matrix, and appends the next epoch snapshot. Same replay
// behavior as Deposit.
func (s *Service) Harvest(ctx context.Context, userID, subclubID uuid.UUID, idemKey string) (HarvestResult, error) {
	prior, err := s.txns.GetByKey(ctx, idemKey)
	if err == nil {
		return harvestReplay(prior), nil
	}

	if !errors.Is(err, ledger.ErrEntryNotFound) {
		return HarvestResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	_, err = s.members.GetRole(ctx, subclubID, userID)
	if err != nil {
		return HarvestResult{}, fmt.Errorf("membership gate: %w", err)
	}

	var (
		entry   ledger.Entry
		next    vaultstates.State
		profits Profits
		outcome RoutingOutcome
	)

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.clubs.Lock(tx, subclubID)
		if err != nil {
			return fmt.Errorf("lock subclub: %w", err)
		}

		current, err := s.states.LatestTx(tx, subclubID)
		if err != nil {
			return fmt.Errorf("read latest state: %w", err)
		}

		before := PoolBalances{P1: current.P1USDC, P2: current.P2USDC, P3: current.P3USDC}
		profits = WeeklyProfits(s.pol.APY, before)
		outcome = RouteProfits(s.pol.Routing, profits)

		next = vaultstates.State{
			SubclubID: subclubID,
			EpochWeek: current.EpochWeek + 1,
			// Routing is zero-sum between pools; only the raw profits
			// add value, so TVL grows by their total.
			TVLUSDC:  current.TVLUSDC.Add(profits.Total()),
			P1USDC:   current.P1USDC.Add(outcome.Changes.P1),
			P2USDC:   current.P2USDC.Add(outcome.Changes.P2),
			P3USDC:   current.P3USDC.Add(outcome.Changes.P3),
			WBTCSats: current.WBTCSats,
		}

		err = s.states.Append(tx, &next)
		if err != nil {
			return fmt.Errorf("append state: %w", err)
		}

		entry = ledger.Entry{
			ID:             uuid.New(),
			IdempotencyKey: idemKey,
			UserID:         userID,
			SubclubID:      subclubID,
			Kind:           ledger.KindHarvest,
			AmountUSDC:     decimal.NewNullDecimal(profits.Total()),
			Status:         ledger.StatusApplied,
			Details: mustDetails(harvestDetails{
				BeforeEpoch: current.EpochWeek,
				AfterEpoch:  next.EpochWeek,
				Profits:     profits,
				Routing:     outcome.Details,
				BeforeBalances: balancesSnapshot{
					P1USDC: current.P1USDC, P2USDC: current.P2USDC,
					P3USDC: current.P3USDC, TVLUSDC: current.TVLUSDC,
				},
				AfterBalances: balancesSnapshot{
					P1USDC: next.P1USDC, P2USDC: next.P2USDC,
					P3USDC: next.P3USDC, TVLUSDC: next.TVLUSDC,
				},
			}),
		}

		err = s.txns.Append(tx, &entry)
		if err != nil {
			return fmt.Errorf("log harvest: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateKey) {
			prior, gerr := s.txns.GetByKey(ctx, idemKey)
			if gerr == nil {
				return harvestReplay(prior), nil
			}
		}

		return HarvestResult{}, fmt.Errorf("process harvest: %w", err)
	}

	slog.Info("harvest processed",
		"subclub_id", subclubID, "user_id", userID,
		"total_yield_usdc", profits.Total(), "epoch_week", next.EpochWeek)

	return HarvestResult{
		TransactionID:  entry.ID,
		TotalYieldUSDC: profits.Total(),
		NewEpochWeek:   next.EpochWeek,
		NewTVLUSDC:     next.TVLUSDC,
		Profits:        profits,
		Changes:        outcome.Changes,
		NewBalances:    PoolBalances{P1: next.P1USDC, P2: next.P2USDC, P3: next.P3USDC},
		Status:         entry.Status,
	}, nil
}

// Balance returns the latest epoch snapshot plus an even informational
// per-member share.
func (s *Service) Balance(ctx context.Context, userID, subclubID uuid.UUID) (BalanceResult, error) {
	role, err := s.members.GetRole(ctx, subclubID, userID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("membership gate: %w", err)
	}

	st, err := s.states.Latest(ctx, subclubID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("read latest state: %w", err)
	}

	count, err := s.members.Count(ctx, subclubID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("count members: %w", err)
	}

	res := BalanceResult{
		SubclubID:   st.SubclubID,
		EpochWeek:   st.EpochWeek,
		TVLUSDC:     st.TVLUSDC,
		P1USDC:      st.P1USDC,
		P2USDC:      st.P2USDC,
		P3USDC:      st.P3USDC,
		WBTCSats:    st.WBTCSats,
		MemberCount: count,
		UserRole:    role,
	}

	if count > 0 {
		members := decimal.NewFromInt(count)
		res.PerMemberShare = &PerMemberShare{
			P1USDC:  st.P1USDC.Div(members),
			P2USDC:  st.P2USDC.Div(members),
			P3USDC:  st.P3USDC.Div(members),
			TVLUSDC: st.TVLUSDC.Div(members),
		}
	}

	return res, nil
}

// depositReplay rebuilds a deposit response from the recorded ledger
// entry. Details are an audit snapshot; if they fail to parse the basic
// fields still identify the original transaction.
func depositReplay(e ledger.Entry) DepositResult {
	res := DepositResult{
		TransactionID: e.ID,
		Status:        e.Status,
		Idempotent:    true,
	}

	if e.AmountUSDC.Valid {
		res.AmountUSDC = e.AmountUSDC.Decimal
	}

	var d depositDetails
	if json.Unmarshal(e.Details, &d) == nil {
		res.NewEpochWeek = d.AfterEpoch
		res.NewTVLUSDC = d.AfterTVL
		res.Split = d.Split
	}

	return res
}

func harvestReplay(e ledger.Entry) HarvestResult {
	res := HarvestResult{
		TransactionID: e.ID,
		Status:        e.Status,
		Idempotent:    true,
	}

	if e.AmountUSDC.Valid {
		res.TotalYieldUSDC = e.AmountUSDC.Decimal
	}

	var d harvestDetails
	if json.Unmarshal(e.Details, &d) == nil {
		res.NewEpochWeek = d.AfterEpoch
		res.NewTVLUSDC = d.AfterBalances.TVLUSDC
		res.Profits = d.Profits
		res.Changes = changesFromLegs(d.Routing)
		res.NewBalances = PoolBalances{
			P1: d.AfterBalances.P1USDC,
			P2: d.AfterBalances.P2USDC,
			P3: d.AfterBalances.P3USDC,
		}
	}

	return res
}

func mustDetails(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// Details structs are plain data; marshal cannot fail at runtime.
		panic(err)
	}

	return raw
}
