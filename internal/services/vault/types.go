package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rigor is the risk tier a sub-club commits to.
type Rigor string

const (
	RigorLight  Rigor = "LIGHT"
	RigorMedium Rigor = "MEDIUM"
	RigorHeavy  Rigor = "HEAVY"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// ParseRigor accepts the three tier names, case-insensitively.
func ParseRigor(s string) (Rigor, error) {
	switch Rigor(strings.ToUpper(strings.TrimSpace(s))) {
	case RigorLight:
		return RigorLight, nil
	case RigorMedium:
		return RigorMedium, nil
	case RigorHeavy:
		return RigorHeavy, nil
	default:
		return "", fmt.Errorf("%w: rigor must be LIGHT, MEDIUM, or HEAVY", ErrInvalidInput)
	}
}

type CreateInput struct {
	Name       string
	Rigor      Rigor
	LockMonths int
}

type CreateResult struct {
	SubclubID  uuid.UUID `json:"subclub_id"`
	Name       string    `json:"name"`
	Rigor      Rigor     `json:"rigor"`
	LockMonths int       `json:"lock_months"`
	CreatedAt  time.Time `json:"created_at"`
}

type JoinResult struct {
	SubclubID uuid.UUID `json:"subclub_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Split is a deposit broken out across the three pools.
type Split struct {
	P1 decimal.Decimal `json:"p1_amount"`
	P2 decimal.Decimal `json:"p2_amount"`
	P3 decimal.Decimal `json:"p3_amount"`
}

type DepositResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	AmountUSDC    decimal.Decimal `json:"amount_usdc"`
	NewEpochWeek  int             `json:"new_epoch_week"`
	NewTVLUSDC    decimal.Decimal `json:"new_tvl_usdc"`
	Split         Split           `json:"split"`
	Status        string          `json:"status"`
	Idempotent    bool            `json:"idempotent,omitempty"`
}

// Profits are the raw weekly yields per pool, before routing.
type Profits struct {
	P1 decimal.Decimal `json:"p1_profit"`
	P2 decimal.Decimal `json:"p2_profit"`
	P3 decimal.Decimal `json:"p3_profit"`
}

// Total is the value a harvest adds to the vault; routing below it only
// moves money between pools.
func (p Profits) Total() decimal.Decimal {
	return p.P1.Add(p.P2).Add(p.P3)
}

// RoutingChanges are the net per-pool deltas after profit routing.
type RoutingChanges struct {
	P1 decimal.Decimal `json:"p1_change"`
	P2 decimal.Decimal `json:"p2_change"`
	P3 decimal.Decimal `json:"p3_change"`
}

type PoolBalances struct {
	P1 decimal.Decimal `json:"p1_usdc"`
	P2 decimal.Decimal `json:"p2_usdc"`
	P3 decimal.Decimal `json:"p3_usdc"`
}

type HarvestResult struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	TotalYieldUSDC decimal.Decimal `json:"total_yield_usdc"`
	NewEpochWeek   int             `json:"new_epoch_week"`
	NewTVLUSDC     decimal.Decimal `json:"new_tvl_usdc"`
	Profits        Profits         `json:"profits"`
	Changes        RoutingChanges  `json:"rrl_changes"`
	NewBalances    PoolBalances    `json:"new_balances"`
	Status         string          `json:"status"`
	Idempotent     bool            `json:"idempotent,omitempty"`
}

// PerMemberShare is an even informational split of the pooled balances,
// not an entitlement ledger.
type PerMemberShare struct {
	P1USDC  decimal.Decimal `json:"p1_usdc_share"`
	P2USDC  decimal.Decimal `json:"p2_usdc_share"`
	P3USDC  decimal.Decimal `json:"p3_usdc_share"`
	TVLUSDC decimal.Decimal `json:"tvl_usdc_share"`
}

type BalanceResult struct {
	SubclubID      uuid.UUID       `json:"subclub_id"`
	EpochWeek      int             `json:"epoch_week"`
	TVLUSDC        decimal.Decimal `json:"tvl_usdc"`
	P1USDC         decimal.Decimal `json:"p1_usdc"`
	P2USDC         decimal.Decimal `json:"p2_usdc"`
	P3USDC         decimal.Decimal `json:"p3_usdc"`
	WBTCSats       int64           `json:"wbtc_sats"`
	MemberCount    int64           `json:"member_count"`
	UserRole       string          `json:"user_role"`
	PerMemberShare *PerMemberShare `json:"per_user_share,omitempty"`
}

// Ledger detail payloads, stored as the audit snapshot of each mutation.

type createDetails struct {
	SubclubName string `json:"subclub_name"`
	Rigor       Rigor  `json:"rigor"`
	LockMonths  int    `json:"lock_months"`
}

type joinDetails struct {
	SubclubName string `json:"subclub_name"`
}

type depositDetails struct {
	BeforeEpoch int             `json:"before_epoch"`
	AfterEpoch  int             `json:"after_epoch"`
	Split       Split           `json:"split"`
	BeforeTVL   decimal.Decimal `json:"before_tvl"`
	AfterTVL    decimal.Decimal `json:"after_tvl"`
}

type balancesSnapshot struct {
	P1USDC  decimal.Decimal `json:"p1_usdc"`
	P2USDC  decimal.Decimal `json:"p2_usdc"`
	P3USDC  decimal.Decimal `json:"p3_usdc"`
	TVLUSDC decimal.Decimal `json:"tvl_usdc"`
}

type harvestDetails struct {
	BeforeEpoch    int              `json:"before_epoch"`
	AfterEpoch     int              `json:"after_epoch"`
	Profits        Profits          `json:"profits"`
	Routing        RoutingDetails   `json:"rrl_routing"`
	BeforeBalances balancesSnapshot `json:"before_balances"`
	AfterBalances  balancesSnapshot `json:"after_balances"`
}
