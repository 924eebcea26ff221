package vault

import (
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/policy"
)

// SplitDeposit allocates a deposit across the three pools per the policy
// ratios. P3 takes the exact remainder after P1 and P2, so the three legs
// always sum to the deposit amount with nothing lost to rounding.
func SplitDeposit(r policy.SplitRatios, amount decimal.Decimal) Split {
	p1 := amount.Mul(r.P1)
	p2 := amount.Mul(r.P2)

	return Split{
		P1: p1,
		P2: p2,
		P3: amount.Sub(p1).Sub(p2),
	}
}
