package vault

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultclub/vault-api/internal/policy"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	return decimal.RequireFromString(s)
}

func TestWeeklyProfits(t *testing.T) {
	t.Parallel()

	rates := policy.Default().APY

	// The post-first-deposit balances of the worked scenario: 100 USDC
	// split 60/10/30.
	profits := WeeklyProfits(rates, PoolBalances{
		P1: dec(t, "60"),
		P2: dec(t, "10"),
		P3: dec(t, "30"),
	})

	// p1: 60 * 0.052 / 52 = 0.06 exactly.
	assert.True(t, profits.P1.Equal(dec(t, "0.06")), "p1=%s", profits.P1)

	// p2: 10 * 0.102 / 52 and p3: 30 * 0.125 / 52 don't terminate in
	// base 10, so compare against the same decimal division.
	weeks := decimal.NewFromInt(52)
	assert.True(t, profits.P2.Equal(dec(t, "1.02").Div(weeks)), "p2=%s", profits.P2)
	assert.True(t, profits.P3.Equal(dec(t, "3.75").Div(weeks)), "p3=%s", profits.P3)
}

func TestRouteProfitsConservesValue(t *testing.T) {
	t.Parallel()

	matrix := policy.Default().Routing

	tests := []struct {
		name    string
		profits Profits
	}{
		{
			name:    "scenario_profits",
			profits: Profits{P1: dec(t, "0.06"), P2: dec(t, "0.0196153846153846"), P3: dec(t, "0.0721153846153846")},
		},
		{
			name:    "round_numbers",
			profits: Profits{P1: dec(t, "10"), P2: dec(t, "20"), P3: dec(t, "30")},
		},
		{
			name:    "single_pool_only",
			profits: Profits{P1: dec(t, "7.77"), P2: decimal.Zero, P3: decimal.Zero},
		},
		{
			name:    "tiny_amounts",
			profits: Profits{P1: dec(t, "0.0000001"), P2: dec(t, "0.0000003"), P3: dec(t, "0.0000007")},
		},
		{
			name:    "all_zero",
			profits: Profits{P1: decimal.Zero, P2: decimal.Zero, P3: decimal.Zero},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := RouteProfits(matrix, tt.profits)

			sumChanges := out.Changes.P1.Add(out.Changes.P2).Add(out.Changes.P3)
			assert.True(t, sumChanges.Equal(tt.profits.Total()),
				"net changes sum to %s, profits total %s", sumChanges, tt.profits.Total())
		})
	}
}

func TestRouteProfitsMatrix(t *testing.T) {
	t.Parallel()

	matrix := policy.Default().Routing

	profits := Profits{P1: dec(t, "100"), P2: dec(t, "200"), P3: dec(t, "300")}

	out := RouteProfits(matrix, profits)

	// P1 keeps 50 of its own, receives 20% of P2 (40) and 30% of P3 (90).
	assert.True(t, out.Changes.P1.Equal(dec(t, "180")), "p1=%s", out.Changes.P1)
	// P2 keeps 100, receives 40% of P1 (40).
	assert.True(t, out.Changes.P2.Equal(dec(t, "140")), "p2=%s", out.Changes.P2)
	// P3 keeps 210, receives 10% of P1 (10) and 30% of P2 (60).
	assert.True(t, out.Changes.P3.Equal(dec(t, "280")), "p3=%s", out.Changes.P3)

	assert.True(t, out.Details.P1.ToP2.Equal(dec(t, "40")))
	assert.True(t, out.Details.P3.Reinvest.Equal(dec(t, "210")))
	assert.True(t, out.Details.P3.ToP2.IsZero())
}

func TestScenarioFirstHarvest(t *testing.T) {
	t.Parallel()

	pol := policy.Default()
	require.NoError(t, pol.Validate())

	// Create → deposit 100 → harvest: the worked end-to-end numbers.
	split := SplitDeposit(pol.Split, dec(t, "100"))
	balances := PoolBalances{P1: split.P1, P2: split.P2, P3: split.P3}

	profits := WeeklyProfits(pol.APY, balances)
	out := RouteProfits(pol.Routing, profits)

	newTVL := dec(t, "100").Add(profits.Total())

	// Total yield ≈ 0.1517, so TVL ≈ 100.152.
	assert.True(t, newTVL.GreaterThan(dec(t, "100.15")), "tvl=%s", newTVL)
	assert.True(t, newTVL.LessThan(dec(t, "100.16")), "tvl=%s", newTVL)

	// Pools still hold exactly the deposit plus the generated yield.
	poolSum := balances.P1.Add(out.Changes.P1).
		Add(balances.P2).Add(out.Changes.P2).
		Add(balances.P3).Add(out.Changes.P3)
	assert.True(t, poolSum.Equal(newTVL), "pool sum %s, tvl %s", poolSum, newTVL)
}
