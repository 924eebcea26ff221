package vault

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vaultclub/vault-api/internal/policy"
)

func TestSplitDeposit(t *testing.T) {
	t.Parallel()

	ratios := policy.Default().Split

	t.Run("hundred_splits_60_10_30", func(t *testing.T) {
		t.Parallel()

		s := SplitDeposit(ratios, decimal.RequireFromString("100"))

		assert.True(t, s.P1.Equal(decimal.RequireFromString("60")), "p1=%s", s.P1)
		assert.True(t, s.P2.Equal(decimal.RequireFromString("10")), "p2=%s", s.P2)
		assert.True(t, s.P3.Equal(decimal.RequireFromString("30")), "p3=%s", s.P3)
	})

	t.Run("conserves_every_amount_exactly", func(t *testing.T) {
		t.Parallel()

		amounts := []string{
			"0.01", "0.07", "1", "33.33", "99.99", "123456.789", "0.000001",
		}

		for _, raw := range amounts {
			amount := decimal.RequireFromString(raw)
			s := SplitDeposit(ratios, amount)

			total := s.P1.Add(s.P2).Add(s.P3)
			assert.True(t, total.Equal(amount),
				"amount %s: split sums to %s", amount, total)
		}
	})

	t.Run("no_negative_legs", func(t *testing.T) {
		t.Parallel()

		s := SplitDeposit(ratios, decimal.RequireFromString("0.01"))

		assert.False(t, s.P1.IsNegative())
		assert.False(t, s.P2.IsNegative())
		assert.False(t, s.P3.IsNegative())
	})
}
