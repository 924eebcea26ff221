// Package policy holds the numeric constants driving vault accounting:
// the deposit split, the per-pool annual rates, and the profit routing
// matrix. Keeping them in one validated value makes rate changes auditable
// and testable apart from the state-transition code.
package policy

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// WeeksPerYear converts annual rates to the weekly epoch cadence.
const WeeksPerYear = 52

// SplitRatios is the deterministic deposit allocation across the three
// risk pools. The three ratios must sum to exactly 1.
type SplitRatios struct {
	P1 decimal.Decimal
	P2 decimal.Decimal
	P3 decimal.Decimal
}

// PoolRates are annualized yield rates per pool (0.052 means 5.2% APY).
type PoolRates struct {
	P1 decimal.Decimal
	P2 decimal.Decimal
	P3 decimal.Decimal
}

// RoutingRow describes where one pool's weekly profit goes. Reinvest is
// the share kept by the source pool; each row must sum to exactly 1 so
// routing never creates or destroys value.
type RoutingRow struct {
	Reinvest decimal.Decimal
	ToP1     decimal.Decimal
	ToP2     decimal.Decimal
	ToP3     decimal.Decimal
}

// RoutingMatrix is the full profit routing table, one row per source pool.
type RoutingMatrix struct {
	P1 RoutingRow
	P2 RoutingRow
	P3 RoutingRow
}

type Policy struct {
	Version int
	Split   SplitRatios
	APY     PoolRates
	Routing RoutingMatrix
}

// Default returns policy version 1: 60/10/30 deposit split, 5.2/10.2/12.5
// APYs, and the routing table P1 50/40/10, P2 20/50/30, P3 30/-/70.
func Default() Policy {
	return Policy{
		Version: 1,
		Split: SplitRatios{
			P1: dec("0.6"),
			P2: dec("0.1"),
			P3: dec("0.3"),
		},
		APY: PoolRates{
			P1: dec("0.052"),
			P2: dec("0.102"),
			P3: dec("0.125"),
		},
		Routing: RoutingMatrix{
			P1: RoutingRow{Reinvest: dec("0.5"), ToP2: dec("0.4"), ToP3: dec("0.1")},
			P2: RoutingRow{Reinvest: dec("0.5"), ToP1: dec("0.2"), ToP3: dec("0.3")},
			P3: RoutingRow{Reinvest: dec("0.7"), ToP1: dec("0.3")},
		},
	}
}

// Validate checks the conservation invariants: the split sums to 1, every
// routing row sums to 1, and no rate or share is negative.
func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)

	splitSum := p.Split.P1.Add(p.Split.P2).Add(p.Split.P3)
	if !splitSum.Equal(one) {
		return fmt.Errorf("split ratios sum to %s, want 1", splitSum)
	}

	for _, r := range []decimal.Decimal{p.Split.P1, p.Split.P2, p.Split.P3} {
		if r.IsNegative() {
			return fmt.Errorf("negative split ratio %s", r)
		}
	}

	for _, r := range []decimal.Decimal{p.APY.P1, p.APY.P2, p.APY.P3} {
		if r.IsNegative() {
			return fmt.Errorf("negative APY %s", r)
		}
	}

	rows := map[string]RoutingRow{"p1": p.Routing.P1, "p2": p.Routing.P2, "p3": p.Routing.P3}
	for name, row := range rows {
		sum := row.Reinvest.Add(row.ToP1).Add(row.ToP2).Add(row.ToP3)
		if !sum.Equal(one) {
			return fmt.Errorf("routing row %s sums to %s, want 1", name, sum)
		}

		for _, share := range []decimal.Decimal{row.Reinvest, row.ToP1, row.ToP2, row.ToP3} {
			if share.IsNegative() {
				return fmt.Errorf("negative routing share in row %s", name)
			}
		}
	}

	return nil
}

// filePolicy is the YAML wire form; shares are decimal strings so the
// money path never touches floats.
type filePolicy struct {
	Version int `yaml:"version"`
	Split   struct {
		P1 string `yaml:"p1"`
		P2 string `yaml:"p2"`
		P3 string `yaml:"p3"`
	} `yaml:"split"`
	APY struct {
		P1 string `yaml:"p1"`
		P2 string `yaml:"p2"`
		P3 string `yaml:"p3"`
	} `yaml:"apy"`
	Routing struct {
		P1 fileRoutingRow `yaml:"p1"`
		P2 fileRoutingRow `yaml:"p2"`
		P3 fileRoutingRow `yaml:"p3"`
	} `yaml:"routing"`
}

type fileRoutingRow struct {
	Reinvest string `yaml:"reinvest"`
	ToP1     string `yaml:"to_p1"`
	ToP2     string `yaml:"to_p2"`
	ToP3     string `yaml:"to_p3"`
}

// LoadFile reads a policy from a YAML file and validates it.
func LoadFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var fp filePolicy

	err = yaml.Unmarshal(raw, &fp)
	if err != nil {
		return Policy{}, fmt.Errorf("parse policy yaml: %w", err)
	}

	p := Policy{Version: fp.Version}

	p.Split.P1, err = parseShare(fp.Split.P1)
	if err == nil {
		p.Split.P2, err = parseShare(fp.Split.P2)
	}
	if err == nil {
		p.Split.P3, err = parseShare(fp.Split.P3)
	}
	if err == nil {
		p.APY.P1, err = parseShare(fp.APY.P1)
	}
	if err == nil {
		p.APY.P2, err = parseShare(fp.APY.P2)
	}
	if err == nil {
		p.APY.P3, err = parseShare(fp.APY.P3)
	}
	if err == nil {
		p.Routing.P1, err = parseRow(fp.Routing.P1)
	}
	if err == nil {
		p.Routing.P2, err = parseRow(fp.Routing.P2)
	}
	if err == nil {
		p.Routing.P3, err = parseRow(fp.Routing.P3)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("parse policy values: %w", err)
	}

	err = p.Validate()
	if err != nil {
		return Policy{}, fmt.Errorf("validate policy: %w", err)
	}

	return p, nil
}

func parseRow(fr fileRoutingRow) (RoutingRow, error) {
	var (
		row RoutingRow
		err error
	)

	row.Reinvest, err = parseShare(fr.Reinvest)
	if err == nil {
		row.ToP1, err = parseShare(fr.ToP1)
	}
	if err == nil {
		row.ToP2, err = parseShare(fr.ToP2)
	}
	if err == nil {
		row.ToP3, err = parseShare(fr.ToP3)
	}

	return row, err
}

func parseShare(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}

	return d
}
