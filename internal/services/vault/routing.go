package vault

import (
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/policy"
)

// RoutingLeg breaks out where one pool's profit went.
type RoutingLeg struct {
	Reinvest decimal.Decimal `json:"reinvest"`
	ToP1     decimal.Decimal `json:"to_p1"`
	ToP2     decimal.Decimal `json:"to_p2"`
	ToP3     decimal.Decimal `json:"to_p3"`
}

// RoutingDetails is the full audit breakdown of one routing pass.
type RoutingDetails struct {
	P1 RoutingLeg `json:"p1"`
	P2 RoutingLeg `json:"p2"`
	P3 RoutingLeg `json:"p3"`
}

// RoutingOutcome is the result of one profit routing pass.
type RoutingOutcome struct {
	Changes RoutingChanges
	Details RoutingDetails
}

// WeeklyProfits computes each pool's yield for one epoch from its balance
// and annual rate.
func WeeklyProfits(rates policy.PoolRates, balances PoolBalances) Profits {
	weeks := decimal.NewFromInt(policy.WeeksPerYear)

	return Profits{
		P1: balances.P1.Mul(rates.P1).Div(weeks),
		P2: balances.P2.Mul(rates.P2).Div(weeks),
		P3: balances.P3.Mul(rates.P3).Div(weeks),
	}
}

// RouteProfits redistributes each pool's profit across the pools per the
// routing matrix. Outbound legs are computed by multiplication and the
// reinvested share is the exact remainder, so the three net changes sum
// to the total profit with nothing lost to rounding.
func RouteProfits(m policy.RoutingMatrix, pr Profits) RoutingOutcome {
	details := RoutingDetails{
		P1: routeOne(m.P1, pr.P1),
		P2: routeOne(m.P2, pr.P2),
		P3: routeOne(m.P3, pr.P3),
	}

	return RoutingOutcome{
		Changes: changesFromLegs(details),
		Details: details,
	}
}

// changesFromLegs recomputes the net per-pool changes from recorded
// routing legs, used when replaying a harvest from its audit details.
func changesFromLegs(d RoutingDetails) RoutingChanges {
	return RoutingChanges{
		P1: d.P1.Reinvest.Add(d.P1.ToP1).Add(d.P2.ToP1).Add(d.P3.ToP1),
		P2: d.P2.Reinvest.Add(d.P2.ToP2).Add(d.P1.ToP2).Add(d.P3.ToP2),
		P3: d.P3.Reinvest.Add(d.P3.ToP3).Add(d.P1.ToP3).Add(d.P2.ToP3),
	}
}

func routeOne(row policy.RoutingRow, profit decimal.Decimal) RoutingLeg {
	leg := RoutingLeg{
		ToP1: profit.Mul(row.ToP1),
		ToP2: profit.Mul(row.ToP2),
		ToP3: profit.Mul(row.ToP3),
	}

	// Remainder, not profit*reinvest: keeps the leg sum exactly equal to
	// the profit even when the shares don't multiply out cleanly.
	leg.Reinvest = profit.Sub(leg.ToP1).Sub(leg.ToP2).Sub(leg.ToP3)

	return leg
}
