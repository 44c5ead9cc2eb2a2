package guard

import (
	"math/big"

	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// perpMarket resolves the venue policy for a perp-order target. All
// perp validators are keyed off the fixed trading-venue address in the
// market policy: an order aimed anywhere else is not a market call.
func perpMarket(snap *registry.Snapshot, target model.Address) (*registry.Market, model.Result) {
	m := snap.Market()
	if m == nil || m.Trading != target {
		return nil, model.Denied(model.KindMarketNotPermitted, "no leveraged market configured for %s", target)
	}
	return m, model.Admitted()
}

// requirePair denies unless the pair id is whitelisted on the venue.
func requirePair(m *registry.Market, pairID uint64) model.Result {
	if !m.PairAllowed(pairID) {
		return model.Denied(model.KindMarketNotPermitted, "pair %d not permitted", pairID)
	}
	return model.Admitted()
}

// requireCeilings applies the venue's two numeric ceilings. Both
// bounds are strict at zero: a zero leverage or collateral order is
// malformed intent, not a free pass.
func requireCeilings(m *registry.Market, collateral, leverage *big.Int) model.Result {
	if leverage.Sign() <= 0 || leverage.Cmp(m.MaxLeverage) > 0 {
		return model.Denied(model.KindLeverageExceeded, "leverage %s outside (0, %s]", leverage, m.MaxLeverage)
	}
	if collateral.Sign() <= 0 || collateral.Cmp(m.MaxCollateralPerTrade) > 0 {
		return model.Denied(model.KindCollateralExceeded, "collateral %s outside (0, %s]", collateral, m.MaxCollateralPerTrade)
	}
	return model.Admitted()
}

// openChecks decodes the shared leading fields (trader, pairId,
// collateral, leverage) and applies the full check set.
func openChecks(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	m, res := perpMarket(snap, target)
	if !res.Ok() {
		return res
	}
	pairID, err := args.Uint64(1)
	if err != nil {
		return malformed(err)
	}
	collateral, err := args.BigInt(2)
	if err != nil {
		return malformed(err)
	}
	leverage, err := args.BigInt(3)
	if err != nil {
		return malformed(err)
	}

	if res := requirePair(m, pairID); !res.Ok() {
		return res
	}
	return requireCeilings(m, collateral, leverage)
}

// validateOpenTrade covers openTrade(trader, pairId, collateral,
// leverage, long, tp, sl).
func validateOpenTrade(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	return openChecks(snap, target, args)
}

// validateOpenOrder covers openLimitOrder/openStopOrder(trader,
// pairId, collateral, leverage, long, price). Same leading fields,
// same checks.
func validateOpenOrder(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	return openChecks(snap, target, args)
}

// validateUpdateOrder covers updateOpenOrder(trader, pairId, index,
// price). No new collateral or leverage enters, so only the pair is
// checked.
func validateUpdateOrder(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	m, res := perpMarket(snap, target)
	if !res.Ok() {
		return res
	}
	pairID, err := args.Uint64(1)
	if err != nil {
		return malformed(err)
	}
	return requirePair(m, pairID)
}

// validateUpdateCollateral covers updateCollateral(trader, pairId,
// index, amount, increase). An increase is capped like an open; a
// decrease is never capped — it only reduces exposure.
func validateUpdateCollateral(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	m, res := perpMarket(snap, target)
	if !res.Ok() {
		return res
	}
	pairID, err := args.Uint64(1)
	if err != nil {
		return malformed(err)
	}
	amount, err := args.BigInt(3)
	if err != nil {
		return malformed(err)
	}
	increase, err := args.Bool(4)
	if err != nil {
		return malformed(err)
	}

	if res := requirePair(m, pairID); !res.Ok() {
		return res
	}
	if increase {
		if amount.Sign() <= 0 || amount.Cmp(m.MaxCollateralPerTrade) > 0 {
			return model.Denied(model.KindCollateralExceeded, "collateral increase %s outside (0, %s]", amount, m.MaxCollateralPerTrade)
		}
	}
	return model.Admitted()
}

// validateCloseOrCancel covers closeTrade/cancelOrder(trader, pairId,
// index). Closing only reduces exposure; the venue must match but a
// since-revoked pair does not trap an open position.
func validateCloseOrCancel(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	_, res := perpMarket(snap, target)
	if !res.Ok() {
		return res
	}
	if _, err := args.Uint64(1); err != nil {
		return malformed(err)
	}
	return model.Admitted()
}
