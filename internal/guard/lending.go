package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// validateLendingSupply covers supply(asset, amount, onBehalfOf,
// referralCode). Funds move into the lending pool; only the asset is
// checked.
func validateLendingSupply(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	token, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	return requireAssets(snap, token)
}

// validateLendingWithdraw covers withdraw(asset, amount, to). Funds
// leave the pool, so the receiver must additionally be whitelisted.
func validateLendingWithdraw(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	token, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	receiver, err := args.Address(2)
	if err != nil {
		return malformed(err)
	}

	if res := requireAssets(snap, token); !res.Ok() {
		return res
	}
	if !snap.IsReceiver(receiver) {
		return model.Denied(model.KindReceiverNotPermitted, "withdraw receiver %s not permitted", receiver)
	}
	return model.Admitted()
}
