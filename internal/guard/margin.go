package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/pathcodec"
	"github.com/vaultops/callguard/internal/registry"
)

// validateMarginTransferIn covers transferTokenIn(token, amount) and
// transferAllTokenIn(token). Both move a named token into the margin
// account; the token must be whitelisted.
func validateMarginTransferIn(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	token, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	return requireAssets(snap, token)
}

// validateMarginPosition covers positionDeposit/positionWithdraw
// (token, amount, receiver): funds cross into or out of a lending
// position, so both the token and the receiver are checked.
func validateMarginPosition(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
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
		return model.Denied(model.KindReceiverNotPermitted, "position receiver %s not permitted", receiver)
	}
	return model.Admitted()
}

// validateFlashSwap covers flashSwapExactIn/flashSwapExactOut
// (amount, amountLimit, route). Every token the route traverses must
// be whitelisted.
func validateFlashSwap(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	return flashSwapRoute(snap, args, 2)
}

// validateFlashSwapAllOut covers flashSwapAllOut(amountLimit, route).
func validateFlashSwapAllOut(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result {
	return flashSwapRoute(snap, args, 1)
}

func flashSwapRoute(snap *registry.Snapshot, args calldata.Args, routeWord int) model.Result {
	route, err := args.Bytes(routeWord)
	if err != nil {
		return malformed(err)
	}
	tokens, err := pathcodec.VenuePathTokens(route)
	if err != nil {
		return malformed(err)
	}
	return requireAssets(snap, tokens...)
}
