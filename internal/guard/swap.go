package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/pathcodec"
	"github.com/vaultops/callguard/internal/registry"
)

// validateSingleHopSwap covers exactInputSingle/exactOutputSingle. The
// params struct is all static, so its fields are plain head words:
// tokenIn, tokenOut, fee, recipient, amount, amountLimit, priceLimit.
func validateSingleHopSwap(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	tokenIn, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	tokenOut, err := args.Address(1)
	if err != nil {
		return malformed(err)
	}
	recipient, err := args.Address(3)
	if err != nil {
		return malformed(err)
	}

	if !snap.IsReceiver(recipient) {
		return model.Denied(model.KindReceiverNotPermitted, "swap recipient %s not permitted", recipient)
	}
	return requireAssets(snap, tokenIn, tokenOut)
}

// validatePathSwap covers exactInput/exactOutput. The params struct
// contains dynamic bytes, so the tuple itself is behind an offset:
// path, recipient, amount, amountLimit.
func validatePathSwap(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	params, err := args.Tuple(0)
	if err != nil {
		return malformed(err)
	}
	path, err := params.Bytes(0)
	if err != nil {
		return malformed(err)
	}
	recipient, err := params.Address(1)
	if err != nil {
		return malformed(err)
	}

	if !snap.IsReceiver(recipient) {
		return model.Denied(model.KindReceiverNotPermitted, "swap recipient %s not permitted", recipient)
	}

	tokens, err := pathcodec.SwapPathTokens(path)
	if err != nil {
		return malformed(err)
	}
	return requireAssets(snap, tokens...)
}

// requireAssets denies on the first token outside the asset whitelist.
// Every hop of a route goes through here: an unwhitelisted
// intermediate token is as fatal as an unwhitelisted endpoint.
func requireAssets(snap *registry.Snapshot, tokens ...model.Address) model.Result {
	for _, tok := range tokens {
		if !snap.IsAsset(tok) {
			return model.Denied(model.KindAssetNotPermitted, "asset %s not whitelisted", tok)
		}
	}
	return model.Admitted()
}
