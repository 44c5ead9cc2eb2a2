package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// maxBatchDepth bounds batch nesting on adversarial input. A batch may
// contain only leaf sub-calls; the closed sub-call set below excludes
// the multicall identifier, and the depth guard backs that up.
const maxBatchDepth = 1

// batchSubCall is the closed set of identifiers a batch may contain.
// There is no "unknown but harmless" fallback: anything outside this
// set denies the whole batch.
var batchSubCall = map[model.Selector]handler{
	selTransferTokenIn:    validateMarginTransferIn,
	selTransferAllTokenIn: validateMarginTransferIn,
	selPositionDeposit:    validateMarginPosition,
	selPositionWithdraw:   validateMarginPosition,
	selFlashSwapExactIn:   validateFlashSwap,
	selFlashSwapExactOut:  validateFlashSwap,
	selFlashSwapAllOut:    validateFlashSwapAllOut,
}

// validateBatch unwraps multicall(bytes[]) and validates every
// sub-call. The batch admits only if every element does: a single
// unwhitelisted element anywhere denies the whole batch.
func validateBatch(snap *registry.Snapshot, target model.Address, args calldata.Args, depth int) model.Result {
	if depth >= maxBatchDepth {
		return model.Denied(model.KindUnknownCallIdentifier, "batch nesting exceeds depth %d", maxBatchDepth)
	}

	calls, err := args.BytesArray(0)
	if err != nil {
		return malformed(err)
	}

	for i, raw := range calls {
		sel, sub, err := calldata.Split(raw)
		if err != nil {
			return model.Denied(model.KindMalformedPayload, "sub-call %d: %v", i, err)
		}
		h, ok := batchSubCall[sel]
		if !ok {
			return model.Denied(model.KindUnknownCallIdentifier, "sub-call %d: identifier %s not recognised in batch", i, sel)
		}
		if res := h(snap, target, sub); !res.Ok() {
			return res
		}
	}
	return model.Admitted()
}
