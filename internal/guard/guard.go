// Package guard is the admission decision procedure for outbound
// vault calls. Given a registry snapshot and a proposed call it
// returns a single admit/deny result; it performs no I/O, never
// retries, and never mutates policy state.
package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// handler validates one call shape's parameters against the snapshot.
type handler func(snap *registry.Snapshot, target model.Address, args calldata.Args) model.Result

// Validate decides whether the proposed call may be forwarded for
// execution.
//
// Evaluation order (must not be changed):
//  1. Governance principal — unconditional admit (break-glass)
//  2. Sender whitelist — deny SenderNotPermitted
//  3. Selector extraction — deny MalformedPayload
//  4. Call-site check — skipped only for approve under the any-asset
//     flag; denial distinguishes unknown target from unknown selector
//  5. Protocol validator dispatch — unknown identifier denies
func Validate(snap *registry.Snapshot, sender, target model.Address, payload []byte) model.Result {
	gov := snap.GovernancePrincipal()
	if !gov.IsZero() && sender == gov {
		return model.Admitted()
	}

	if !snap.IsSender(sender) {
		return model.Denied(model.KindSenderNotPermitted, "sender %s not permitted", sender)
	}

	sel, args, err := calldata.Split(payload)
	if err != nil {
		return model.Denied(model.KindMalformedPayload, "%v", err)
	}

	// The any-asset flag skips the call-site check for the approve
	// identifier only; the approve validator still runs below. It is
	// deliberately this narrow: widening it would silently disable
	// asset checks on other call types.
	if sel != registry.ApproveSelector || !snap.AnyAsset() {
		if !snap.CallSiteAllowed(target, sel) {
			if !snap.KnownTarget(target) {
				return model.Denied(model.KindTargetNotPermitted, "target %s unknown", target)
			}
			return model.Denied(model.KindSelectorNotPermitted, "selector %s not permitted on %s", sel, target)
		}
	}

	return dispatch(snap, target, sel, args, 0)
}

// dispatch routes the call to exactly one protocol validator, matched
// exhaustively over the closed identifier set.
func dispatch(snap *registry.Snapshot, target model.Address, sel model.Selector, args calldata.Args, depth int) model.Result {
	var h handler
	switch sel {
	case selExactInputSingle, selExactOutputSingle:
		h = validateSingleHopSwap
	case selExactInput, selExactOutput:
		h = validatePathSwap
	case selLendingSupply:
		h = validateLendingSupply
	case selLendingWithdraw:
		h = validateLendingWithdraw
	case selVaultDeposit, selVaultMint, selVaultRequestDeposit:
		h = validateVaultDeposit
	case selVaultWithdraw, selVaultRedeem, selVaultRequestRedeem, selVaultRequestWithdraw:
		h = validateVaultWithdraw
	case selSettleDeposit, selSettleRedeem:
		h = validateVaultSettlement
	case selTransferTokenIn, selTransferAllTokenIn:
		h = validateMarginTransferIn
	case selPositionDeposit, selPositionWithdraw:
		h = validateMarginPosition
	case selFlashSwapExactIn, selFlashSwapExactOut:
		h = validateFlashSwap
	case selFlashSwapAllOut:
		h = validateFlashSwapAllOut
	case selOpenTrade:
		h = validateOpenTrade
	case selOpenLimitOrder, selOpenStopOrder:
		h = validateOpenOrder
	case selUpdateOpenOrder:
		h = validateUpdateOrder
	case selUpdateCollateral:
		h = validateUpdateCollateral
	case selCloseTrade, selCancelOrder:
		h = validateCloseOrCancel
	case registry.TransferSelector:
		h = validateTransfer
	case registry.ApproveSelector:
		h = validateApprove
	case selApproveDelegation:
		h = validateApproveDelegation
	case selMulticall:
		return validateBatch(snap, target, args, depth)
	default:
		return model.Denied(model.KindUnknownCallIdentifier, "identifier %s not recognised", sel)
	}
	return h(snap, target, args)
}

// malformed wraps a decode failure as a terminal denial.
func malformed(err error) model.Result {
	return model.Denied(model.KindMalformedPayload, "%v", err)
}
