package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// The three destination validators run regardless of the any-asset
// flag: the bypass covers asset membership only and never reaches a
// destination check.

// validateTransfer covers transfer(to, amount).
func validateTransfer(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	dest, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	if !snap.IsWithdrawDestination(dest) {
		return model.Denied(model.KindWithdrawDestinationNotPermitted, "transfer destination %s not permitted", dest)
	}
	return model.Admitted()
}

// validateApprove covers approve(spender, amount).
func validateApprove(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	dest, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	if !snap.IsApprovalDestination(dest) {
		return model.Denied(model.KindApprovalDestinationNotPermitted, "approval destination %s not permitted", dest)
	}
	return model.Admitted()
}

// validateApproveDelegation covers approveDelegation(delegatee,
// amount) on a credit-delegation debt token.
func validateApproveDelegation(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	dest, err := args.Address(0)
	if err != nil {
		return malformed(err)
	}
	if !snap.IsDelegationDestination(dest) {
		return model.Denied(model.KindApprovalDestinationNotPermitted, "delegation destination %s not permitted", dest)
	}
	return model.Admitted()
}
