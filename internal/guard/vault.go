package guard

import (
	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// validateVaultDeposit covers deposit/mint/requestDeposit. Deposits
// move funds into a vault the operator does not control outbound, so
// admissibility is governed entirely by the call-site and
// approval-destination checks that already ran.
func validateVaultDeposit(_ *registry.Snapshot, _ model.Address, _ calldata.Args) model.Result {
	return model.Admitted()
}

// validateVaultWithdraw covers withdraw/redeem/requestRedeem/
// requestWithdraw, all shaped (amount, receiver, owner). Proceeds must
// return to the vault's own custody, never elsewhere.
func validateVaultWithdraw(snap *registry.Snapshot, _ model.Address, args calldata.Args) model.Result {
	receiver, err := args.Address(1)
	if err != nil {
		return malformed(err)
	}
	if !snap.IsReceiver(receiver) {
		return model.Denied(model.KindReceiverNotPermitted, "redemption receiver %s not permitted", receiver)
	}
	return model.Admitted()
}

// validateVaultSettlement covers settleDeposit/settleRedeem triggered
// on a custodial multisig's behalf. The only check is that the target
// vault is whitelisted for settlement; the parameters carry no
// destinations.
func validateVaultSettlement(snap *registry.Snapshot, target model.Address, _ calldata.Args) model.Result {
	if !snap.IsLagoonVault(target) {
		return model.Denied(model.KindReceiverNotPermitted, "vault %s not whitelisted for settlement", target)
	}
	return model.Admitted()
}
