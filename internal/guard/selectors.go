package guard

import "github.com/vaultops/callguard/internal/calldata"

// Selectors of every call shape the guard recognises. Anything outside
// this closed set denies with UnknownCallIdentifier. Derived from the
// canonical signatures at init; see calldata.SelectorOf.
var (
	// AMM swaps. The single-hop params structs are all-static tuples,
	// encoded inline; the path variants carry a dynamic tuple.
	selExactInputSingle  = calldata.SelectorOf("exactInputSingle((address,address,uint24,address,uint256,uint256,uint160))")
	selExactOutputSingle = calldata.SelectorOf("exactOutputSingle((address,address,uint24,address,uint256,uint256,uint160))")
	selExactInput        = calldata.SelectorOf("exactInput((bytes,address,uint256,uint256))")
	selExactOutput       = calldata.SelectorOf("exactOutput((bytes,address,uint256,uint256))")

	// Lending pool.
	selLendingSupply   = calldata.SelectorOf("supply(address,uint256,address,uint16)")
	selLendingWithdraw = calldata.SelectorOf("withdraw(address,uint256,address)")

	// Vault deposit side (4626/7540). Admission is governed entirely by
	// the call-site and approval-destination checks.
	selVaultDeposit        = calldata.SelectorOf("deposit(uint256,address)")
	selVaultMint           = calldata.SelectorOf("mint(uint256,address)")
	selVaultRequestDeposit = calldata.SelectorOf("requestDeposit(uint256,address,address)")

	// Vault withdraw side.
	selVaultWithdraw        = calldata.SelectorOf("withdraw(uint256,address,address)")
	selVaultRedeem          = calldata.SelectorOf("redeem(uint256,address,address)")
	selVaultRequestRedeem   = calldata.SelectorOf("requestRedeem(uint256,address,address)")
	selVaultRequestWithdraw = calldata.SelectorOf("requestWithdraw(uint256,address,address)")

	// Vault settlement on a custodial multisig's behalf.
	selSettleDeposit = calldata.SelectorOf("settleDeposit(uint256)")
	selSettleRedeem  = calldata.SelectorOf("settleRedeem(uint256)")

	// Delegated-margin flash-swap family. These are also the only
	// identifiers a batch may contain.
	selTransferTokenIn    = calldata.SelectorOf("transferTokenIn(address,uint256)")
	selTransferAllTokenIn = calldata.SelectorOf("transferAllTokenIn(address)")
	selPositionDeposit    = calldata.SelectorOf("positionDeposit(address,uint256,address)")
	selPositionWithdraw   = calldata.SelectorOf("positionWithdraw(address,uint256,address)")
	selFlashSwapExactIn   = calldata.SelectorOf("flashSwapExactIn(uint256,uint256,bytes)")
	selFlashSwapExactOut  = calldata.SelectorOf("flashSwapExactOut(uint256,uint256,bytes)")
	selFlashSwapAllOut    = calldata.SelectorOf("flashSwapAllOut(uint256,bytes)")

	// Leveraged-perpetual order management.
	selOpenTrade        = calldata.SelectorOf("openTrade(address,uint256,uint256,uint256,bool,uint256,uint256)")
	selOpenLimitOrder   = calldata.SelectorOf("openLimitOrder(address,uint256,uint256,uint256,bool,uint256)")
	selOpenStopOrder    = calldata.SelectorOf("openStopOrder(address,uint256,uint256,uint256,bool,uint256)")
	selUpdateOpenOrder  = calldata.SelectorOf("updateOpenOrder(address,uint256,uint256,uint256)")
	selUpdateCollateral = calldata.SelectorOf("updateCollateral(address,uint256,uint256,uint256,bool)")
	selCloseTrade       = calldata.SelectorOf("closeTrade(address,uint256,uint256)")
	selCancelOrder      = calldata.SelectorOf("cancelOrder(address,uint256,uint256)")

	// Token credit delegation. Plain transfer/approve selectors live in
	// the registry package because WhitelistAsset registers them.
	selApproveDelegation = calldata.SelectorOf("approveDelegation(address,uint256)")

	// Nested call batch.
	selMulticall = calldata.SelectorOf("multicall(bytes[])")
)
