package registry

import "github.com/vaultops/callguard/internal/calldata"

// The two call sites WhitelistAsset registers for every asset. The
// guard's approve handling also keys off ApproveSelector for the
// any-asset call-site skip.
var (
	TransferSelector = calldata.SelectorOf("transfer(address,uint256)")
	ApproveSelector  = calldata.SelectorOf("approve(address,uint256)")
)
