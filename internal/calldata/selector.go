package calldata

import (
	"golang.org/x/crypto/sha3"

	"github.com/vaultops/callguard/internal/model"
)

// SelectorOf derives the 4-byte selector of a canonical function
// signature, e.g. "transfer(address,uint256)". Deriving at init from
// the signature keeps the constant and the signature from drifting
// apart, which a hand-transcribed hex literal would not.
func SelectorOf(signature string) model.Selector {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel model.Selector
	copy(sel[:], h.Sum(nil)[:model.SelectorLen])
	return sel
}
