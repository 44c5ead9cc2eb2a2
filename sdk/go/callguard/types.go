package callguard

import (
	"fmt"

	"github.com/vaultops/callguard/internal/model"
)

// Decision is the admission outcome.
type Decision string

const (
	Admit Decision = Decision(model.Admit)
	Deny  Decision = Decision(model.Deny)
)

// Call describes one proposed outbound contract call.
type Call struct {
	Sender  string // operator address, 0x-prefixed
	Target  string // callee contract address, 0x-prefixed
	Payload []byte // raw calldata: selector plus ABI-encoded arguments
}

// Result is an admission outcome.
type Result struct {
	Decision   Decision
	Kind       string
	Reason     string
	PolicyHash string
}

// Admitted returns true if the call may be signed and broadcast.
func (r Result) Admitted() bool {
	return r.Decision == Admit
}

// BlockedError is returned by Require when a call is denied.
type BlockedError struct {
	Call   Call
	Kind   string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("callguard blocked (%s): %s", e.Kind, e.Reason)
}
