// Package callguard provides pre-signing admission checks for Go
// operator tooling. Every proposed outbound contract call is validated
// against a governance-controlled whitelist registry and either
// admitted or denied with a single reason.
//
// Usage:
//
//	cg, err := callguard.New(callguard.WithPolicy("policy.yaml"))
//	if err := cg.Require(ctx, callguard.Call{
//	    Sender:  operator,
//	    Target:  router,
//	    Payload: calldata,
//	}); err != nil {
//	    return err // *BlockedError carries the denial kind and reason
//	}
//	// safe to sign and broadcast
//
// With WithServer the same checks run against a remote admission
// service instead of an in-process policy file. The SDK links directly
// against internal packages for zero-subprocess overhead. External
// users import github.com/vaultops/callguard/sdk/go/callguard.
package callguard
