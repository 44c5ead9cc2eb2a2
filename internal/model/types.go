package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the byte length of an EVM account address.
const AddressLen = 20

// Address is a 20-byte EVM account address.
type Address [AddressLen]byte

// ZeroAddress is the all-zero address. It is never a valid whitelist member.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40-hex-digit address string.
func ParseAddress(s string) (Address, error) {
	var a Address
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != AddressLen*2 {
		return a, fmt.Errorf("address %q: want %d hex digits, got %d", s, AddressLen*2, len(trimmed))
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}
	copy(a[:], raw)
	return a, nil
}

// MustAddress parses an address string and panics on error.
// For package-level constants and tests only.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// SelectorLen is the byte length of a function selector.
const SelectorLen = 4

// Selector is the leading 4-byte function identifier of a call payload.
type Selector [SelectorLen]byte

// ParseSelector parses a 0x-prefixed, 8-hex-digit selector string.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != SelectorLen*2 {
		return sel, fmt.Errorf("selector %q: want %d hex digits, got %d", s, SelectorLen*2, len(trimmed))
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return sel, fmt.Errorf("selector %q: %w", s, err)
	}
	copy(sel[:], raw)
	return sel, nil
}

// String returns the 0x-prefixed hex form.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Decision is the admission verdict for a proposed call.
type Decision string

const (
	Admit Decision = "admit"
	Deny  Decision = "deny"
)

// ErrorKind identifies which check denied a call. Exactly one kind is
// reported per denial: the first failing check wins.
type ErrorKind string

const (
	KindNone                            ErrorKind = ""
	KindSenderNotPermitted              ErrorKind = "sender_not_permitted"
	KindTargetNotPermitted              ErrorKind = "target_not_permitted"
	KindSelectorNotPermitted            ErrorKind = "selector_not_permitted"
	KindReceiverNotPermitted            ErrorKind = "receiver_not_permitted"
	KindAssetNotPermitted               ErrorKind = "asset_not_permitted"
	KindApprovalDestinationNotPermitted ErrorKind = "approval_destination_not_permitted"
	KindWithdrawDestinationNotPermitted ErrorKind = "withdraw_destination_not_permitted"
	KindMarketNotPermitted              ErrorKind = "market_not_permitted"
	KindLeverageExceeded                ErrorKind = "leverage_exceeded"
	KindCollateralExceeded              ErrorKind = "collateral_exceeded"
	KindUnknownCallIdentifier           ErrorKind = "unknown_call_identifier"
	KindMalformedPayload                ErrorKind = "malformed_payload"
)

// Result is the outcome of one admission request.
type Result struct {
	Decision Decision  `json:"decision"`
	Kind     ErrorKind `json:"kind,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Admitted returns an admit result.
func Admitted() Result {
	return Result{Decision: Admit}
}

// Denied returns a deny result with the given kind and reason.
func Denied(kind ErrorKind, format string, args ...any) Result {
	return Result{Decision: Deny, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Ok reports whether the result admits the call.
func (r Result) Ok() bool {
	return r.Decision == Admit
}
