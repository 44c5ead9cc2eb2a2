// Package pathcodec decodes the packed multi-hop route encodings used
// by the swap and margin venues. Both decoders are iterative, visit
// every hop, and refuse to read past the end of the route: an
// intermediate token skipped here would never reach the asset
// whitelist check.
package pathcodec

import (
	"errors"
	"fmt"

	"github.com/vaultops/callguard/internal/model"
)

const (
	feeLen = 3

	// swapHopLen is one hop of the 3-field swap encoding:
	// token (20) + pool fee (3), with one trailing token after the
	// final hop.
	swapHopLen = model.AddressLen + feeLen

	// venueHopLen is one hop of the 4-field margin encoding:
	// token (20) + fee (3) + venue id (1) + action (1), with one
	// trailing token after the final hop.
	venueHopLen = model.AddressLen + feeLen + 2
)

var (
	// ErrShortPath is returned when a route is smaller than one hop
	// plus its trailing token.
	ErrShortPath = errors.New("pathcodec: route too short")

	// ErrRaggedPath is returned when a route length is not an exact
	// sequence of hops plus one trailing token. A ragged tail could
	// hide an address the hop walk would never visit.
	ErrRaggedPath = errors.New("pathcodec: route length not a whole number of hops")
)

// SwapPathTokens decodes a 3-field swap route and returns every token
// it traverses, in hop order, endpoints included.
func SwapPathTokens(path []byte) ([]model.Address, error) {
	return walk(path, swapHopLen)
}

// VenuePathTokens decodes a 4-field margin route and returns every
// token it traverses, in hop order, endpoints included. Token-in sits
// at offset 0 and the first token-out one hop later; the venue id and
// action bytes are admission-irrelevant and skipped.
func VenuePathTokens(path []byte) ([]model.Address, error) {
	return walk(path, venueHopLen)
}

// walk iterates the route one hop at a time. The loop condition is
// "another full hop plus the trailing token still remains": stopping
// any earlier would return before the last intermediate token is seen.
func walk(path []byte, hopLen int) ([]model.Address, error) {
	minLen := hopLen + model.AddressLen
	if len(path) < minLen {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrShortPath, len(path), minLen)
	}
	if (len(path)-model.AddressLen)%hopLen != 0 {
		return nil, fmt.Errorf("%w: %d bytes with %d-byte hops", ErrRaggedPath, len(path), hopLen)
	}

	tokens := []model.Address{addressAt(path, 0), addressAt(path, hopLen)}
	rest := path[hopLen:]
	for len(rest) >= minLen {
		tokens = append(tokens, addressAt(rest, hopLen))
		rest = rest[hopLen:]
	}
	return tokens, nil
}

func addressAt(b []byte, off int) model.Address {
	var a model.Address
	copy(a[:], b[off:off+model.AddressLen])
	return a
}
