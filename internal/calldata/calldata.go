// Package calldata reads ABI-encoded call payloads without trusting them.
// Every accessor bounds-checks before touching the buffer: the payloads
// come from a delegated operator key that must be assumed hostile.
package calldata

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vaultops/callguard/internal/model"
)

// WordLen is the size of one ABI head word.
const WordLen = 32

// ErrShortPayload is returned when a read would run past the buffer.
var ErrShortPayload = errors.New("calldata: payload too short")

// maxOffset caps dynamic-data offsets. Offsets are attacker-controlled
// uint256 values; anything past the buffer is malformed, and anything
// that does not fit an int would wrap on 32-bit builds.
const maxOffset = 1 << 31

// Args is the parameter region of a call payload, selector already stripped.
type Args []byte

// Split separates a raw payload into its selector and parameter bytes.
func Split(payload []byte) (model.Selector, Args, error) {
	var sel model.Selector
	if len(payload) < model.SelectorLen {
		return sel, nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrShortPayload, len(payload), model.SelectorLen)
	}
	copy(sel[:], payload[:model.SelectorLen])
	return sel, Args(payload[model.SelectorLen:]), nil
}

// Word returns head word i.
func (a Args) Word(i int) ([WordLen]byte, error) {
	var w [WordLen]byte
	end := (i + 1) * WordLen
	if i < 0 || end > len(a) {
		return w, fmt.Errorf("%w: word %d of %d-byte args", ErrShortPayload, i, len(a))
	}
	copy(w[:], a[i*WordLen:end])
	return w, nil
}

// Address reads head word i as a right-aligned 20-byte address.
func (a Args) Address(i int) (model.Address, error) {
	w, err := a.Word(i)
	if err != nil {
		return model.ZeroAddress, err
	}
	var addr model.Address
	copy(addr[:], w[WordLen-model.AddressLen:])
	return addr, nil
}

// BigInt reads head word i as an unsigned 256-bit integer.
func (a Args) BigInt(i int) (*big.Int, error) {
	w, err := a.Word(i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w[:]), nil
}

// Uint64 reads head word i as a uint64, rejecting values that overflow.
func (a Args) Uint64(i int) (uint64, error) {
	n, err := a.BigInt(i)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("calldata: word %d overflows uint64", i)
	}
	return n.Uint64(), nil
}

// Bool reads head word i as an ABI boolean.
func (a Args) Bool(i int) (bool, error) {
	n, err := a.BigInt(i)
	if err != nil {
		return false, err
	}
	return n.Sign() != 0, nil
}

// offset reads head word i as a dynamic-data offset into a.
func (a Args) offset(i int) (int, error) {
	n, err := a.BigInt(i)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() >= maxOffset {
		return 0, fmt.Errorf("calldata: implausible offset in word %d", i)
	}
	off := int(n.Uint64())
	if off > len(a) {
		return 0, fmt.Errorf("%w: offset %d past %d-byte args", ErrShortPayload, off, len(a))
	}
	return off, nil
}

// Tuple returns the args region of the dynamic tuple whose offset is in
// head word i. Static tuple fields are then plain head words of the
// returned Args.
func (a Args) Tuple(i int) (Args, error) {
	off, err := a.offset(i)
	if err != nil {
		return nil, err
	}
	return Args(a[off:]), nil
}

// Bytes reads the dynamic byte string whose offset is in head word i.
func (a Args) Bytes(i int) ([]byte, error) {
	off, err := a.offset(i)
	if err != nil {
		return nil, err
	}
	return Args(a[off:]).lengthPrefixed()
}

// BytesArray reads the dynamic bytes[] whose offset is in head word i.
// Used for multicall batches: each element is itself a full sub-call
// payload with its own selector.
func (a Args) BytesArray(i int) ([][]byte, error) {
	off, err := a.offset(i)
	if err != nil {
		return nil, err
	}
	arr := Args(a[off:])
	count, err := arr.Uint64(0)
	if err != nil {
		return nil, err
	}
	// Each element needs at least an offset word; more elements than
	// words in the buffer is malformed without reading further.
	if count > uint64(len(arr)/WordLen) {
		return nil, fmt.Errorf("%w: bytes[] claims %d elements in %d bytes", ErrShortPayload, count, len(arr))
	}
	body := arr[WordLen:]
	out := make([][]byte, 0, count)
	for e := 0; e < int(count); e++ {
		elemOff, err := body.offset(e)
		if err != nil {
			return nil, err
		}
		elem, err := Args(body[elemOff:]).lengthPrefixed()
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

// lengthPrefixed reads a length word followed by that many bytes.
func (a Args) lengthPrefixed() ([]byte, error) {
	n, err := a.Uint64(0)
	if err != nil {
		return nil, err
	}
	if n >= maxOffset || WordLen+int(n) > len(a) {
		return nil, fmt.Errorf("%w: %d-byte field in %d-byte region", ErrShortPayload, n, len(a))
	}
	return a[WordLen : WordLen+int(n)], nil
}
