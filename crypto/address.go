package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable part of a bech32 sale address.
const AddressPrefix = "sale"

// Address is a 20-byte account identifier rendered as bech32 for humans.
type Address struct {
	bytes [20]byte
}

// NewAddress wraps raw 20-byte address material.
func NewAddress(b [20]byte) Address {
	return Address{bytes: b}
}

// Bytes returns the raw 20-byte form.
func (a Address) Bytes() [20]byte { return a.bytes }

// IsZero reports whether the address is the null address.
func (a Address) IsZero() bool { return a.bytes == [20]byte{} }

// String renders the address as bech32 with the sale prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// ParseAddress decodes a bech32 sale address or a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Address{}, fmt.Errorf("crypto: empty address")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return Address{}, fmt.Errorf("crypto: invalid hex address: %w", err)
		}
		if len(raw) != 20 {
			return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(raw))
		}
		var addr [20]byte
		copy(addr[:], raw)
		return Address{bytes: addr}, nil
	}
	prefix, data, err := bech32.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 address: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("crypto: unexpected address prefix %q", prefix)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 payload: %w", err)
	}
	if len(raw) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(raw))
	}
	var addr [20]byte
	copy(addr[:], raw)
	return Address{bytes: addr}, nil
}
