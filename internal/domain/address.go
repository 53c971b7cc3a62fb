package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of every ledger identity.
const AddressLen = 32

// Address is the base58 text form of a 32-byte identity.
type Address string

// ZeroAddress is the base58 encoding of 32 zero bytes.
var ZeroAddress = Address(base58.Encode(make([]byte, AddressLen)))

// AddressFromBytes encodes raw identity bytes.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLen {
		return "", fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, AddressLen, len(b))
	}
	return Address(base58.Encode(b)), nil
}

// ParseAddress validates text and returns it as an Address.
// The zero address parses successfully; use IsZero to reject it.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLen {
		return "", fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, AddressLen, len(raw))
	}
	return Address(s), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is empty or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// Bytes decodes the address. Returns nil for malformed text.
func (a Address) Bytes() []byte {
	raw, err := base58.Decode(string(a))
	if err != nil || len(raw) != AddressLen {
		return nil
	}
	return raw
}

// String returns the base58 text.
func (a Address) String() string {
	return string(a)
}

// Valid reports whether a is well-formed and not the zero address.
func (a Address) Valid() bool {
	return !a.IsZero() && a.Bytes() != nil
}
