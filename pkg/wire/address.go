package wire

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a bridge protocol address. Accounts, tokens, and controllers on
// both ledgers share this representation; if the underlying identity is
// shorter than 32 bytes the value is zero-padded on the left.
type Address [32]byte

// ZeroAddress is the reserved null identity. It is never a valid account,
// token, or controller identity.
var ZeroAddress = Address{}

// MarshalJSON implements the json.Marshaler interface for Address.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, a.String())), nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether a is the reserved null identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// StringToAddress converts a hex-encoded string into an Address, padding the
// value on the left if it decodes to fewer than 32 bytes. A leading "0x" is
// accepted and ignored.
func StringToAddress(value string) (Address, error) {
	var address Address

	// Make sure we have enough to decode
	if len(value) < 2 {
		return address, fmt.Errorf("value must be at least 1 byte")
	}

	// Trim any preceding "0x" to the address
	value = strings.TrimPrefix(value, "0x")

	// Decode the string from hex to binary
	res, err := hex.DecodeString(value)
	if err != nil {
		return address, err
	}

	// Make sure we don't have too many bytes
	if len(res) > 32 {
		return address, fmt.Errorf("value must be no more than 32 bytes")
	}
	copy(address[32-len(res):], res)

	return address, nil
}

// BytesToAddress converts a raw byte slice into an Address, padding the value
// on the left if it is shorter than 32 bytes.
func BytesToAddress(b []byte) (Address, error) {
	var address Address
	if len(b) > 32 {
		return address, fmt.Errorf("value must be no more than 32 bytes")
	}

	copy(address[32-len(b):], b)
	return address, nil
}
