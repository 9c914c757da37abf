package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const DefaultAddressPrefix = "terra"

var ErrInvalidAddress = errors.New("invalid address")

// IsSameAddress compares two bech32 addresses ignoring case
func IsSameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// NormalizeAddress validates a bech32 account or contract address with the given
// human readable prefix and returns it in lower case
func NormalizeAddress(addr, prefix string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if prefix != "" && hrp != prefix {
		return "", fmt.Errorf("%w: expected prefix %s, got %s", ErrInvalidAddress, prefix, hrp)
	}

	// accounts are 20 bytes, contracts 32
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if len(raw) != 20 && len(raw) != 32 {
		return "", fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}

	return strings.ToLower(addr), nil
}
