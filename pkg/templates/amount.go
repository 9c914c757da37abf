package templates

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the precision of native chain denominations
	NativeDecimals int32 = 6
	// MaxDecimals bounds user supplied token precision
	MaxDecimals int32 = 18
)

var (
	amountRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

	// maxUint128 is the largest amount a contract Uint128 can hold
	maxUint128 = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)), 0)
)

// ToBaseUnits converts an amount in display units into an integer string of base units.
// The conversion is exact, inputs with more fractional digits than decimals are rejected.
func ToBaseUnits(amount string, decimals int32) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", multisig.NewValidationError("decimals", "must be between 0 and 18")
	}

	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "", multisig.NewValidationError("amount", "is required")
	}

	// plain digits only, exponents would let a short input expand without bound
	if !amountRe.MatchString(amount) {
		return "", multisig.NewValidationError("amount", "must be a number")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", multisig.NewValidationError("amount", "must be a number")
	}

	if d.Sign() <= 0 {
		return "", multisig.NewValidationError("amount", "must be greater than zero")
	}

	base := d.Shift(decimals)
	if !base.IsInteger() {
		return "", multisig.NewValidationError("amount", "has more than "+strconv.Itoa(int(decimals))+" decimal places")
	}

	if base.GreaterThan(maxUint128) {
		return "", multisig.NewValidationError("amount", "is too large")
	}

	return base.BigInt().String(), nil
}

// ParseDecimals parses a user supplied token precision
func ParseDecimals(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, multisig.NewValidationError("decimals", "is required")
	}

	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, multisig.NewValidationError("decimals", "must be an integer")
	}

	if n < 0 || int32(n) > MaxDecimals {
		return 0, multisig.NewValidationError("decimals", "must be between 0 and 18")
	}

	return int32(n), nil
}
