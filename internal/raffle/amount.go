package raffle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	weiDecimals = 18
	// amounts are uint256 on chain, at most 78 decimal digits
	maxWeiBits   = 256
	maxWeiDigits = 78
)

// ParseEther converts a decimal ether amount such as "0.01" to wei.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse ether amount %q: %w", s, ErrInvalidParameters)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative ether amount %q: %w", s, ErrInvalidParameters)
	}
	// bound the exponent before Shift and BigInt expand it
	if exp := d.Exponent(); exp > maxWeiDigits || exp < -maxWeiDigits {
		return nil, fmt.Errorf("ether amount %q out of range: %w", s, ErrInvalidParameters)
	}
	wei := d.Shift(weiDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("ether amount %q has more than %d decimals: %w", s, weiDecimals, ErrInvalidParameters)
	}
	v := wei.BigInt()
	if v.BitLen() > maxWeiBits {
		return nil, fmt.Errorf("ether amount %q exceeds uint256: %w", s, ErrInvalidParameters)
	}
	return v, nil
}

// FormatEther renders a wei amount in ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}

// ParseWei reads a non-negative base-10 wei amount. The empty string is zero.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	if len(s) > maxWeiDigits+1 {
		return nil, fmt.Errorf("wei amount of %d characters: %w", len(s), ErrIncorrectPayment)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("parse wei amount %q: %w", s, ErrIncorrectPayment)
	}
	if v.BitLen() > maxWeiBits {
		return nil, fmt.Errorf("wei amount %q exceeds uint256: %w", s, ErrIncorrectPayment)
	}
	return v, nil
}

// ParseIdentity validates a hex account address. Comparison between
// identities is case-insensitive because both sides are normalized.
func ParseIdentity(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("address %q: %w", s, ErrInvalidIdentity)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address: %w", ErrInvalidIdentity)
	}
	return addr, nil
}
