package types

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/near-commons/near-rpc-go/codec"
)

// CryptoHashLength is the size of a NEAR hash in bytes
const CryptoHashLength = 32

// CryptoHash is a sha256 digest, rendered as base58 on the wire
type CryptoHash [CryptoHashLength]byte

// ParseCryptoHash decodes a base58 string into a CryptoHash
func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid base58 hash %q: %w", s, err)
	}
	if len(raw) != CryptoHashLength {
		return h, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, CryptoHashLength, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// MustParseCryptoHash is ParseCryptoHash for constants and tests
func MustParseCryptoHash(s string) CryptoHash {
	h, err := ParseCryptoHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h CryptoHash) String() string {
	return base58.Encode(h[:])
}

func (h CryptoHash) IsZero() bool {
	return h == CryptoHash{}
}

func (h CryptoHash) MarshalJSON() ([]byte, error) {
	return codec.Encode(h.String())
}

func (h *CryptoHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := codec.DecodeInto(data, &s); err != nil {
		return fmt.Errorf("hash must be a string: %w", err)
	}
	parsed, err := ParseCryptoHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// AccountID is a NEAR account identifier such as "alice.near"
type AccountID string

// ParseAccountID validates s against the NEAR account id rules
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < minAccountIDLen || len(s) > maxAccountIDLen {
		return "", fmt.Errorf("invalid account id %q: length must be between %d and %d", s, minAccountIDLen, maxAccountIDLen)
	}

	lastWasSeparator := true // a leading separator is rejected
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			lastWasSeparator = false
		case c == '-' || c == '_' || c == '.':
			if lastWasSeparator {
				return "", fmt.Errorf("invalid account id %q: unexpected separator at position %d", s, i)
			}
			lastWasSeparator = true
		default:
			return "", fmt.Errorf("invalid account id %q: invalid character %q at position %d", s, c, i)
		}
	}
	if lastWasSeparator {
		return "", fmt.Errorf("invalid account id %q: must not end with a separator", s)
	}

	return AccountID(s), nil
}

// MustParseAccountID is ParseAccountID for constants and tests
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	return string(a)
}

func (a *AccountID) UnmarshalJSON(data []byte) error {
	var s string
	if err := codec.DecodeInto(data, &s); err != nil {
		return fmt.Errorf("account id must be a string: %w", err)
	}
	parsed, err := ParseAccountID(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Balance is an amount of yoctoNEAR (u128), encoded as a decimal string
type Balance struct {
	uint256.Int
}

// NewBalance wraps a uint64 amount of yoctoNEAR
func NewBalance(yocto uint64) Balance {
	var b Balance
	b.SetUint64(yocto)
	return b
}

// ParseBalance parses a decimal yoctoNEAR amount
func ParseBalance(s string) (Balance, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid balance %q: %w", s, err)
	}
	if v.BitLen() > 128 {
		return Balance{}, fmt.Errorf("invalid balance %q: exceeds u128", s)
	}
	return Balance{Int: *v}, nil
}

func (b Balance) String() string {
	return b.Dec()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return codec.Encode(b.Dec())
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := codec.DecodeInto(data, &s); err != nil {
		return fmt.Errorf("balance must be a decimal string: %w", err)
	}
	parsed, err := ParseBalance(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Gas is an amount of gas units
type Gas uint64
