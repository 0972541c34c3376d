package domain

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	ErrInvalidAddress  = errors.New("invalid solana address")
	ErrOffCurveAddress = errors.New("address is not on the ed25519 curve")
)

// ValidateTokenAddress checks that addr is a well-formed Solana public
// key: base58, 32 bytes after decoding. Token mints may be program
// derived, so no curve check is applied.
func ValidateTokenAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return ErrInvalidAddress
	}
	return nil
}

// ValidateWalletAddress checks that addr is a well-formed Solana wallet
// key. Wallet keys are ed25519 public keys and must lie on the curve;
// off-curve values are PDAs and cannot sign.
func ValidateWalletAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return ErrInvalidAddress
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return ErrOffCurveAddress
	}
	return nil
}
