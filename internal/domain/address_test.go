package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	// Ed25519 public key: on-curve, valid for wallets and mints.
	onCurveAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	// Well-formed 32 bytes but off the curve: a program derived
	// address. Valid as a token mint, invalid as a wallet.
	offCurveAddr = "9Hb9g9P4gBGs8uEpuUVcp1Vp41zixDtfv23mKgBwmqnC"
)

func TestValidateTokenAddress(t *testing.T) {
	assert.NoError(t, ValidateTokenAddress(onCurveAddr))
	assert.NoError(t, ValidateTokenAddress(offCurveAddr), "PDA mints are legal tokens")

	assert.ErrorIs(t, ValidateTokenAddress(""), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateTokenAddress("not-base58-0OIl"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateTokenAddress("abc"), ErrInvalidAddress, "too short after decoding")
}

func TestValidateWalletAddress(t *testing.T) {
	assert.NoError(t, ValidateWalletAddress(onCurveAddr))

	assert.ErrorIs(t, ValidateWalletAddress(offCurveAddr), ErrOffCurveAddress, "PDAs cannot sign")
	assert.ErrorIs(t, ValidateWalletAddress(""), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateWalletAddress("not-base58-0OIl"), ErrInvalidAddress)
}
