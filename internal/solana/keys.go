package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of an ed25519 public key.
const PubkeyLen = 32

// DecodePubkey decodes a base58 address and verifies it is 32 bytes.
func DecodePubkey(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode base58 address: %w", err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("address %q: expected %d bytes, got %d", address, PubkeyLen, len(raw))
	}
	return raw, nil
}

// ValidateAddress checks that an address extracted from transaction data is a
// well-formed base58 pubkey. Pool accounts are PDAs and may be off-curve, so
// no curve check is applied here.
func ValidateAddress(address string) error {
	_, err := DecodePubkey(address)
	return err
}

// IsOnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet pubkeys are on-curve; program-derived addresses are not.
func IsOnCurve(address string) bool {
	raw, err := DecodePubkey(address)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
