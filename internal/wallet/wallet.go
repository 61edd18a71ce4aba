// Package wallet holds the signing keypair and signs serialized transactions.
package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// Wallet wraps an ed25519 keypair used as fee payer and signer.
type Wallet struct {
	priv   ed25519.PrivateKey
	pubkey string // base58
}

// NewFromBase58 builds a wallet from a base58-encoded secret key. Both the
// 64-byte keypair encoding and the 32-byte seed encoding are accepted.
func NewFromBase58(secret string) (*Wallet, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode wallet key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("wallet key: expected %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}

	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}

	return &Wallet{
		priv:   priv,
		pubkey: base58.Encode(pub),
	}, nil
}

// PublicKey returns the base58 wallet address.
func (w *Wallet) PublicKey() string { return w.pubkey }

// Sign signs an arbitrary message with the wallet key.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}

// SignTransaction signs a base64-encoded serialized transaction as fee payer
// and returns the signed transaction, re-encoded. The wire layout is a
// compact-u16 signature count, 64-byte signature slots, then the message; the
// fee payer signature occupies slot zero.
func (w *Wallet) SignTransaction(txBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	numSigs, offset, err := decodeCompactU16(raw)
	if err != nil {
		return "", fmt.Errorf("parse signature count: %w", err)
	}
	if numSigs == 0 {
		return "", fmt.Errorf("transaction reserves no signature slots")
	}

	msgStart := offset + numSigs*ed25519.SignatureSize
	if msgStart > len(raw) {
		return "", fmt.Errorf("transaction truncated: %d bytes, need %d for signatures", len(raw), msgStart)
	}

	sig := ed25519.Sign(w.priv, raw[msgStart:])
	copy(raw[offset:offset+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCompactU16 decodes the short-vec length prefix used by the
// transaction wire format. Returns the value and the number of bytes read.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
