// Package treasury holds the keypair that funds rewards. It is decoded once at
// startup and never mutated, so a *Signer may be shared by every request.
package treasury

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

type Signer struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

// FromBase58 decodes a 64-byte secret key. The JSON array form written by
// solana-keygen is accepted too.
func FromBase58(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "[") {
		return fromJSON(secret)
	}
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode treasury key: %w", err)
	}
	return New(key)
}

func fromJSON(secret string) (*Signer, error) {
	var raw []byte
	var ints []int
	if err := json.Unmarshal([]byte(secret), &ints); err != nil {
		return nil, fmt.Errorf("failed to decode treasury key: %w", err)
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("treasury key byte out of range: %d", v)
		}
		raw = append(raw, byte(v))
	}
	return New(solana.PrivateKey(raw))
}

func New(key solana.PrivateKey) (*Signer, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("treasury key must be 64 bytes, got %d", len(key))
	}
	// the second half must be the public key derived from the seed
	derived := ed25519.NewKeyFromSeed(key[:32])
	if !bytes.Equal(derived, key) {
		return nil, fmt.Errorf("invalid treasury key: public half does not match seed")
	}
	return &Signer{key: key, pub: key.PublicKey()}, nil
}

func (s *Signer) PublicKey() solana.PublicKey { return s.pub }

// SignerFunc is handed to Transaction.Sign; it only answers for the treasury
// account.
func (s *Signer) SignerFunc() func(solana.PublicKey) *solana.PrivateKey {
	return func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.pub) {
			key := s.key
			return &key
		}
		return nil
	}
}
