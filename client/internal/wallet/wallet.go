// Package wallet gives the client a player identity. Two kinds exist: a
// local solana-keygen keypair, which can sign in, and a watch-only address,
// which can only receive rewards.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	KindKeypair = "keypair"
	KindWatch   = "watch"
)

var ErrCannotSign = errors.New("wallet cannot sign messages")

type Wallet interface {
	Address() string
	// SignMessage returns a base58 ed25519 signature of msg.
	SignMessage(msg []byte) (string, error)
	CanSign() bool

	sealed()
}

type Keypair struct {
	key solana.PrivateKey
}

func NewKeypair(key solana.PrivateKey) *Keypair { return &Keypair{key: key} }

// LoadKeypair reads a solana-keygen JSON keypair file.
func LoadKeypair(path string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %q: %w", path, err)
	}
	return &Keypair{key: key}, nil
}

func (k *Keypair) Address() string { return k.key.PublicKey().String() }
func (k *Keypair) CanSign() bool { return true }
func (k *Keypair) sealed() {}

func (k *Keypair) SignMessage(msg []byte) (string, error) {
	sig, err := k.key.Sign(msg)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

type Watch struct {
	addr solana.PublicKey
}

func NewWatch(address string) (*Watch, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", address, err)
	}
	return &Watch{addr: pk}, nil
}

func (w *Watch) Address() string { return w.addr.String() }
func (w *Watch) CanSign() bool { return false }
func (w *Watch) SignMessage([]byte) (string, error) { return "", ErrCannotSign }
func (w *Watch) sealed() {}

// Open picks the adapter named by kind. An empty kind means keypair when a
// keypair path is given and watch otherwise.
func Open(kind, keypairPath, address string) (Wallet, error) {
	if kind == "" {
		kind = KindWatch
		if keypairPath != "" {
			kind = KindKeypair
		}
	}
	switch kind {
	case KindKeypair:
		if keypairPath == "" {
			return nil, errors.New("keypair wallet needs a keypair path")
		}
		return LoadKeypair(keypairPath)
	case KindWatch:
		if address == "" {
			return nil, errors.New("watch wallet needs an address")
		}
		return NewWatch(address)
	default:
		return nil, fmt.Errorf("unknown wallet kind %q", kind)
	}
}
