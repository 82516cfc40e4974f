// Package reward pays a fixed SOL reward from the treasury to a player.
//
// The dispenser signs and submits one System Program transfer per call and
// returns as soon as the node accepts it. Each transfer carries a memo with
// the claimed score and a fresh claim id, so two rewards to the same player
// under one blockhash are still two distinct transactions. Confirmation is tracked separately
// (see txstatus) so the HTTP request never waits on finality.
package reward

import (
	"context"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/server/treasury"
	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// RPCClient is the slice of *rpc.Client the dispenser needs.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
}

type Options struct {
	Lamports   uint64
	Commitment rpc.CommitmentType
	Logger     zerolog.Logger
}

type Dispenser struct {
	rpc        RPCClient
	treasury   *treasury.Signer
	lamports   uint64
	commitment rpc.CommitmentType
	log        zerolog.Logger
}

func NewDispenser(client RPCClient, signer *treasury.Signer, opts Options) *Dispenser {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	return &Dispenser{
		rpc:        client,
		treasury:   signer,
		lamports:   opts.Lamports,
		commitment: opts.Commitment,
		log:        opts.Logger.With().Str("component", "dispenser").Logger(),
	}
}

func (d *Dispenser) Lamports() uint64 { return d.lamports }

func (d *Dispenser) Treasury() solana.PublicKey { return d.treasury.PublicKey() }

// ParseAddress validates a player address without touching the network.
func ParseAddress(addr string) (solana.PublicKey, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return solana.PublicKey{}, errorsmod.Wrap(types.ErrMissingParameter, "player address")
	}
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, errorsmod.Wrapf(types.ErrInvalidAddress, "%q: %v", addr, err)
	}
	return pk, nil
}

// RewardMemo is the memo attached to a reward transfer. It stays well under
// 128 bytes so the memo program sees plain ASCII.
func RewardMemo(score uint64, claimID int64) string {
	return fmt.Sprintf("wallet-bounce reward score=%d claim=%x", score, claimID)
}

// Dispense transfers the reward for score to playerAddress and returns the
// signature. Nothing is submitted when the address is invalid; any network
// failure is reported as ErrUpstream and no retry is attempted.
func (d *Dispenser) Dispense(ctx context.Context, playerAddress string, score uint64) (solana.Signature, error) {
	player, err := ParseAddress(playerAddress)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := d.buildTransfer(ctx, player, RewardMemo(score, protocol.NewID()))
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := d.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: d.commitment,
	})
	if err != nil {
		return solana.Signature{}, errorsmod.Wrapf(types.ErrUpstream, "send transaction: %v", err)
	}

	d.log.Info().
		Str("player", player.String()).
		Uint64("lamports", d.lamports).
		Uint64("score", score).
		Str("signature", sig.String()).
		Msg("reward submitted")
	return sig, nil
}

func (d *Dispenser) buildTransfer(ctx context.Context, player solana.PublicKey, note string) (*solana.Transaction, error) {
	recent, err := d.rpc.GetLatestBlockhash(ctx, d.commitment)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrUpstream, "get latest blockhash: %v", err)
	}
	if recent == nil || recent.Value == nil {
		return nil, errorsmod.Wrap(types.ErrUpstream, "get latest blockhash: empty result")
	}

	payer := d.treasury.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(d.lamports, payer, player).Build(),
			memo.NewMemoInstruction([]byte(note), payer).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrUpstream, "build transaction: %v", err)
	}

	if _, err := tx.Sign(d.treasury.SignerFunc()); err != nil {
		return nil, errorsmod.Wrapf(types.ErrUpstream, "sign transaction: %v", err)
	}
	return tx, nil
}

// Balance reports the treasury balance in lamports.
func (d *Dispenser) Balance(ctx context.Context) (uint64, error) {
	res, err := d.rpc.GetBalance(ctx, d.treasury.PublicKey(), d.commitment)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrUpstream, "get balance: %v", err)
	}
	return res.Value, nil
}
