// Package txstatus classifies a transaction signature by the ledger's
// confirmation level.
package txstatus

import (
	"context"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

type RPCClient interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type Tracker struct {
	rpc      RPCClient
	log      zerolog.Logger
	onFailed func(signature string)
}

func NewTracker(client RPCClient, logger zerolog.Logger) *Tracker {
	return &Tracker{rpc: client, log: logger.With().Str("component", "txstatus").Logger()}
}

// OnFailed registers fn to run whenever Check sees a transaction that
// executed with an error. Set it before the tracker is shared.
func (t *Tracker) OnFailed(fn func(signature string)) { t.onFailed = fn }

// Check performs one status lookup and never retries. Calling it repeatedly
// for a finalized signature keeps returning the same answer.
func (t *Tracker) Check(ctx context.Context, signature string) (protocol.TxStatusResult, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return protocol.TxStatusResult{}, errorsmod.Wrap(types.ErrMissingParameter, "signature")
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		// the ledger cannot hold anything under an undecodable signature
		return notFound(), nil
	}

	res, err := t.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return protocol.TxStatusResult{}, errorsmod.Wrapf(types.ErrUpstream, "get signature statuses: %v", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return notFound(), nil
	}
	out := classify(res.Value[0])
	if out.Failed && t.onFailed != nil {
		t.onFailed(sig.String())
	}
	return out, nil
}

func notFound() protocol.TxStatusResult {
	return protocol.TxStatusResult{
		Success: false,
		Status:  protocol.StatusNotFound,
		Message: protocol.MsgTxNotFound,
	}
}

func classify(st *rpc.SignatureStatusesResult) protocol.TxStatusResult {
	status := protocol.StatusProcessed
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed:
		status = protocol.StatusConfirmed
	case rpc.ConfirmationStatusFinalized:
		status = protocol.StatusFinalized
	}
	confirmed := status == protocol.StatusConfirmed || status == protocol.StatusFinalized

	out := protocol.TxStatusResult{
		Success:     true,
		Status:      status,
		IsConfirmed: confirmed,
		Message:     protocol.MsgTxPending,
	}
	if confirmed {
		out.Message = protocol.MsgTxConfirmed
	}
	if st.Err != nil {
		out.Failed = true
		out.Message = protocol.MsgTxFailed
	}
	return out
}

// Done reports whether polling can stop for r.
func Done(r protocol.TxStatusResult) bool {
	return r.IsConfirmed || r.Failed
}

// Wait polls Check every interval until the transaction is confirmed or
// failed, or ctx ends. onUpdate (optional) sees every status that differs
// from the previous one. Lookup errors are logged and polling continues.
func (t *Tracker) Wait(ctx context.Context, signature string, interval time.Duration, onUpdate func(protocol.TxStatusResult)) (protocol.TxStatusResult, error) {
	if strings.TrimSpace(signature) == "" {
		return protocol.TxStatusResult{}, errorsmod.Wrap(types.ErrMissingParameter, "signature")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last protocol.TxStatusResult
	seen := false
	for {
		res, err := t.Check(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			t.log.Warn().Err(err).Str("signature", signature).Msg("status lookup failed, retrying")
		} else {
			if !seen || res != last {
				seen = true
				last = res
				if onUpdate != nil {
					onUpdate(res)
				}
			}
			if Done(res) {
				return res, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
