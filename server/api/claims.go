package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/server/config"
	"github.com/rohit-710/wallet-bounce/server/metrics"
	"github.com/rohit-710/wallet-bounce/server/reward"
	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

type Dispenser interface {
	Dispense(ctx context.Context, playerAddress string, score uint64) (solana.Signature, error)
	Balance(ctx context.Context) (uint64, error)
	Treasury() solana.PublicKey
	Lamports() uint64
}

type StatusChecker interface {
	Check(ctx context.Context, signature string) (protocol.TxStatusResult, error)
}

type Ledger interface {
	Reserve(addr string, score uint64) error
	Release(addr string, score uint64)
	Commit(addr string, score uint64, signature string) error
	History(addr string) []protocol.ClaimRecord
}

// Authenticator resolves the wallet address a request is signed in as.
type Authenticator interface {
	Subject(r *http.Request) string
}

type Endpoints struct {
	dispenser   Dispenser
	tracker     StatusChecker
	ledger      Ledger
	auth        Authenticator
	requireAuth bool
	explorer    func(signature string) string
	log         zerolog.Logger
}

type Deps struct {
	Dispenser   Dispenser
	Tracker     StatusChecker
	Ledger      Ledger
	Auth        Authenticator
	RequireAuth bool
	// Explorer builds a block explorer link for a signature; optional.
	Explorer    func(signature string) string
	Logger      zerolog.Logger
}

func NewEndpoints(d Deps) *Endpoints {
	return &Endpoints{
		dispenser:   d.Dispenser,
		tracker:     d.Tracker,
		ledger:      d.Ledger,
		auth:        d.Auth,
		requireAuth: d.RequireAuth,
		explorer:    d.Explorer,
		log:         d.Logger.With().Str("component", "api").Logger(),
	}
}

// HandleClaimReward handles POST /claim-reward
func (e *Endpoints) HandleClaimReward(w http.ResponseWriter, r *http.Request) {
	var req protocol.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ClaimRequests.WithLabelValues(metrics.ResultInvalid).Inc()
		writeError(w, http.StatusBadRequest, protocol.MsgInvalidBody)
		return
	}
	req.PlayerAddress = strings.TrimSpace(req.PlayerAddress)

	sig, err := e.claim(r, req)
	if err != nil {
		code, msg := claimError(err)
		switch code {
		case http.StatusInternalServerError:
			metrics.ClaimRequests.WithLabelValues(metrics.ResultFailed).Inc()
			e.log.Error().Err(err).Str("player", req.PlayerAddress).Msg("reward claim failed")
		case http.StatusConflict:
			metrics.ClaimRequests.WithLabelValues(metrics.ResultConflict).Inc()
			e.log.Info().Err(err).Str("player", req.PlayerAddress).Msg("reward claim refused")
		case http.StatusUnauthorized:
			metrics.ClaimRequests.WithLabelValues(metrics.ResultUnauthorized).Inc()
		default:
			metrics.ClaimRequests.WithLabelValues(metrics.ResultInvalid).Inc()
		}
		writeError(w, code, msg)
		return
	}

	metrics.ClaimRequests.WithLabelValues(metrics.ResultSubmitted).Inc()
	metrics.RewardLamports.Add(float64(e.dispenser.Lamports()))
	res := protocol.ClaimResult{
		Success:   true,
		Signature: sig.String(),
		Message:   protocol.MsgClaimSubmitted,
	}
	if e.explorer != nil {
		res.Explorer = e.explorer(res.Signature)
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *Endpoints) claim(r *http.Request, req protocol.ClaimRequest) (solana.Signature, error) {
	if _, err := reward.ParseAddress(req.PlayerAddress); err != nil {
		return solana.Signature{}, err
	}
	if e.requireAuth && (e.auth == nil || e.auth.Subject(r) != req.PlayerAddress) {
		return solana.Signature{}, errorsmod.Wrap(types.ErrUnauthorized, "token subject does not match player")
	}

	if err := e.ledger.Reserve(req.PlayerAddress, req.Score); err != nil {
		return solana.Signature{}, err
	}

	sig, err := e.dispenser.Dispense(r.Context(), req.PlayerAddress, req.Score)
	if err != nil {
		e.ledger.Release(req.PlayerAddress, req.Score)
		return solana.Signature{}, err
	}

	// the transfer is already on its way; a ledger write failure must not
	// turn a paid claim into an error response
	if err := e.ledger.Commit(req.PlayerAddress, req.Score, sig.String()); err != nil {
		e.log.Error().Err(err).Str("player", req.PlayerAddress).Str("signature", sig.String()).Msg("failed to persist claim")
	}
	return sig, nil
}

// HandleCheckTransaction handles GET /check-transaction?signature=
func (e *Endpoints) HandleCheckTransaction(w http.ResponseWriter, r *http.Request) {
	res, err := e.tracker.Check(r.Context(), r.URL.Query().Get("signature"))
	if err != nil {
		if errors.Is(err, types.ErrMissingParameter) {
			writeError(w, http.StatusBadRequest, protocol.MsgSignatureRequired)
			return
		}
		e.log.Error().Err(err).Msg("status check failed")
		writeError(w, http.StatusInternalServerError, protocol.MsgStatusFailed)
		return
	}
	metrics.StatusChecks.WithLabelValues(res.Status).Inc()
	writeJSON(w, http.StatusOK, res)
}

// HandleTreasury handles GET /treasury (operator)
func (e *Endpoints) HandleTreasury(w http.ResponseWriter, r *http.Request) {
	lamports, err := e.dispenser.Balance(r.Context())
	if err != nil {
		e.log.Error().Err(err).Msg("treasury balance failed")
		writeError(w, http.StatusInternalServerError, "Failed to read treasury balance")
		return
	}
	metrics.TreasuryLamports.Set(float64(lamports))
	writeJSON(w, http.StatusOK, protocol.TreasuryInfo{
		Address:  e.dispenser.Treasury().String(),
		Lamports: lamports,
		SOL:      config.FormatSOL(lamports),
	})
}

// HandleClaimHistory handles GET /claims?address= (operator)
func (e *Endpoints) HandleClaimHistory(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimSpace(r.URL.Query().Get("address"))
	if addr == "" {
		writeError(w, http.StatusBadRequest, protocol.MsgPlayerAddressRequired)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ClaimHistory{Address: addr, Claims: e.ledger.History(addr)})
}
