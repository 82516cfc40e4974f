package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, protocol.ErrorResponse{Error: msg})
}

// claimError maps a claim failure onto its status code and fixed message.
// Anything unrecognised is a server-side failure.
func claimError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrMissingParameter):
		return http.StatusBadRequest, protocol.MsgPlayerAddressRequired
	case errors.Is(err, types.ErrInvalidAddress):
		return http.StatusBadRequest, protocol.MsgInvalidAddress
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized, protocol.MsgAuthRequired
	case errors.Is(err, types.ErrAlreadyClaimed):
		return http.StatusConflict, protocol.MsgAlreadyClaimed
	case errors.Is(err, types.ErrClaimInFlight):
		return http.StatusConflict, protocol.MsgClaimInFlight
	default:
		return http.StatusInternalServerError, protocol.MsgClaimFailed
	}
}
