package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace groups every error registered by the reward server.
const Codespace = "bounce"

var (
	ErrInvalidInput     = errorsmod.Register(Codespace, 1, "invalid input")
	ErrMissingParameter = errorsmod.Register(Codespace, 2, "missing parameter")
	ErrInvalidAddress   = errorsmod.Register(Codespace, 3, "invalid address")
	ErrUpstream         = errorsmod.Register(Codespace, 4, "upstream failure")
	ErrAlreadyClaimed   = errorsmod.Register(Codespace, 5, "reward already claimed")
	ErrClaimInFlight    = errorsmod.Register(Codespace, 6, "claim already in progress")
	ErrUnauthorized     = errorsmod.Register(Codespace, 7, "unauthorized")
)
