package protocol

const (
	// RewardSOL is the default reward paid per claimed personal best.
	RewardSOL = "0.01"

	// LeaderboardKey names the client-local leaderboard record.
	LeaderboardKey = "breakwalletLeaderboard"

	// TopN is how many leaderboard rows the game-over screen shows.
	TopN = 5
)

// Transaction status values reported by /check-transaction.
const (
	StatusNotFound  = "not_found"
	StatusProcessed = "processed"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
)

// Claim ledger states.
const (
	ClaimPending   = "pending"
	ClaimSubmitted = "submitted"
	ClaimFailed    = "failed" // executed with an error; the score is claimable again
)

// Fixed client-facing messages.
const (
	MsgPlayerAddressRequired = "Player address is required"
	MsgInvalidBody           = "Invalid request body"
	MsgInvalidAddress        = "Invalid player address"
	MsgAuthRequired          = "Wallet authentication required"
	MsgAlreadyClaimed        = "Reward already claimed for this score"
	MsgClaimInFlight         = "A claim for this address is already in progress"
	MsgClaimFailed           = "Failed to process reward claim"
	MsgClaimSubmitted        = "Reward submitted; confirmation pending"

	MsgSignatureRequired = "Transaction signature is required"
	MsgStatusFailed      = "Failed to check transaction status"
	MsgTxNotFound        = "Transaction not found"
	MsgTxConfirmed       = "Transaction confirmed"
	MsgTxPending         = "Transaction pending"
	MsgTxFailed          = "Transaction failed"
)
