package protocol

// ClaimRequest is the body of POST /claim-reward.
type ClaimRequest struct {
	PlayerAddress string `json:"playerAddress"`
	Score         uint64 `json:"score,omitempty"` // best score being claimed; 0 when unknown
}

// ClaimResult is returned by POST /claim-reward on success.
type ClaimResult struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Message   string `json:"message,omitempty"`
	Explorer  string `json:"explorerUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TxStatusResult is returned by GET /check-transaction and pushed by the status hub.
type TxStatusResult struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	IsConfirmed bool   `json:"isConfirmed"`
	Message     string `json:"message"`
	Failed      bool   `json:"failed,omitempty"` // executed with an error; no funds moved
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Wallet sign-in.
type ChallengeRequest struct {
	Address string `json:"address"`
}
type ChallengeResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}
type VerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"` // base58 ed25519 signature of ChallengeResponse.Message
}
type VerifyResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

// Operator views.
type TreasuryInfo struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

type ClaimRecord struct {
	Address   string `json:"address"`
	Score     uint64 `json:"score"`
	State     string `json:"state"`
	Signature string `json:"signature,omitempty"`
	CreatedAt int64  `json:"createdAt"` // unix ms
	UpdatedAt int64  `json:"updatedAt"` // unix ms
}

type ClaimHistory struct {
	Address string        `json:"address"`
	Claims  []ClaimRecord `json:"claims"`
}
