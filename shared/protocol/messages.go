package protocol

import "encoding/json"

// Envelope
type MsgEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ================= S -> C (status hub) =================

const (
	MsgTypeTxStatus = "TxStatus"
	MsgTypeError    = "Error"
)

type ErrorMsg struct {
	Message string `json:"message"`
}
