package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// FollowStatus opens the server's status stream for signature and calls
// onUpdate for every pushed status. It returns the last status once the
// server closes the stream, or the server's error message on timeout.
func (c *Client) FollowStatus(ctx context.Context, signature string, onUpdate func(protocol.TxStatusResult)) (protocol.TxStatusResult, error) {
	var last protocol.TxStatusResult

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.StatusStreamURL(signature), nil)
	if err != nil {
		return last, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return last, nil
			}
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}
		var env protocol.MsgEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case protocol.MsgTypeTxStatus:
			var st protocol.TxStatusResult
			if json.Unmarshal(env.Data, &st) == nil {
				last = st
				if onUpdate != nil {
					onUpdate(st)
				}
			}
		case protocol.MsgTypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(env.Data, &em)
			return last, errors.New(em.Message)
		}
	}
}
