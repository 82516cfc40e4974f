// server/srv/hub.go
package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/server/metrics"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// Waiter polls a signature until it settles. *txstatus.Tracker implements it.
type Waiter interface {
	Wait(ctx context.Context, signature string, interval time.Duration, onUpdate func(protocol.TxStatusResult)) (protocol.TxStatusResult, error)
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	id        int64
	signature string
}

// Hub owns the open status streams. Each stream follows one signature and
// closes itself once the transaction settles or the wait times out.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]context.CancelFunc

	tracker  Waiter
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

func NewHub(tracker Waiter, interval, timeout time.Duration, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*client]context.CancelFunc),
		tracker:  tracker,
		interval: interval,
		timeout:  timeout,
		log:      logger.With().Str("component", "hub").Logger(),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves GET /ws/transactions?signature=<sig>.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sig := strings.TrimSpace(r.URL.Query().Get("signature"))
		if sig == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: protocol.MsgSignatureRequired})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("upgrade failed")
			return
		}
		h.HandleWS(r.Context(), conn, sig)
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS streams status updates for signature and returns when the stream
// is over.
func (h *Hub) HandleWS(parent context.Context, conn *websocket.Conn, signature string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), h.timeout)
	defer cancel()

	c := &client{conn: conn, send: make(chan []byte, 16), id: protocol.NewID(), signature: signature}
	h.mu.Lock()
	h.clients[c] = cancel
	h.mu.Unlock()
	metrics.StatusStreams.Inc()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		metrics.StatusStreams.Dec()
	}()

	done := make(chan struct{})
	go func() {
		c.writer()
		close(done)
	}()
	go c.reader(cancel)

	log := h.log.With().Int64("stream", c.id).Str("signature", signature).Logger()
	log.Debug().Msg("status stream opened")

	res, err := h.tracker.Wait(ctx, signature, h.interval, func(r protocol.TxStatusResult) {
		sendJSON(c, protocol.MsgTypeTxStatus, r)
	})
	switch {
	case err == nil:
		log.Debug().Str("status", res.Status).Msg("status stream settled")
	case errors.Is(err, context.DeadlineExceeded):
		sendJSON(c, protocol.MsgTypeError, protocol.ErrorMsg{Message: "Timed out waiting for confirmation"})
	case errors.Is(err, context.Canceled):
		// peer went away
	default:
		sendJSON(c, protocol.MsgTypeError, protocol.ErrorMsg{Message: protocol.MsgStatusFailed})
		log.Warn().Err(err).Msg("status stream failed")
	}
	close(c.send)
	<-done
}

// Close ends every open stream; used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cancel := range h.clients {
		cancel()
	}
}

// reader only watches for the peer closing the socket.
func (c *client) reader(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writer() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func sendJSON(c *client, typ string, v interface{}) {
	b, _ := json.Marshal(v)
	env := protocol.MsgEnvelope{Type: typ, Data: b}
	out, _ := json.Marshal(env)
	select {
	case c.send <- out:
	default:
	}
}
