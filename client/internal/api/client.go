package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// Error is a non-2xx reply from the reward server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == code
}

type Client struct {
	base  string
	http  *http.Client
	token string
}

func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetToken(tok string) { c.token = tok }

func (c *Client) Base() string { return c.base }

func do[Res any](ctx context.Context, c *Client, method, path string, body io.Reader) (Res, error) {
	var result Res

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return result, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var er protocol.ErrorResponse
		if json.Unmarshal(bodyBytes, &er) != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(bodyBytes))
		}
		return result, &Error{Status: resp.StatusCode, Message: er.Error}
	}

	err = json.Unmarshal(bodyBytes, &result)
	return result, err
}

// GetJSON performs a GET request and decodes the JSON response
func GetJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return do[T](ctx, c, http.MethodGet, path, nil)
}

// PostJSON performs a POST request with JSON body and decodes the JSON response
func PostJSON[Req any, Res any](ctx context.Context, c *Client, body Req, path string) (Res, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		var zero Res
		return zero, err
	}
	return do[Res](ctx, c, http.MethodPost, path, bytes.NewReader(jsonData))
}

func (c *Client) ClaimReward(ctx context.Context, req protocol.ClaimRequest) (protocol.ClaimResult, error) {
	return PostJSON[protocol.ClaimRequest, protocol.ClaimResult](ctx, c, req, "/claim-reward")
}

func (c *Client) CheckTransaction(ctx context.Context, signature string) (protocol.TxStatusResult, error) {
	return GetJSON[protocol.TxStatusResult](ctx, c, "/check-transaction?signature="+url.QueryEscape(signature))
}

func (c *Client) Challenge(ctx context.Context, address string) (protocol.ChallengeResponse, error) {
	return PostJSON[protocol.ChallengeRequest, protocol.ChallengeResponse](ctx, c, protocol.ChallengeRequest{Address: address}, "/auth/challenge")
}

func (c *Client) Verify(ctx context.Context, address, signature string) (protocol.VerifyResponse, error) {
	return PostJSON[protocol.VerifyRequest, protocol.VerifyResponse](ctx, c, protocol.VerifyRequest{Address: address, Signature: signature}, "/auth/verify")
}

// StatusStreamURL is the websocket address following one signature.
func (c *Client) StatusStreamURL(signature string) string {
	u := c.base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/transactions?signature=" + url.QueryEscape(signature)
}
