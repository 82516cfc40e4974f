package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

func newAuth(t *testing.T, opHash string) *Auth {
	t.Helper()
	a, err := NewAuth(t.TempDir(), opHash, zerolog.Nop())
	require.NoError(t, err)
	return a
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
	return rec
}

func challengeFor(t *testing.T, a *Auth, addr string) protocol.ChallengeResponse {
	t.Helper()
	rec := postJSON(t, a.HandleChallenge, protocol.ChallengeRequest{Address: addr})
	require.Equal(t, http.StatusOK, rec.Code)
	var c protocol.ChallengeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func sign(t *testing.T, key solana.PrivateKey, msg string) string {
	t.Helper()
	sig, err := key.Sign([]byte(msg))
	require.NoError(t, err)
	return sig.String()
}

func TestWalletSignIn(t *testing.T) {
	a := newAuth(t, "")
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	addr := key.PublicKey().String()

	c := challengeFor(t, a, addr)
	assert.Equal(t, ChallengeMessage(addr, c.Nonce), c.Message)

	rec := postJSON(t, a.HandleVerify, protocol.VerifyRequest{Address: addr, Signature: sign(t, key, c.Message)})
	require.Equal(t, http.StatusOK, rec.Code)
	var v protocol.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	sub, err := a.ParseToken(v.Token)
	require.NoError(t, err)
	assert.Equal(t, addr, sub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+v.Token)
	assert.Equal(t, addr, a.Subject(req))
}

func TestWrongKeyRejected(t *testing.T) {
	a := newAuth(t, "")
	key, _ := solana.NewRandomPrivateKey()
	other, _ := solana.NewRandomPrivateKey()
	addr := key.PublicKey().String()

	c := challengeFor(t, a, addr)
	rec := postJSON(t, a.HandleVerify, protocol.VerifyRequest{Address: addr, Signature: sign(t, other, c.Message)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNonceIsSingleUse(t *testing.T) {
	a := newAuth(t, "")
	key, _ := solana.NewRandomPrivateKey()
	addr := key.PublicKey().String()

	c := challengeFor(t, a, addr)
	sig := sign(t, key, c.Message)

	_, err := a.Verify(addr, sig)
	require.NoError(t, err)
	_, err = a.Verify(addr, sig)
	assert.Error(t, err, "replayed signature")
}

func TestChallengeExpires(t *testing.T) {
	a := newAuth(t, "")
	key, _ := solana.NewRandomPrivateKey()
	addr := key.PublicKey().String()

	now := time.Now()
	a.challenges.now = func() time.Time { return now }
	c := challengeFor(t, a, addr)

	a.challenges.now = func() time.Time { return now.Add(challengeTTL + time.Second) }
	_, err := a.Verify(addr, sign(t, key, c.Message))
	assert.Error(t, err)
}

func TestChallengeRejectsBadAddress(t *testing.T) {
	a := newAuth(t, "")
	rec := postJSON(t, a.HandleChallenge, protocol.ChallengeRequest{Address: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseTokenRejectsForeignKey(t *testing.T) {
	a := newAuth(t, "")
	b := newAuth(t, "")
	tok, err := b.IssueToken("addr")
	require.NoError(t, err)
	_, err = a.ParseToken(tok)
	assert.Error(t, err)
}

func TestJWTKeyPersists(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAuth(dir, "", zerolog.Nop())
	require.NoError(t, err)
	tok, err := a.IssueToken("addr")
	require.NoError(t, err)

	b, err := NewAuth(dir, "", zerolog.Nop())
	require.NoError(t, err)
	sub, err := b.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "addr", sub)
}

func TestRequireOperator(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	disabled := newAuth(t, "").RequireOperator(ok)
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/treasury", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	guarded := newAuth(t, string(hash)).RequireOperator(ok)

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/treasury", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/treasury", nil)
	req.Header.Set(OperatorHeader, "wrong")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set(OperatorHeader, "s3cret")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInvalidOperatorHash(t *testing.T) {
	_, err := NewAuth(t.TempDir(), "not-a-bcrypt-hash", zerolog.Nop())
	assert.Error(t, err)
}
