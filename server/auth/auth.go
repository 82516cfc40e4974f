// server/auth/auth.go
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

const (
	challengeTTL = 5 * time.Minute
	tokenTTL     = 24 * time.Hour
	Issuer       = "WalletBounce"

	OperatorHeader = "X-Operator-Key"
)

type challenge struct {
	address string
	message string
	expires time.Time
}

// challengeStore hands out single-use nonces.
type challengeStore struct {
	mu      sync.Mutex
	pending map[string]challenge // nonce -> challenge
	now     func() time.Time
}

func newChallengeStore() *challengeStore {
	return &challengeStore{pending: map[string]challenge{}, now: time.Now}
}

func (s *challengeStore) issue(address string) (string, string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	nonce := hex.EncodeToString(b)
	msg := ChallengeMessage(address, nonce)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
	s.pending[nonce] = challenge{address: address, message: msg, expires: s.now().Add(challengeTTL)}
	return nonce, msg, nil
}

// take removes and returns the newest live challenge for address.
func (s *challengeStore) take(address string) (challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
	var (
		best  challenge
		nonce string
	)
	for n, c := range s.pending {
		if c.address == address && c.expires.After(best.expires) {
			best, nonce = c, n
		}
	}
	if nonce == "" {
		return challenge{}, false
	}
	delete(s.pending, nonce)
	return best, true
}

func (s *challengeStore) gcLocked() {
	now := s.now()
	for n, c := range s.pending {
		if !now.Before(c.expires) {
			delete(s.pending, n)
		}
	}
}

// ChallengeMessage is the exact text a wallet signs to sign in.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf("Wallet Bounce sign-in\naddress: %s\nnonce: %s", address, nonce)
}

type Auth struct {
	challenges   *challengeStore
	jwtKey       []byte
	issuer       string
	operatorHash []byte
	log          zerolog.Logger
}

func NewAuth(dataDir, operatorKeyHash string, logger zerolog.Logger) (*Auth, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	keyPath := filepath.Join(dataDir, "jwt.key")
	key, err := os.ReadFile(keyPath)
	if err != nil || len(key) < 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		if err := os.WriteFile(keyPath, key, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write jwt key: %w", err)
		}
	}
	a := &Auth{
		challenges: newChallengeStore(),
		jwtKey:     key,
		issuer:     Issuer,
		log:        logger.With().Str("component", "auth").Logger(),
	}
	if operatorKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(operatorKeyHash)); err != nil {
			return nil, fmt.Errorf("invalid operator key hash: %w", err)
		}
		a.operatorHash = []byte(operatorKeyHash)
	}
	return a, nil
}

func (a *Auth) OperatorEnabled() bool { return len(a.operatorHash) > 0 }

func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (a *Auth) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	var req protocol.ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, protocol.MsgInvalidBody)
		return
	}
	addr := strings.TrimSpace(req.Address)
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		writeErr(w, http.StatusBadRequest, protocol.MsgInvalidAddress)
		return
	}
	nonce, msg, err := a.challenges.issue(addr)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to issue challenge")
		writeErr(w, http.StatusInternalServerError, "Failed to issue challenge")
		return
	}
	writeJSON(w, protocol.ChallengeResponse{Address: addr, Nonce: nonce, Message: msg})
}

func (a *Auth) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req protocol.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, protocol.MsgInvalidBody)
		return
	}
	token, err := a.Verify(strings.TrimSpace(req.Address), strings.TrimSpace(req.Signature))
	if err != nil {
		a.log.Info().Err(err).Str("address", req.Address).Msg("wallet sign-in rejected")
		writeErr(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	writeJSON(w, protocol.VerifyResponse{Token: token, Address: req.Address})
}

// Verify consumes the pending challenge for address and, if sig is a valid
// signature of its message by address, issues a token. A failed attempt
// still burns the challenge.
func (a *Auth) Verify(address, sig string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("bad address: %w", err)
	}
	c, ok := a.challenges.take(address)
	if !ok {
		return "", errors.New("no pending challenge")
	}
	s, err := solana.SignatureFromBase58(sig)
	if err != nil {
		return "", fmt.Errorf("bad signature encoding: %w", err)
	}
	if !s.Verify(pk, []byte(c.message)) {
		return "", errors.New("signature mismatch")
	}
	return a.IssueToken(address)
}

func (a *Auth) IssueToken(address string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   address,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtKey)
}

// ParseToken returns the wallet address a token was issued to.
func (a *Auth) ParseToken(tok string) (string, error) {
	if tok == "" {
		return "", errors.New("missing token")
	}
	t, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return a.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil || !t.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("bad claims")
	}
	return sub, nil
}

// BearerToken pulls the token from the Authorization header, falling back to
// the token query parameter (browsers cannot set headers on websockets).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Subject returns the address behind the request's token, or "".
func (a *Auth) Subject(r *http.Request) string {
	sub, err := a.ParseToken(BearerToken(r))
	if err != nil {
		return ""
	}
	return sub
}

// RequireOperator guards operator endpoints. They do not exist at all when
// no operator key hash is configured.
func (a *Auth) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.OperatorEnabled() {
			http.NotFound(w, r)
			return
		}
		key := r.Header.Get(OperatorHeader)
		if key == "" || bcrypt.CompareHashAndPassword(a.operatorHash, []byte(key)) != nil {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
