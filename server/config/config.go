package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// Keys understood by the reward server. Each one is read from the
// environment (after an optional .env) or from bounce.yaml.
const (
	KeyListenAddr        = "LISTEN_ADDR"
	KeyRPCURL            = "SOLANA_RPC_URL"
	KeyRPCAPIKey         = "SOLANA_RPC_API_KEY"
	KeyTreasuryKey       = "TREASURY_PRIVATE_KEY"
	KeyRewardSOL         = "REWARD_SOL"
	KeyCommitment        = "COMMITMENT"
	KeyConfirmTimeout    = "CONFIRM_TIMEOUT"
	KeyPollInterval      = "POLL_INTERVAL"
	KeyDataDir           = "DATA_DIR"
	KeyRequireWalletAuth = "REQUIRE_WALLET_AUTH"
	KeyOperatorKeyHash   = "OPERATOR_KEY_HASH"
	KeyCluster           = "CLUSTER"
	KeyLogLevel          = "LOG_LEVEL"
)

// Config is built once in main and handed to every component that needs it.
type Config struct {
	ListenAddr        string
	RPCURL            string
	TreasuryKey       string // base58 secret key; parsed by treasury.FromBase58
	RewardLamports    uint64
	Commitment        rpc.CommitmentType
	ConfirmTimeout    time.Duration
	PollInterval      time.Duration
	DataDir           string
	RequireWalletAuth bool
	OperatorKeyHash   string
	Cluster           string
	LogLevel          string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeyRPCURL, rpc.DevNet_RPC)
	v.SetDefault(KeyRewardSOL, protocol.RewardSOL)
	v.SetDefault(KeyCommitment, string(rpc.CommitmentConfirmed))
	v.SetDefault(KeyConfirmTimeout, "60s")
	v.SetDefault(KeyPollInterval, "2s")
	v.SetDefault(KeyDataDir, "data")
	v.SetDefault(KeyRequireWalletAuth, false)
	v.SetDefault(KeyCluster, "devnet")
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads .env (if present), bounce.yaml (if present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("bounce")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read bounce.yaml: %w", err)
		}
	}
	v.AutomaticEnv()
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:        v.GetString(KeyListenAddr),
		TreasuryKey:       strings.TrimSpace(v.GetString(KeyTreasuryKey)),
		ConfirmTimeout:    v.GetDuration(KeyConfirmTimeout),
		PollInterval:      v.GetDuration(KeyPollInterval),
		DataDir:           v.GetString(KeyDataDir),
		RequireWalletAuth: v.GetBool(KeyRequireWalletAuth),
		OperatorKeyHash:   strings.TrimSpace(v.GetString(KeyOperatorKeyHash)),
		Cluster:           v.GetString(KeyCluster),
		LogLevel:          v.GetString(KeyLogLevel),
	}
	if cfg.TreasuryKey == "" {
		return Config{}, fmt.Errorf("%s is not set", KeyTreasuryKey)
	}

	rpcURL, err := WithAPIKey(v.GetString(KeyRPCURL), v.GetString(KeyRPCAPIKey))
	if err != nil {
		return Config{}, err
	}
	cfg.RPCURL = rpcURL

	lamports, err := ParseSOL(v.GetString(KeyRewardSOL))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyRewardSOL, err)
	}
	cfg.RewardLamports = lamports

	switch c := rpc.CommitmentType(strings.ToLower(v.GetString(KeyCommitment))); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		cfg.Commitment = c
	default:
		return Config{}, fmt.Errorf("invalid %s %q", KeyCommitment, c)
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", KeyPollInterval)
	}
	if cfg.ConfirmTimeout < cfg.PollInterval {
		return Config{}, fmt.Errorf("%s must be at least %s", KeyConfirmTimeout, KeyPollInterval)
	}
	return cfg, nil
}

// ParseSOL converts a decimal SOL amount into lamports. Amounts finer than
// one lamport are rejected rather than rounded.
func ParseSOL(s string) (uint64, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !dec.IsPositive() {
		return 0, fmt.Errorf("amount must be > 0, got %s", s)
	}
	lamports := dec.MulInt64(int64(solana.LAMPORTS_PER_SOL))
	if !lamports.IsInteger() {
		return 0, fmt.Errorf("amount %s is finer than one lamport", s)
	}
	n := lamports.TruncateInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows", s)
	}
	return n.Uint64(), nil
}

// FormatSOL renders lamports as a decimal SOL string.
func FormatSOL(lamports uint64) string {
	dec := sdkmath.LegacyNewDecFromInt(sdkmath.NewIntFromUint64(lamports)).
		QuoInt64(int64(solana.LAMPORTS_PER_SOL))
	out := strings.TrimRight(dec.String(), "0")
	return strings.TrimSuffix(out, ".")
}

// WithAPIKey appends a provider API key as the api-key query parameter, the
// form Helius and similar hosted endpoints expect.
func WithAPIKey(rawURL, apiKey string) (string, error) {
	if apiKey == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", KeyRPCURL, err)
	}
	q := u.Query()
	q.Set("api-key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExplorerURL links a signature on the public explorer.
func (c Config) ExplorerURL(signature string) string {
	if c.Cluster == "" || c.Cluster == "mainnet-beta" {
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", signature)
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, c.Cluster)
}
