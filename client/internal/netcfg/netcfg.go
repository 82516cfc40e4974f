package netcfg

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Environment keys read by the client.
const (
	EnvAPIBase  = "BOUNCE_API_BASE"
	EnvProfile  = "BOUNCE_PROFILE"
	EnvWallet   = "WALLET_KIND"
	EnvKeypair  = "WALLET_KEYPAIR"
	EnvAddress  = "WALLET_ADDRESS"
	DefaultBase = "http://127.0.0.1:8080"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// APIBase is the reward server's REST root.
func APIBase() string { return getenv(EnvAPIBase, DefaultBase) }

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]`)

func sanitize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "default"
	}
	return s
}

// ProfileID picks a per-binary profile:
// 1) the explicit name (flag or BOUNCE_PROFILE)
// 2) <exeBase>-<hash8 of full exe path>
func ProfileID(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return sanitize(p)
	}
	if p := strings.TrimSpace(os.Getenv(EnvProfile)); p != "" {
		return sanitize(p)
	}
	exe, _ := os.Executable()
	base := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	sum := sha1.Sum([]byte(exe))
	return sanitize(base) + "-" + hex.EncodeToString(sum[:])[:8]
}

// ConfigDir = OS config dir / WalletBounce / profile
//
//	Linux:   ~/.config/WalletBounce/<profile>/
//	macOS:   ~/Library/Application Support/WalletBounce/<profile>/
//	Windows: %APPDATA%\WalletBounce\<profile>\
func ConfigDir(profile string) (string, error) {
	root, _ := os.UserConfigDir()
	if root == "" {
		home, _ := os.UserHomeDir()
		root = filepath.Join(home, ".config")
	}
	dir := filepath.Join(root, "WalletBounce", ProfileID(profile))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
