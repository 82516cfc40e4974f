package netcfg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "my_profile", sanitize(" My Profile "))
	assert.Equal(t, "default", sanitize("!!!"))
	assert.Equal(t, "a.b-c", sanitize("a.b-c/"))
}

func TestProfileIDPrecedence(t *testing.T) {
	t.Setenv(EnvProfile, "FromEnv")
	assert.Equal(t, "flag", ProfileID("flag"))
	assert.Equal(t, "fromenv", ProfileID(""))

	t.Setenv(EnvProfile, "")
	id := ProfileID("")
	assert.Regexp(t, `-[0-9a-f]{8}$`, id)
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	dir, err := ConfigDir("test")
	require.NoError(t, err)
	assert.Equal(t, "test", filepath.Base(dir))
	assert.True(t, strings.Contains(dir, "WalletBounce"))
}

func TestAPIBase(t *testing.T) {
	t.Setenv(EnvAPIBase, "")
	assert.Equal(t, DefaultBase, APIBase())
	t.Setenv(EnvAPIBase, "https://bounce.example")
	assert.Equal(t, "https://bounce.example", APIBase())
}
