package claims

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

func openLedger(t *testing.T, dir string) *Ledger {
	t.Helper()
	l, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	return l
}

func TestConcurrentReserveOnlyOneWins(t *testing.T) {
	l := openLedger(t, t.TempDir())

	var wins, inflight int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Reserve("addr1", 10)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case assert.ErrorIs(t, err, types.ErrClaimInFlight):
				atomic.AddInt32(&inflight, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(15), inflight)
	assert.True(t, l.Pending("addr1"))
}

func TestDifferentAddressesDoNotConflict(t *testing.T) {
	l := openLedger(t, t.TempDir())
	require.NoError(t, l.Reserve("addr1", 5))
	require.NoError(t, l.Reserve("addr2", 5))
}

func TestReleaseAllowsRetry(t *testing.T) {
	l := openLedger(t, t.TempDir())
	require.NoError(t, l.Reserve("addr1", 5))
	l.Release("addr1", 5)
	assert.False(t, l.Pending("addr1"))
	require.NoError(t, l.Reserve("addr1", 5))
}

func TestCommitBlocksEqualAndLowerScores(t *testing.T) {
	l := openLedger(t, t.TempDir())
	require.NoError(t, l.Reserve("addr1", 7))
	require.NoError(t, l.Commit("addr1", 7, "sig-7"))

	require.ErrorIs(t, l.Reserve("addr1", 7), types.ErrAlreadyClaimed)
	require.ErrorIs(t, l.Reserve("addr1", 3), types.ErrAlreadyClaimed)

	// a new personal best is claimable again
	require.NoError(t, l.Reserve("addr1", 8))
	require.NoError(t, l.Commit("addr1", 8, "sig-8"))

	h := l.History("addr1")
	require.Len(t, h, 2)
	assert.Equal(t, "sig-7", h[0].Signature)
	assert.Equal(t, protocol.ClaimSubmitted, h[1].State)
}

func TestCommitWithoutReservation(t *testing.T) {
	l := openLedger(t, t.TempDir())
	require.ErrorIs(t, l.Commit("addr1", 1, "sig"), types.ErrInvalidInput)

	require.NoError(t, l.Reserve("addr1", 2))
	require.ErrorIs(t, l.Commit("addr1", 3, "sig"), types.ErrInvalidInput)
}

func TestLedgerReload(t *testing.T) {
	dir := t.TempDir()
	l := openLedger(t, dir)
	require.NoError(t, l.Reserve("addr1", 4))
	require.NoError(t, l.Commit("addr1", 4, "sig-4"))
	require.NoError(t, l.Reserve("addr2", 9)) // pending, not persisted

	reopened := openLedger(t, dir)
	assert.Len(t, reopened.History("addr1"), 1)
	assert.False(t, reopened.Pending("addr2"))
	require.ErrorIs(t, reopened.Reserve("addr1", 4), types.ErrAlreadyClaimed)
	require.NoError(t, reopened.Reserve("addr2", 9))
}

func TestCorruptLedgerStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims.json"), []byte("[[["), 0o644))

	l := openLedger(t, dir)
	assert.Empty(t, l.History("addr1"))
	require.NoError(t, l.Reserve("addr1", 1))
}

func TestFailedClaimFreesScore(t *testing.T) {
	dir := t.TempDir()
	l := openLedger(t, dir)
	require.NoError(t, l.Reserve("addr1", 6))
	require.NoError(t, l.Commit("addr1", 6, "sig-6"))
	require.ErrorIs(t, l.Reserve("addr1", 6), types.ErrAlreadyClaimed)

	changed, err := l.MarkFailed("sig-6")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = l.MarkFailed("sig-6")
	require.NoError(t, err)
	assert.False(t, changed, "already failed")

	reopened := openLedger(t, dir)
	h := reopened.History("addr1")
	require.Len(t, h, 1)
	assert.Equal(t, protocol.ClaimFailed, h[0].State)
	require.NoError(t, reopened.Reserve("addr1", 6))
}

func TestMarkFailedUnknownSignature(t *testing.T) {
	l := openLedger(t, t.TempDir())
	changed, err := l.MarkFailed("nope")
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = l.MarkFailed("")
	require.NoError(t, err)
	assert.False(t, changed)
}
