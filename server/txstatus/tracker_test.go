package txstatus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// scriptedRPC answers each call with the next entry; the last one repeats.
type scriptedRPC struct {
	mu    sync.Mutex
	steps []step
	calls int
}

type step struct {
	status *rpc.SignatureStatusesResult
	err    error
}

func (s *scriptedRPC) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{st.status}}, nil
}

func (s *scriptedRPC) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func level(l rpc.ConfirmationStatusType) step {
	return step{status: &rpc.SignatureStatusesResult{ConfirmationStatus: l}}
}

var validSig = solana.Signature{9, 9, 9}.String()

func TestCheckMissingSignature(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{{}}}, zerolog.Nop())
	_, err := tr.Check(context.Background(), "")
	require.ErrorIs(t, err, types.ErrMissingParameter)
}

func TestCheckUndecodableSignatureIsNotFound(t *testing.T) {
	rpcFake := &scriptedRPC{steps: []step{{err: errors.New("should not be called")}}}
	tr := NewTracker(rpcFake, zerolog.Nop())

	res, err := tr.Check(context.Background(), "unknown123")
	require.NoError(t, err)
	assert.Equal(t, protocol.TxStatusResult{
		Success: false,
		Status:  protocol.StatusNotFound,
		Message: "Transaction not found",
	}, res)
	assert.Zero(t, rpcFake.count())
}

func TestCheckUnknownSignatureIsNotFound(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{{status: nil}}}, zerolog.Nop())
	res, err := tr.Check(context.Background(), validSig)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, protocol.StatusNotFound, res.Status)
}

func TestCheckLevels(t *testing.T) {
	cases := []struct {
		in        rpc.ConfirmationStatusType
		status    string
		confirmed bool
		msg       string
	}{
		{"", protocol.StatusProcessed, false, "Transaction pending"},
		{rpc.ConfirmationStatusProcessed, protocol.StatusProcessed, false, "Transaction pending"},
		{rpc.ConfirmationStatusConfirmed, protocol.StatusConfirmed, true, "Transaction confirmed"},
		{rpc.ConfirmationStatusFinalized, protocol.StatusFinalized, true, "Transaction confirmed"},
	}
	for _, c := range cases {
		tr := NewTracker(&scriptedRPC{steps: []step{level(c.in)}}, zerolog.Nop())
		res, err := tr.Check(context.Background(), validSig)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, c.status, res.Status)
		assert.Equal(t, c.confirmed, res.IsConfirmed)
		assert.Equal(t, c.msg, res.Message)
		assert.False(t, res.Failed)
	}
}

func TestCheckFinalizedIsStable(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{level(rpc.ConfirmationStatusFinalized)}}, zerolog.Nop())
	first, err := tr.Check(context.Background(), validSig)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := tr.Check(context.Background(), validSig)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCheckExecutionError(t *testing.T) {
	st := &rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}
	tr := NewTracker(&scriptedRPC{steps: []step{{status: st}}}, zerolog.Nop())
	var failed []string
	tr.OnFailed(func(sig string) { failed = append(failed, sig) })

	res, err := tr.Check(context.Background(), validSig)
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, "Transaction failed", res.Message)
	assert.True(t, Done(res))
	assert.Equal(t, []string{validSig}, failed)
}

func TestOnFailedIgnoresHealthyTransactions(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{level(rpc.ConfirmationStatusFinalized)}}, zerolog.Nop())
	called := false
	tr.OnFailed(func(string) { called = true })

	_, err := tr.Check(context.Background(), validSig)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestCheckRPCError(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{{err: errors.New("503")}}}, zerolog.Nop())
	_, err := tr.Check(context.Background(), validSig)
	require.ErrorIs(t, err, types.ErrUpstream)
}

func TestWaitUntilConfirmed(t *testing.T) {
	rpcFake := &scriptedRPC{steps: []step{
		{status: nil},
		{err: errors.New("flaky")},
		level(rpc.ConfirmationStatusProcessed),
		level(rpc.ConfirmationStatusProcessed),
		level(rpc.ConfirmationStatusConfirmed),
	}}
	tr := NewTracker(rpcFake, zerolog.Nop())

	var updates []string
	res, err := tr.Wait(context.Background(), validSig, time.Millisecond, func(r protocol.TxStatusResult) {
		updates = append(updates, r.Status)
	})
	require.NoError(t, err)
	assert.True(t, res.IsConfirmed)
	assert.Equal(t, []string{protocol.StatusNotFound, protocol.StatusProcessed, protocol.StatusConfirmed}, updates)
	assert.Equal(t, 5, rpcFake.count())
}

func TestWaitHonoursContext(t *testing.T) {
	tr := NewTracker(&scriptedRPC{steps: []step{level(rpc.ConfirmationStatusProcessed)}}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := tr.Wait(ctx, validSig, time.Millisecond, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, protocol.StatusProcessed, res.Status)
}
