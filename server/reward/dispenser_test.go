package reward

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit-710/wallet-bounce/server/treasury"
	"github.com/rohit-710/wallet-bounce/server/types"
)

type fakeRPC struct {
	blockhashErr error
	sendErr      error
	balance      uint64

	blockhashCalls int
	sent           []*solana.Transaction
	opts           []rpc.TransactionOpts
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context, c rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.blockhashCalls++
	if f.blockhashErr != nil {
		return nil, f.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1, 2, 3}},
	}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	f.opts = append(f.opts, opts)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return tx.Signatures[0], nil
}

func (f *fakeRPC) GetBalance(ctx context.Context, pk solana.PublicKey, c rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: f.balance}, nil
}

func newTestDispenser(t *testing.T, f *fakeRPC) (*Dispenser, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	signer, err := treasury.New(key)
	require.NoError(t, err)
	return NewDispenser(f, signer, Options{Lamports: 10_000_000, Logger: zerolog.Nop()}), key
}

func TestDispenseSubmitsSignedTransfer(t *testing.T) {
	f := &fakeRPC{}
	d, key := newTestDispenser(t, f)
	player := solana.NewWallet().PublicKey()

	sig, err := d.Dispense(context.Background(), player.String(), 5)
	require.NoError(t, err)
	require.Len(t, f.sent, 1)

	tx := f.sent[0]
	assert.Equal(t, tx.Signatures[0], sig)
	assert.Equal(t, solana.Hash{1, 2, 3}, tx.Message.RecentBlockhash)
	assert.Equal(t, rpc.CommitmentConfirmed, f.opts[0].PreflightCommitment)

	// treasury pays fees and is the only signer
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, key.PublicKey(), tx.Message.AccountKeys[0])
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, sig.Verify(key.PublicKey(), msg))

	require.Len(t, tx.Message.Instructions, 2)
	ix := tx.Message.Instructions[0]
	assert.Equal(t, solana.SystemProgramID, tx.Message.AccountKeys[ix.ProgramIDIndex])
	require.Len(t, ix.Accounts, 2)
	assert.Equal(t, key.PublicKey(), tx.Message.AccountKeys[ix.Accounts[0]])
	assert.Equal(t, player, tx.Message.AccountKeys[ix.Accounts[1]])

	data := []byte(ix.Data)
	require.Len(t, data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]), "transfer instruction")
	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[4:]))

	note := tx.Message.Instructions[1]
	assert.Equal(t, solana.MemoProgramID, tx.Message.AccountKeys[note.ProgramIDIndex])
	require.Len(t, note.Accounts, 1)
	assert.Equal(t, key.PublicKey(), tx.Message.AccountKeys[note.Accounts[0]])
	assert.Contains(t, string(note.Data), "wallet-bounce reward score=5 claim=")
}

func TestDispenseTwiceUnderOneBlockhash(t *testing.T) {
	f := &fakeRPC{}
	d, _ := newTestDispenser(t, f)
	player := solana.NewWallet().PublicKey().String()

	sig1, err := d.Dispense(context.Background(), player, 5)
	require.NoError(t, err)
	sig2, err := d.Dispense(context.Background(), player, 5)
	require.NoError(t, err)

	require.Len(t, f.sent, 2)
	assert.Equal(t, f.sent[0].Message.RecentBlockhash, f.sent[1].Message.RecentBlockhash)
	assert.NotEqual(t, sig1, sig2, "each reward is its own transaction")
}

func TestRewardMemo(t *testing.T) {
	assert.Equal(t, "wallet-bounce reward score=12 claim=ff", RewardMemo(12, 255))
	assert.Less(t, len(RewardMemo(^uint64(0), -1)), 128)
}

func TestDispenseInvalidAddressSubmitsNothing(t *testing.T) {
	f := &fakeRPC{}
	d, _ := newTestDispenser(t, f)

	_, err := d.Dispense(context.Background(), "definitely-not-a-key", 1)
	require.ErrorIs(t, err, types.ErrInvalidAddress)
	assert.Zero(t, f.blockhashCalls)
	assert.Empty(t, f.sent)

	_, err = d.Dispense(context.Background(), "  ", 1)
	require.ErrorIs(t, err, types.ErrMissingParameter)
}

func TestDispenseBlockhashFailure(t *testing.T) {
	f := &fakeRPC{blockhashErr: errors.New("rpc down")}
	d, _ := newTestDispenser(t, f)

	_, err := d.Dispense(context.Background(), solana.NewWallet().PublicKey().String(), 1)
	require.ErrorIs(t, err, types.ErrUpstream)
	assert.Empty(t, f.sent)
}

func TestDispenseSendFailureIsSingleAttempt(t *testing.T) {
	f := &fakeRPC{sendErr: errors.New("insufficient funds")}
	d, _ := newTestDispenser(t, f)

	sig, err := d.Dispense(context.Background(), solana.NewWallet().PublicKey().String(), 1)
	require.ErrorIs(t, err, types.ErrUpstream)
	assert.Equal(t, solana.Signature{}, sig)
	assert.Len(t, f.sent, 1)
}

func TestBalance(t *testing.T) {
	f := &fakeRPC{balance: 42}
	d, key := newTestDispenser(t, f)

	got, err := d.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
	assert.Equal(t, key.PublicKey(), d.Treasury())
}
