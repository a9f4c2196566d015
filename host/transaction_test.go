package host_test

import (
	"testing"

	"github.com/cmwaters/ballot/host"
	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/cmwaters/ballot/program"
	"github.com/stretchr/testify/require"
)

func TestSignBytesDecode(t *testing.T) {
	tx := host.NewTransaction(account.RandPubkey(), account.RandPubkey(), account.RandPubkey(), program.Vote(program.OptionC), 42)
	decoded, err := host.DecodeSignedMsg(tx.SignBytes())
	require.NoError(t, err)
	require.Equal(t, tx, decoded)

	empty := host.NewTransaction(account.RandPubkey(), account.RandPubkey(), account.RandPubkey(), nil, 0)
	decoded, err = host.DecodeSignedMsg(empty.SignBytes())
	require.NoError(t, err)
	require.Equal(t, empty, decoded)
}

func TestDecodeSignedMsgErrors(t *testing.T) {
	tx := host.NewTransaction(account.RandPubkey(), account.RandPubkey(), account.RandPubkey(), []byte{1, 2}, 1)
	msg := tx.SignBytes()

	_, err := host.DecodeSignedMsg(msg[:10])
	require.ErrorIs(t, err, host.ErrInvalidSignedMsgLength)
	_, err = host.DecodeSignedMsg(msg[:len(msg)-1])
	require.ErrorIs(t, err, host.ErrInvalidSignedMsgLength)

	msg[0] = 9
	_, err = host.DecodeSignedMsg(msg)
	require.Error(t, err)
}

func TestValidateForm(t *testing.T) {
	signer := sign.NewTestSigner()
	tx := host.NewTransaction(signer.ID(), account.RandPubkey(), account.RandPubkey(), nil, 1)
	require.Error(t, tx.ValidateForm())
	require.NoError(t, tx.Sign(testCtx, signer))
	require.NoError(t, tx.ValidateForm())
	require.True(t, tx.Verify(sign.DefaultVerifyFunc()))

	tx.Data = make([]byte, host.MaxDataSize+1)
	require.Error(t, tx.ValidateForm())
}
