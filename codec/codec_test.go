package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/types"
)

func TestDecodeUsesCustomUnmarshalers(t *testing.T) {
	status, err := codec.Decode[types.ExecutionStatusView]([]byte(`{"SuccessValue":"aGk="}`))
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionStatusSuccessValue, status.Kind)
	assert.Equal(t, []byte("hi"), status.SuccessValue)

	_, err = codec.Decode[types.ExecutionStatusView]([]byte(`{"Pending":1}`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	bz, err := codec.Encode([]any{types.MustParseCryptoHash("B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq"), types.AccountID("itranscend.near")})
	require.NoError(t, err)
	assert.JSONEq(t, `["B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq","itranscend.near"]`, string(bz))

	var target struct {
		Method string `json:"method"`
	}
	require.NoError(t, codec.DecodeInto([]byte(`{"method":"tx"}`), &target))
	assert.Equal(t, "tx", target.Method)
	assert.Error(t, codec.DecodeInto([]byte(`{`), &target))
}

func TestNestedDecodeErrorsKeepContext(t *testing.T) {
	_, err := codec.Decode[types.FinalExecutionOutcomeView]([]byte(`{"transaction":{"hash":12}}`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "hash must be a string")
	assert.ErrorContains(t, err, "decoding *string")
}
