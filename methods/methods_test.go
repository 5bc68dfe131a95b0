package methods

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near-commons/near-rpc-go/internal/nodetest"
	"github.com/near-commons/near-rpc-go/types"
)

const exampleTxHash = "B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq"

type recordedCall struct {
	method string
	params []any
}

type fakeCaller struct {
	mu     sync.Mutex
	calls  []recordedCall
	result json.RawMessage
	err    error
}

func (f *fakeCaller) CallRaw(_ context.Context, method string, params []any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{method: method, params: params})
	return f.result, f.err
}

func exampleID() types.TransactionID {
	return types.TransactionID{
		Hash:            types.MustParseCryptoHash(exampleTxHash),
		SenderAccountID: types.MustParseAccountID("itranscend.near"),
	}
}

func TestMethodNames(t *testing.T) {
	signed := types.FullTransaction{SignedTransaction: nodetest.SignedTransfer("alice.near", "bob.near", 7, 1)}

	for _, info := range []types.TransactionInfo{exampleID(), signed} {
		assert.Equal(t, "tx", TxRequest{TransactionInfo: info}.MethodName())
		assert.Equal(t, "EXPERIMENTAL_tx_status", ExperimentalTxStatusRequest{TransactionInfo: info}.MethodName())
	}
}

func TestParamsByTransactionID(t *testing.T) {
	id := exampleID()
	const wantJSON = `["B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq","itranscend.near"]`

	tests := []struct {
		name   string
		params func() ([]any, error)
	}{
		{name: "tx", params: TxRequest{TransactionInfo: id}.Params},
		{name: "EXPERIMENTAL_tx_status", params: ExperimentalTxStatusRequest{TransactionInfo: id}.Params},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := tt.params()
			require.NoError(t, err)
			assert.Equal(t, []any{id.Hash, id.SenderAccountID}, params)

			bz, err := json.Marshal(params)
			require.NoError(t, err)
			assert.JSONEq(t, wantJSON, string(bz))
		})
	}
}

func TestParamsBySignedTransaction(t *testing.T) {
	tests := []struct {
		name string
		tx   types.SignedTransaction
	}{
		{name: "v0", tx: nodetest.SignedTransfer("alice.near", "bob.near", 7, 1)},
		{name: "v1 with priority fee", tx: nodetest.SignedTransferV1("alice.near", "bob.near", 7, 1, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := types.FullTransaction{SignedTransaction: tt.tx}

			params, err := TxRequest{TransactionInfo: info}.Params()
			require.NoError(t, err)
			require.Len(t, params, 1)

			encoded, ok := params[0].(string)
			require.True(t, ok)
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.tx), decoded)

			params, err = ExperimentalTxStatusRequest{TransactionInfo: info}.Params()
			require.NoError(t, err)
			assert.Equal(t, []any{tt.tx.Base64()}, params)
		})
	}
}

func TestParamsEncodingErrors(t *testing.T) {
	valid := nodetest.SignedTransfer("alice.near", "bob.near", 7, 1)

	tests := []struct {
		name string
		info types.TransactionInfo
	}{
		{name: "nil info", info: nil},
		{name: "empty bytes", info: types.FullTransaction{}},
		{name: "truncated", info: types.FullTransaction{SignedTransaction: valid[:50]}},
		{name: "garbage", info: types.FullTransaction{SignedTransaction: types.SignedTransaction{0xff, 0xff, 0xff, 0xff, 0x01}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, params := range []func() ([]any, error){
				TxRequest{TransactionInfo: tt.info}.Params,
				ExperimentalTxStatusRequest{TransactionInfo: tt.info}.Params,
			} {
				got, err := params()
				assert.Nil(t, got)
				var encErr *EncodingError
				require.ErrorAs(t, err, &encErr)
			}
		})
	}
}

func TestToWireDefaultsWaitUntil(t *testing.T) {
	id := exampleID()

	wire := TxRequest{TransactionInfo: id}.ToWire()
	assert.Equal(t, types.DefaultTxExecutionStatus, wire.WaitUntil)
	assert.Equal(t, types.TransactionInfo(id), wire.TransactionInfo)

	wire = ExperimentalTxStatusRequest{TransactionInfo: id}.ToWire()
	assert.Equal(t, types.TxExecutionStatusExecutedOptimistic, wire.WaitUntil)

	wire = ExperimentalTxStatusRequest{TransactionInfo: id, WaitUntil: types.TxExecutionStatusIncluded}.ToWire()
	assert.Equal(t, types.TxExecutionStatusIncluded, wire.WaitUntil)

	wire = TxRequest{TransactionInfo: id, WaitUntil: types.TxExecutionStatusFinal}.ToWire()
	assert.Equal(t, types.TxExecutionStatusFinal, wire.WaitUntil)

	bz, err := json.Marshal(wire)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tx_hash":"B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq","sender_account_id":"itranscend.near","wait_until":"FINAL"}`, string(bz))
}

func TestWaitUntilDoesNotChangeParams(t *testing.T) {
	id := exampleID()
	params, err := TxRequest{TransactionInfo: id, WaitUntil: types.TxExecutionStatusFinal}.Params()
	require.NoError(t, err)
	assert.Equal(t, []any{id.Hash, id.SenderAccountID}, params)
}

func TestCallDecodesResponse(t *testing.T) {
	id := exampleID()
	outcome := nodetest.Outcome(id.Hash, id.SenderAccountID, types.TxExecutionStatusFinal)
	raw, err := json.Marshal(outcome)
	require.NoError(t, err)

	caller := &fakeCaller{result: raw}

	plain, err := Call[TxResponse](context.Background(), caller, TxRequest{TransactionInfo: id})
	require.NoError(t, err)
	assert.Equal(t, id.Hash, plain.Transaction.Hash)
	assert.Equal(t, types.TxExecutionStatusFinal, plain.FinalExecutionStatus)

	withReceipts, err := Call[ExperimentalTxStatusResponse](context.Background(), caller, ExperimentalTxStatusRequest{TransactionInfo: id})
	require.NoError(t, err)
	require.Len(t, withReceipts.Receipts, 1)
	assert.Equal(t, id.SenderAccountID, withReceipts.Receipts[0].PredecessorID)

	require.Len(t, caller.calls, 2)
	assert.Equal(t, "tx", caller.calls[0].method)
	assert.Equal(t, "EXPERIMENTAL_tx_status", caller.calls[1].method)
	assert.Equal(t, []any{id.Hash, id.SenderAccountID}, caller.calls[1].params)
}

func TestCallEncodingFailureSkipsDispatch(t *testing.T) {
	caller := &fakeCaller{result: json.RawMessage(`{}`)}

	_, err := Call[TxResponse](context.Background(), caller, TxRequest{TransactionInfo: types.FullTransaction{SignedTransaction: types.SignedTransaction{1}}})
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "tx", encErr.Method)
	assert.Empty(t, caller.calls)
}

func TestCallMapsServerErrors(t *testing.T) {
	id := exampleID()

	unknown := &types.RPCError{
		Code: -32000, Message: "Server error", Name: types.ErrorNameHandler,
		Cause: &types.ErrorCause{Name: "UNKNOWN_TRANSACTION"},
	}
	_, err := Call[TxResponse](context.Background(), &fakeCaller{err: unknown}, TxRequest{TransactionInfo: id})
	var txErr *types.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, types.TxErrUnknownTransaction, txErr.Kind)
	assert.ErrorIs(t, err, types.ErrUnknownTransaction)

	methodNotFound := &types.RPCError{Code: -32601, Message: "Method not found", Name: types.ErrorNameRequestValidation,
		Cause: &types.ErrorCause{Name: "METHOD_NOT_FOUND"}}
	_, err = Call[ExperimentalTxStatusResponse](context.Background(), &fakeCaller{err: methodNotFound}, ExperimentalTxStatusRequest{TransactionInfo: id})
	assert.Same(t, methodNotFound, err)

	transport := errors.New("connection refused")
	_, err = Call[TxResponse](context.Background(), &fakeCaller{err: transport}, TxRequest{TransactionInfo: id})
	assert.Same(t, transport, err)
}

func TestCallRejectsEmptyResult(t *testing.T) {
	_, err := Call[TxResponse](context.Background(), &fakeCaller{result: json.RawMessage(`null`)}, TxRequest{TransactionInfo: exampleID()})
	assert.Error(t, err)
}

func TestParamsConcurrentUse(t *testing.T) {
	req := TxRequest{TransactionInfo: types.FullTransaction{SignedTransaction: nodetest.SignedTransfer("alice.near", "bob.near", 1, 1)}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			params, err := req.Params()
			assert.NoError(t, err)
			assert.Len(t, params, 1)
		}()
	}
	wg.Wait()
}
