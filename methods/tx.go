package methods

import (
	"encoding/json"

	"github.com/near-commons/near-rpc-go/types"
)

// MethodTx queries the final outcome of a transaction
const MethodTx = "tx"

// TxRequest queries the status of a transaction.
//
// Example: the outcome of B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq
//
//	req := methods.TxRequest{
//		TransactionInfo: types.TransactionID{
//			Hash:            types.MustParseCryptoHash("B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq"),
//			SenderAccountID: "itranscend.near",
//		},
//	}
//	outcome, err := methods.Call[types.FinalExecutionOutcomeView](ctx, client, req)
type TxRequest struct {
	TransactionInfo types.TransactionInfo
	// WaitUntil is the threshold of the wire form; empty means
	// types.DefaultTxExecutionStatus. The positional params cannot carry it.
	WaitUntil types.TxExecutionStatus
}

// TxResponse is the result type of TxRequest
type TxResponse = types.FinalExecutionOutcomeView

var _ Method[TxResponse] = TxRequest{}

func (TxRequest) MethodName() string {
	return MethodTx
}

func (r TxRequest) Params() ([]any, error) {
	return transactionInfoParams(MethodTx, r.TransactionInfo)
}

// ToWire returns the request the node executes, filling the default
// wait_until when unset
func (r TxRequest) ToWire() types.TransactionStatusRequest {
	return toWire(r.TransactionInfo, r.WaitUntil)
}

func (TxRequest) decodeResponse(raw json.RawMessage) (*TxResponse, error) {
	return decodeResult[TxResponse](MethodTx, raw)
}

// decodeError yields a *types.TransactionError for tx status failures
func (TxRequest) decodeError(rpcErr *types.RPCError) error {
	return transactionErrorOf(rpcErr)
}
