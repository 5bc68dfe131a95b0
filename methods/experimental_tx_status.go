package methods

import (
	"encoding/json"

	"github.com/near-commons/near-rpc-go/types"
)

// MethodExperimentalTxStatus queries the final outcome along with every receipt
const MethodExperimentalTxStatus = "EXPERIMENTAL_tx_status"

// ExperimentalTxStatusRequest is TxRequest answering with the receipts
type ExperimentalTxStatusRequest struct {
	TransactionInfo types.TransactionInfo
	// WaitUntil is only sent with the wire form, as for TxRequest
	WaitUntil types.TxExecutionStatus
}

// ExperimentalTxStatusResponse is the result type of ExperimentalTxStatusRequest
type ExperimentalTxStatusResponse = types.FinalExecutionOutcomeWithReceiptView

var _ Method[ExperimentalTxStatusResponse] = ExperimentalTxStatusRequest{}

// MethodName returns "EXPERIMENTAL_tx_status"
func (ExperimentalTxStatusRequest) MethodName() string {
	return MethodExperimentalTxStatus
}

// Params renders the positional params: [signed_tx_base64] or
// [tx_hash, sender_account_id]
func (r ExperimentalTxStatusRequest) Params() ([]any, error) {
	return transactionInfoParams(MethodExperimentalTxStatus, r.TransactionInfo)
}

// ToWire returns the request the node executes, filling the default
// wait_until when unset
func (r ExperimentalTxStatusRequest) ToWire() types.TransactionStatusRequest {
	return toWire(r.TransactionInfo, r.WaitUntil)
}

func (ExperimentalTxStatusRequest) decodeResponse(raw json.RawMessage) (*ExperimentalTxStatusResponse, error) {
	return decodeResult[ExperimentalTxStatusResponse](MethodExperimentalTxStatus, raw)
}

func (ExperimentalTxStatusRequest) decodeError(rpcErr *types.RPCError) error {
	return transactionErrorOf(rpcErr)
}
