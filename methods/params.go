package methods

import (
	"errors"
	"fmt"

	"github.com/near-commons/near-rpc-go/decoder"
	"github.com/near-commons/near-rpc-go/types"
)

var errNoTransactionInfo = errors.New("transaction info is not set")

// transactionInfoParams encodes the params shared by the tx status methods:
// [signed_tx_base64] or [tx_hash, sender_account_id]
func transactionInfoParams(method string, info types.TransactionInfo) ([]any, error) {
	switch info := info.(type) {
	case types.FullTransaction:
		if _, err := decoder.DecodeSignedTransaction(info.SignedTransaction); err != nil {
			return nil, &EncodingError{Method: method, Err: fmt.Errorf("malformed signed transaction: %w", err)}
		}
		return []any{info.SignedTransaction.Base64()}, nil
	case types.TransactionID:
		return []any{info.Hash, info.SenderAccountID}, nil
	case nil:
		return nil, &EncodingError{Method: method, Err: errNoTransactionInfo}
	default:
		return nil, &EncodingError{Method: method, Err: fmt.Errorf("unsupported transaction info %T", info)}
	}
}

func toWire(info types.TransactionInfo, waitUntil types.TxExecutionStatus) types.TransactionStatusRequest {
	if waitUntil == "" {
		waitUntil = types.DefaultTxExecutionStatus
	}
	return types.TransactionStatusRequest{TransactionInfo: info, WaitUntil: waitUntil}
}

func transactionErrorOf(rpcErr *types.RPCError) error {
	if txErr, ok := types.ParseTransactionError(rpcErr); ok {
		return txErr
	}
	return rpcErr
}
