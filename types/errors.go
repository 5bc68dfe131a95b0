package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/near-commons/near-rpc-go/codec"
)

// Top-level error names reported by nearcore in the "name" field
const (
	ErrorNameHandler           = "HANDLER_ERROR"
	ErrorNameRequestValidation = "REQUEST_VALIDATION_ERROR"
	ErrorNameInternal          = "INTERNAL_ERROR"
)

// RPCError is the JSON-RPC error object returned by a node
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
}

// ErrorCause is the structured cause attached to an RPCError
type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc error %d (%s/%s): %s", e.Code, e.Name, e.Cause.Name, e.Message)
	}
	if e.Name != "" {
		return fmt.Sprintf("rpc error %d (%s): %s", e.Code, e.Name, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransactionErrorKind enumerates the failures of the tx status methods
type TransactionErrorKind string

const (
	TxErrInvalidTransaction TransactionErrorKind = "INVALID_TRANSACTION"
	TxErrDoesNotTrackShard  TransactionErrorKind = "DOES_NOT_TRACK_SHARD"
	TxErrRequestRouted      TransactionErrorKind = "REQUEST_ROUTED"
	TxErrUnknownTransaction TransactionErrorKind = "UNKNOWN_TRANSACTION"
	TxErrInternal           TransactionErrorKind = "INTERNAL_ERROR"
	TxErrTimeout            TransactionErrorKind = "TIMEOUT_ERROR"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrDoesNotTrackShard  = errors.New("node does not track the shard")
	ErrRequestRouted      = errors.New("request routed to another node")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrInternal           = errors.New("internal server error")
	ErrTimeout            = errors.New("timeout waiting for transaction outcome")
)

var transactionErrorSentinels = map[TransactionErrorKind]error{
	TxErrInvalidTransaction: ErrInvalidTransaction,
	TxErrDoesNotTrackShard:  ErrDoesNotTrackShard,
	TxErrRequestRouted:      ErrRequestRouted,
	TxErrUnknownTransaction: ErrUnknownTransaction,
	TxErrInternal:           ErrInternal,
	TxErrTimeout:            ErrTimeout,
}

// TransactionError is the error type declared by the tx status methods
type TransactionError struct {
	Kind TransactionErrorKind
	// TransactionHash is set for REQUEST_ROUTED and UNKNOWN_TRANSACTION
	TransactionHash *CryptoHash
	// DebugInfo is set for INTERNAL_ERROR
	DebugInfo string
	// Context carries the raw InvalidTxError for INVALID_TRANSACTION
	Context json.RawMessage
	// RPC is the error object the kind was decoded from
	RPC *RPCError
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, transactionErrorSentinels[e.Kind])
	if e.TransactionHash != nil {
		msg += " " + e.TransactionHash.String()
	}
	if e.DebugInfo != "" {
		msg += ": " + e.DebugInfo
	}
	return msg
}

// Unwrap exposes the sentinel of the kind so callers can use errors.Is
func (e *TransactionError) Unwrap() error {
	return transactionErrorSentinels[e.Kind]
}

type transactionErrorInfo struct {
	TransactionHash          *CryptoHash     `json:"transaction_hash,omitempty"`
	RequestedTransactionHash *CryptoHash     `json:"requested_transaction_hash,omitempty"`
	DebugInfo                string          `json:"debug_info,omitempty"`
	ErrorMessage             string          `json:"error_message,omitempty"`
	Context                  json.RawMessage `json:"context,omitempty"`
}

// ParseTransactionError maps a handler error onto TransactionError. It
// returns false when the error is not one of the tx status kinds, in which
// case the RPCError should be surfaced as is.
func ParseTransactionError(rpcErr *RPCError) (*TransactionError, bool) {
	if rpcErr == nil || rpcErr.Cause == nil {
		return nil, false
	}

	kind := TransactionErrorKind(rpcErr.Cause.Name)
	if _, known := transactionErrorSentinels[kind]; !known {
		return nil, false
	}
	// INTERNAL_ERROR is reported both as a handler cause and as a top-level name
	if rpcErr.Name != ErrorNameHandler && !(rpcErr.Name == ErrorNameInternal && kind == TxErrInternal) {
		return nil, false
	}

	txErr := &TransactionError{Kind: kind, RPC: rpcErr}
	if len(rpcErr.Cause.Info) == 0 {
		return txErr, true
	}

	var info transactionErrorInfo
	if err := codec.DecodeInto(rpcErr.Cause.Info, &info); err != nil {
		// Keep the kind, the info shape is best effort
		return txErr, true
	}
	switch {
	case info.TransactionHash != nil:
		txErr.TransactionHash = info.TransactionHash
	case info.RequestedTransactionHash != nil:
		txErr.TransactionHash = info.RequestedTransactionHash
	}
	txErr.DebugInfo = info.DebugInfo
	if txErr.DebugInfo == "" {
		txErr.DebugInfo = info.ErrorMessage
	}
	if kind == TxErrInvalidTransaction {
		txErr.Context = rpcErr.Cause.Info
		if len(info.Context) > 0 {
			txErr.Context = info.Context
		}
	}
	return txErr, true
}
