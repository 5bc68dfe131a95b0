package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/near-commons/near-rpc-go/codec"
)

// SignedTransaction holds the borsh serialization of a signed transaction
type SignedTransaction []byte

// SignedTransactionFromBase64 decodes the base64 form accepted by the tx methods
func SignedTransactionFromBase64(s string) (SignedTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 signed transaction: %w", err)
	}
	return SignedTransaction(raw), nil
}

func (tx SignedTransaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx)
}

// TransactionInfo identifies the transaction to query. The only
// implementations are FullTransaction and TransactionID.
type TransactionInfo interface {
	isTransactionInfo()
}

// FullTransaction queries by the complete signed transaction
type FullTransaction struct {
	SignedTransaction SignedTransaction
}

// TransactionID queries a previously submitted transaction by hash and signer
type TransactionID struct {
	Hash            CryptoHash
	SenderAccountID AccountID
}

func (FullTransaction) isTransactionInfo() {}
func (TransactionID) isTransactionInfo()   {}

// TxExecutionStatus is the execution stage a transaction has reached, also
// used as the "wait until" threshold of a status request
type TxExecutionStatus string

const (
	TxExecutionStatusNone               TxExecutionStatus = "NONE"
	TxExecutionStatusIncluded           TxExecutionStatus = "INCLUDED"
	TxExecutionStatusExecutedOptimistic TxExecutionStatus = "EXECUTED_OPTIMISTIC"
	TxExecutionStatusIncludedFinal      TxExecutionStatus = "INCLUDED_FINAL"
	TxExecutionStatusExecuted           TxExecutionStatus = "EXECUTED"
	TxExecutionStatusFinal              TxExecutionStatus = "FINAL"
)

// DefaultTxExecutionStatus is the threshold nodes apply when a request does
// not carry wait_until
const DefaultTxExecutionStatus = TxExecutionStatusExecutedOptimistic

// satisfiedBy lists, for each threshold, every status that meets it.
// INCLUDED_FINAL and EXECUTED_OPTIMISTIC are not comparable.
var satisfiedBy = map[TxExecutionStatus][]TxExecutionStatus{
	TxExecutionStatusNone: {
		TxExecutionStatusNone, TxExecutionStatusIncluded, TxExecutionStatusExecutedOptimistic,
		TxExecutionStatusIncludedFinal, TxExecutionStatusExecuted, TxExecutionStatusFinal,
	},
	TxExecutionStatusIncluded: {
		TxExecutionStatusIncluded, TxExecutionStatusExecutedOptimistic,
		TxExecutionStatusIncludedFinal, TxExecutionStatusExecuted, TxExecutionStatusFinal,
	},
	TxExecutionStatusExecutedOptimistic: {
		TxExecutionStatusExecutedOptimistic, TxExecutionStatusExecuted, TxExecutionStatusFinal,
	},
	TxExecutionStatusIncludedFinal: {
		TxExecutionStatusIncludedFinal, TxExecutionStatusExecuted, TxExecutionStatusFinal,
	},
	TxExecutionStatusExecuted: {TxExecutionStatusExecuted, TxExecutionStatusFinal},
	TxExecutionStatusFinal:    {TxExecutionStatusFinal},
}

// ParseTxExecutionStatus validates a status name
func ParseTxExecutionStatus(s string) (TxExecutionStatus, error) {
	status := TxExecutionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown tx execution status %q", s)
	}
	return status, nil
}

func (s TxExecutionStatus) IsValid() bool {
	_, ok := satisfiedBy[s]
	return ok
}

// Satisfies reports whether a transaction that reached s meets target
func (s TxExecutionStatus) Satisfies(target TxExecutionStatus) bool {
	for _, candidate := range satisfiedBy[target] {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s *TxExecutionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := codec.DecodeInto(data, &raw); err != nil {
		return fmt.Errorf("tx execution status must be a string: %w", err)
	}
	parsed, err := ParseTxExecutionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransactionStatusRequest is the form of a tx status request the node
// accepts, including the wait_until threshold
type TransactionStatusRequest struct {
	TransactionInfo TransactionInfo
	WaitUntil       TxExecutionStatus
}

type transactionStatusParams struct {
	SignedTxBase64  string            `json:"signed_tx_base64,omitempty"`
	TxHash          *CryptoHash       `json:"tx_hash,omitempty"`
	SenderAccountID AccountID         `json:"sender_account_id,omitempty"`
	WaitUntil       TxExecutionStatus `json:"wait_until,omitempty"`
}

// MarshalJSON renders the named-params object
func (r TransactionStatusRequest) MarshalJSON() ([]byte, error) {
	params := transactionStatusParams{WaitUntil: r.WaitUntil}
	switch info := r.TransactionInfo.(type) {
	case FullTransaction:
		params.SignedTxBase64 = info.SignedTransaction.Base64()
	case TransactionID:
		hash := info.Hash
		params.TxHash = &hash
		params.SenderAccountID = info.SenderAccountID
	default:
		return nil, fmt.Errorf("unsupported transaction info %T", r.TransactionInfo)
	}
	return codec.Encode(params)
}

// ParseTransactionStatusRequest decodes the params of a tx status call as a
// node receives them: either the positional array ([signed_tx_base64] or
// [tx_hash, sender_account_id]) or the named-params object. A missing
// wait_until is filled with DefaultTxExecutionStatus.
func ParseTransactionStatusRequest(params json.RawMessage) (TransactionStatusRequest, error) {
	req := TransactionStatusRequest{WaitUntil: DefaultTxExecutionStatus}
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 {
		return req, fmt.Errorf("missing params")
	}

	if trimmed[0] == '[' {
		var positional []json.RawMessage
		if err := codec.DecodeInto(trimmed, &positional); err != nil {
			return req, fmt.Errorf("decoding positional params: %w", err)
		}
		switch len(positional) {
		case 1:
			var encoded string
			if err := codec.DecodeInto(positional[0], &encoded); err != nil {
				return req, fmt.Errorf("decoding signed transaction param: %w", err)
			}
			tx, err := SignedTransactionFromBase64(encoded)
			if err != nil {
				return req, err
			}
			req.TransactionInfo = FullTransaction{SignedTransaction: tx}
		case 2:
			var id TransactionID
			if err := codec.DecodeInto(positional[0], &id.Hash); err != nil {
				return req, fmt.Errorf("decoding tx hash param: %w", err)
			}
			if err := codec.DecodeInto(positional[1], &id.SenderAccountID); err != nil {
				return req, fmt.Errorf("decoding sender account id param: %w", err)
			}
			req.TransactionInfo = id
		default:
			return req, fmt.Errorf("expected 1 or 2 positional params, got %d", len(positional))
		}
		return req, nil
	}

	var named transactionStatusParams
	if err := codec.DecodeInto(trimmed, &named); err != nil {
		return req, fmt.Errorf("decoding named params: %w", err)
	}
	if named.WaitUntil != "" {
		req.WaitUntil = named.WaitUntil
	}
	switch {
	case named.SignedTxBase64 != "" && named.TxHash == nil:
		tx, err := SignedTransactionFromBase64(named.SignedTxBase64)
		if err != nil {
			return req, err
		}
		req.TransactionInfo = FullTransaction{SignedTransaction: tx}
	case named.SignedTxBase64 == "" && named.TxHash != nil && named.SenderAccountID != "":
		req.TransactionInfo = TransactionID{Hash: *named.TxHash, SenderAccountID: named.SenderAccountID}
	default:
		return req, fmt.Errorf("params must carry either signed_tx_base64 or tx_hash and sender_account_id")
	}
	return req, nil
}
