package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/near-commons/near-rpc-go/codec"
)

// FinalExecutionOutcomeView is the result of the tx method
type FinalExecutionOutcomeView struct {
	Status             FinalExecutionStatus         `json:"status"`
	Transaction        SignedTransactionView        `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithIDView   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithIDView `json:"receipts_outcome"`
	// FinalExecutionStatus is the stage the node had reached when it answered
	FinalExecutionStatus TxExecutionStatus `json:"final_execution_status,omitempty"`
}

// FinalExecutionOutcomeWithReceiptView is the result of EXPERIMENTAL_tx_status
type FinalExecutionOutcomeWithReceiptView struct {
	FinalExecutionOutcomeView
	Receipts []ReceiptView `json:"receipts"`
}

// SignedTransactionView echoes the transaction the outcome belongs to
type SignedTransactionView struct {
	SignerID    AccountID         `json:"signer_id"`
	PublicKey   string            `json:"public_key"`
	Nonce       uint64            `json:"nonce"`
	ReceiverID  AccountID         `json:"receiver_id"`
	Actions     []json.RawMessage `json:"actions"`
	PriorityFee uint64            `json:"priority_fee,omitempty"`
	Signature   string            `json:"signature"`
	Hash        CryptoHash        `json:"hash"`
}

// ExecutionOutcomeWithIDView is the outcome of a transaction or a receipt
type ExecutionOutcomeWithIDView struct {
	Proof     []MerklePathItem     `json:"proof"`
	BlockHash CryptoHash           `json:"block_hash"`
	ID        CryptoHash           `json:"id"`
	Outcome   ExecutionOutcomeView `json:"outcome"`
}

type MerklePathItem struct {
	Hash      CryptoHash `json:"hash"`
	Direction string     `json:"direction"`
}

type ExecutionOutcomeView struct {
	Logs        []string            `json:"logs"`
	ReceiptIDs  []CryptoHash        `json:"receipt_ids"`
	GasBurnt    Gas                 `json:"gas_burnt"`
	TokensBurnt Balance             `json:"tokens_burnt"`
	ExecutorID  AccountID           `json:"executor_id"`
	Status      ExecutionStatusView `json:"status"`
	Metadata    ExecutionMetadata   `json:"metadata"`
}

type ExecutionMetadata struct {
	Version    uint32          `json:"version"`
	GasProfile json.RawMessage `json:"gas_profile,omitempty"`
}

// ReceiptView is a receipt produced while executing the transaction
type ReceiptView struct {
	PredecessorID AccountID       `json:"predecessor_id"`
	ReceiverID    AccountID       `json:"receiver_id"`
	ReceiptID     CryptoHash      `json:"receipt_id"`
	Receipt       json.RawMessage `json:"receipt"`
	Priority      uint64          `json:"priority,omitempty"`
}

// FinalExecutionStatusKind names the variant held by a FinalExecutionStatus
type FinalExecutionStatusKind string

const (
	FinalExecutionNotStarted   FinalExecutionStatusKind = "NotStarted"
	FinalExecutionStarted      FinalExecutionStatusKind = "Started"
	FinalExecutionFailure      FinalExecutionStatusKind = "Failure"
	FinalExecutionSuccessValue FinalExecutionStatusKind = "SuccessValue"
)

// FinalExecutionStatus is the overall status of a transaction
type FinalExecutionStatus struct {
	Kind FinalExecutionStatusKind
	// SuccessValue is the decoded return value when Kind is SuccessValue
	SuccessValue []byte
	// Failure is the raw TxExecutionError when Kind is Failure
	Failure json.RawMessage
}

func (s FinalExecutionStatus) IsSuccess() bool {
	return s.Kind == FinalExecutionSuccessValue
}

func (s FinalExecutionStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case FinalExecutionNotStarted, FinalExecutionStarted:
		return codec.Encode(string(s.Kind))
	case FinalExecutionFailure:
		return codec.Encode(map[string]json.RawMessage{string(s.Kind): s.Failure})
	case FinalExecutionSuccessValue:
		return codec.Encode(map[string]string{string(s.Kind): base64.StdEncoding.EncodeToString(s.SuccessValue)})
	default:
		return nil, fmt.Errorf("unknown final execution status %q", s.Kind)
	}
}

func (s *FinalExecutionStatus) UnmarshalJSON(data []byte) error {
	name, payload, err := decodeTaggedVariant(data)
	if err != nil {
		return fmt.Errorf("decoding final execution status: %w", err)
	}

	switch FinalExecutionStatusKind(name) {
	case FinalExecutionNotStarted, FinalExecutionStarted:
		*s = FinalExecutionStatus{Kind: FinalExecutionStatusKind(name)}
	case FinalExecutionFailure:
		*s = FinalExecutionStatus{Kind: FinalExecutionFailure, Failure: payload}
	case FinalExecutionSuccessValue:
		value, err := decodeBase64Payload(payload)
		if err != nil {
			return fmt.Errorf("decoding SuccessValue: %w", err)
		}
		*s = FinalExecutionStatus{Kind: FinalExecutionSuccessValue, SuccessValue: value}
	default:
		return fmt.Errorf("unknown final execution status %q", name)
	}
	return nil
}

// ExecutionStatusKind names the variant held by an ExecutionStatusView
type ExecutionStatusKind string

const (
	ExecutionStatusUnknown          ExecutionStatusKind = "Unknown"
	ExecutionStatusFailure          ExecutionStatusKind = "Failure"
	ExecutionStatusSuccessValue     ExecutionStatusKind = "SuccessValue"
	ExecutionStatusSuccessReceiptID ExecutionStatusKind = "SuccessReceiptId"
)

// ExecutionStatusView is the status of a single transaction or receipt outcome
type ExecutionStatusView struct {
	Kind             ExecutionStatusKind
	SuccessValue     []byte
	SuccessReceiptID CryptoHash
	Failure          json.RawMessage
}

func (s ExecutionStatusView) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ExecutionStatusUnknown:
		return codec.Encode(string(s.Kind))
	case ExecutionStatusFailure:
		return codec.Encode(map[string]json.RawMessage{string(s.Kind): s.Failure})
	case ExecutionStatusSuccessValue:
		return codec.Encode(map[string]string{string(s.Kind): base64.StdEncoding.EncodeToString(s.SuccessValue)})
	case ExecutionStatusSuccessReceiptID:
		return codec.Encode(map[string]CryptoHash{string(s.Kind): s.SuccessReceiptID})
	default:
		return nil, fmt.Errorf("unknown execution status %q", s.Kind)
	}
}

func (s *ExecutionStatusView) UnmarshalJSON(data []byte) error {
	name, payload, err := decodeTaggedVariant(data)
	if err != nil {
		return fmt.Errorf("decoding execution status: %w", err)
	}

	switch ExecutionStatusKind(name) {
	case ExecutionStatusUnknown:
		*s = ExecutionStatusView{Kind: ExecutionStatusUnknown}
	case ExecutionStatusFailure:
		*s = ExecutionStatusView{Kind: ExecutionStatusFailure, Failure: payload}
	case ExecutionStatusSuccessValue:
		value, err := decodeBase64Payload(payload)
		if err != nil {
			return fmt.Errorf("decoding SuccessValue: %w", err)
		}
		*s = ExecutionStatusView{Kind: ExecutionStatusSuccessValue, SuccessValue: value}
	case ExecutionStatusSuccessReceiptID:
		var id CryptoHash
		if err := codec.DecodeInto(payload, &id); err != nil {
			return fmt.Errorf("decoding SuccessReceiptId: %w", err)
		}
		*s = ExecutionStatusView{Kind: ExecutionStatusSuccessReceiptID, SuccessReceiptID: id}
	default:
		return fmt.Errorf("unknown execution status %q", name)
	}
	return nil
}

// decodeTaggedVariant splits serde's externally tagged enums: either a bare
// string for unit variants or a single-key object for the others
func decodeTaggedVariant(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := codec.DecodeInto(data, &name); err != nil {
			return "", nil, err
		}
		return name, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := codec.DecodeInto(data, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected a single variant, got %d keys", len(obj))
	}
	for name, payload := range obj {
		return name, payload, nil
	}
	return "", nil, nil
}

func decodeBase64Payload(payload json.RawMessage) ([]byte, error) {
	var encoded string
	if err := codec.DecodeInto(payload, &encoded); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(encoded)
}
