// Package nodetest provides an in-process NEAR JSON-RPC node and transaction
// fixtures for tests.
package nodetest

import (
	"encoding/binary"

	"github.com/near-commons/near-rpc-go/types"
)

const transferActionTag = 3

// SignedTransfer builds the borsh encoding of an ed25519 signed V0
// transaction carrying a single Transfer action
func SignedTransfer(signer, receiver string, nonce uint64, deposit uint64) types.SignedTransaction {
	buf := transferBody(nil, signer, receiver, nonce, deposit)
	return types.SignedTransaction(appendSignature(buf))
}

// SignedTransferV1 is SignedTransfer in the V1 layout: a 0x01 prefix and a
// priority fee after the actions
func SignedTransferV1(signer, receiver string, nonce, deposit, priorityFee uint64) types.SignedTransaction {
	buf := transferBody([]byte{1}, signer, receiver, nonce, deposit)
	buf = binary.LittleEndian.AppendUint64(buf, priorityFee)
	return types.SignedTransaction(appendSignature(buf))
}

func transferBody(buf []byte, signer, receiver string, nonce uint64, deposit uint64) []byte {
	buf = appendString(buf, signer)
	buf = append(buf, 0) // ed25519
	buf = append(buf, filled(32, 0x11)...)
	buf = binary.LittleEndian.AppendUint64(buf, nonce)
	buf = appendString(buf, receiver)
	buf = append(buf, filled(32, 0x22)...) // block hash
	buf = binary.LittleEndian.AppendUint32(buf, 1)

	buf = append(buf, transferActionTag)
	buf = binary.LittleEndian.AppendUint64(buf, deposit) // u128 low half
	return binary.LittleEndian.AppendUint64(buf, 0)
}

func appendSignature(buf []byte) []byte {
	buf = append(buf, 0) // ed25519 signature
	return append(buf, filled(64, 0x33)...)
}

// Outcome returns a successful outcome for the transaction that reached status
func Outcome(hash types.CryptoHash, signer types.AccountID, status types.TxExecutionStatus) types.FinalExecutionOutcomeWithReceiptView {
	receiptID := hash
	receiptID[0] ^= 0xff

	return types.FinalExecutionOutcomeWithReceiptView{
		FinalExecutionOutcomeView: types.FinalExecutionOutcomeView{
			Status: types.FinalExecutionStatus{Kind: types.FinalExecutionSuccessValue, SuccessValue: []byte{}},
			Transaction: types.SignedTransactionView{
				SignerID:   signer,
				PublicKey:  "ed25519:8fcCdzLpmQiUvnbd8X5LbQkASQjuqc1EEqVvQ5ciT8ck",
				Nonce:      1,
				ReceiverID: signer,
				Signature:  "ed25519:3DJ7tHqBq4NKMsJyPWhYg1K1ZxiMjbp9WjxLXoMLprhm",
				Hash:       hash,
			},
			TransactionOutcome: types.ExecutionOutcomeWithIDView{
				ID: hash,
				Outcome: types.ExecutionOutcomeView{
					ReceiptIDs:  []types.CryptoHash{receiptID},
					GasBurnt:    223182562500,
					TokensBurnt: types.NewBalance(22318256250000),
					ExecutorID:  signer,
					Status:      types.ExecutionStatusView{Kind: types.ExecutionStatusSuccessReceiptID, SuccessReceiptID: receiptID},
				},
			},
			ReceiptsOutcome: []types.ExecutionOutcomeWithIDView{{
				ID: receiptID,
				Outcome: types.ExecutionOutcomeView{
					GasBurnt:    223182562500,
					TokensBurnt: types.NewBalance(0),
					ExecutorID:  signer,
					Status:      types.ExecutionStatusView{Kind: types.ExecutionStatusSuccessValue, SuccessValue: []byte{}},
				},
			}},
			FinalExecutionStatus: status,
		},
		Receipts: []types.ReceiptView{{
			PredecessorID: signer,
			ReceiverID:    signer,
			ReceiptID:     receiptID,
			Receipt:       []byte(`{"Action":{"actions":[{"Transfer":{"deposit":"1"}}]}}`),
		}},
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
