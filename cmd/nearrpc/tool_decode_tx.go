package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streamingfast/cli/sflags"
	"go.uber.org/zap"

	"github.com/near-commons/near-rpc-go/decoder"
)

func NewToolDecodeTxCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool-decode-tx <signed-tx-base64>",
		Short: "Decode a base64 signed NEAR transaction and compute its hash",
		Long: `Decodes the borsh encoded signed transaction, as submitted to
broadcast_tx_* or passed to 'status --signed-tx', and prints its
header fields and transaction hash. No RPC call is made.

Example:
  nearrpc tool-decode-tx DgAAAGFsaWNlLm5lYXIA...
`,
		Args: cobra.ExactArgs(1),
		RunE: toolDecodeTxRunE(logger),
	}

	cmd.Flags().Bool("show-raw", false, "Show the raw transaction size and signature")

	return cmd
}

func toolDecodeTxRunE(logger *zap.Logger) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		showRaw := sflags.MustGetBool(cmd, "show-raw")

		header, err := decoder.NewDecoder(logger).DecodeSignedTransactionFromBase64(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("=== Signed Transaction ===\n")
		fmt.Printf("Hash:         %s\n", header.Hash)
		fmt.Printf("Version:      V%d\n", header.Version)
		fmt.Printf("Signer:       %s\n", header.SignerID)
		fmt.Printf("Public Key:   %s\n", header.PublicKey)
		fmt.Printf("Nonce:        %d\n", header.Nonce)
		fmt.Printf("Receiver:     %s\n", header.ReceiverID)
		fmt.Printf("Block Hash:   %s\n", header.BlockHash)
		fmt.Printf("Actions:      %d\n", header.ActionCount)
		if header.Version == decoder.TransactionV1 {
			fmt.Printf("Priority Fee: %d\n", header.PriorityFee)
		}

		if showRaw {
			fmt.Printf("\n=== Raw ===\n")
			fmt.Printf("Encoded size: %d bytes (base64)\n", len(args[0]))
			fmt.Printf("Signature:    %s\n", header.Signature)
		}

		return nil
	}
}
