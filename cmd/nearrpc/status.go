package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamingfast/cli/sflags"
	"go.uber.org/zap"

	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/types"
	"github.com/near-commons/near-rpc-go/utils"
)

func NewStatusCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [<tx-hash> <sender-account-id>]",
		Short: "Query the status of a NEAR transaction",
		Long: `Calls the 'tx' method, or 'EXPERIMENTAL_tx_status' with --experimental,
and prints the transaction outcome.

Examples:
  # By hash and sender
  nearrpc status B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq itranscend.near

  # By signed transaction, including receipts
  nearrpc status --signed-tx <base64> --experimental

  # Against testnet
  nearrpc status <tx-hash> <sender> --endpoints https://rpc.testnet.near.org
`,
		Args: cobra.RangeArgs(0, 2),
		RunE: statusRunE(logger),
	}

	addClientFlags(cmd)
	addTransactionFlags(cmd)
	cmd.Flags().Bool("experimental", false, "Use EXPERIMENTAL_tx_status and show receipts")
	cmd.Flags().Bool("json", false, "Print the raw outcome as JSON")
	cmd.Flags().Duration("timeout", 30*time.Second, "Overall timeout of the query")

	return cmd
}

func statusRunE(logger *zap.Logger) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		info, err := transactionInfoFromArgs(cmd, args)
		if err != nil {
			return err
		}

		client, err := newClientFromFlags(cmd, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), sflags.MustGetDuration(cmd, "timeout"))
		defer cancel()

		var (
			outcome  *types.FinalExecutionOutcomeView
			receipts []types.ReceiptView
			printed  any
		)
		if sflags.MustGetBool(cmd, "experimental") {
			out, err := client.TransactionStatusWithReceipts(ctx, info)
			if err != nil {
				return fmt.Errorf("EXPERIMENTAL_tx_status: %w", err)
			}
			outcome, receipts, printed = &out.FinalExecutionOutcomeView, out.Receipts, out
		} else {
			out, err := client.TransactionStatus(ctx, info)
			if err != nil {
				return fmt.Errorf("tx: %w", err)
			}
			outcome, printed = out, out
		}

		if sflags.MustGetBool(cmd, "json") {
			bz, err := codec.EncodeIndent(printed)
			if err != nil {
				return err
			}
			fmt.Println(string(bz))
			return nil
		}

		printOutcome(outcome)
		if receipts != nil {
			printReceipts(receipts)
		}
		return nil
	}
}

func printOutcome(outcome *types.FinalExecutionOutcomeView) {
	fmt.Printf("=== Transaction %s ===\n", outcome.TransactionOutcome.ID)
	fmt.Printf("Signer:             %s\n", outcome.Transaction.SignerID)
	fmt.Printf("Receiver:           %s\n", outcome.Transaction.ReceiverID)
	fmt.Printf("Nonce:              %d\n", outcome.Transaction.Nonce)
	if !outcome.TransactionOutcome.BlockHash.IsZero() {
		fmt.Printf("Included in block:  %s\n", outcome.TransactionOutcome.BlockHash)
	}
	if outcome.FinalExecutionStatus != "" {
		fmt.Printf("Execution status:   %s\n", outcome.FinalExecutionStatus)
	}
	fmt.Printf("Result:             %s\n", describeStatus(outcome.Status))
	fmt.Printf("Gas burnt:          %.4f TGas\n", utils.GasToTGas(utils.TotalGasBurnt(outcome)))
	fmt.Printf("Tokens burnt:       %s NEAR\n", utils.YoctoToNEAR(utils.TotalTokensBurnt(outcome)))

	fmt.Printf("\n=== Receipt outcomes (%d) ===\n", len(outcome.ReceiptsOutcome))
	for _, receipt := range outcome.ReceiptsOutcome {
		fmt.Printf("%s  executor=%s  gas=%.4f TGas  logs=%d\n",
			receipt.ID,
			receipt.Outcome.ExecutorID,
			utils.GasToTGas(receipt.Outcome.GasBurnt),
			len(receipt.Outcome.Logs))
		for _, log := range receipt.Outcome.Logs {
			fmt.Printf("    %s\n", log)
		}
	}
}

func printReceipts(receipts []types.ReceiptView) {
	fmt.Printf("\n=== Receipts (%d) ===\n", len(receipts))
	for _, receipt := range receipts {
		fmt.Printf("%s  %s -> %s\n", receipt.ReceiptID, receipt.PredecessorID, receipt.ReceiverID)
	}
}

func describeStatus(status types.FinalExecutionStatus) string {
	switch status.Kind {
	case types.FinalExecutionSuccessValue:
		if len(status.SuccessValue) == 0 {
			return "success"
		}
		return fmt.Sprintf("success, returned %q", status.SuccessValue)
	case types.FinalExecutionFailure:
		return fmt.Sprintf("failure: %s", status.Failure)
	default:
		return string(status.Kind)
	}
}
