package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"

	"github.com/near-commons/near-rpc-go/rpc"
	"github.com/near-commons/near-rpc-go/types"
)

func NewWaitCmd(logger *zap.Logger, tracer logging.Tracer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait [<tx-hash> <sender-account-id>]",
		Short: "Poll a NEAR transaction until it reaches an execution status",
		Long: `Polls the 'tx' method until the transaction's final_execution_status
satisfies --until. Unknown transactions and node timeouts are polled
again until --timeout elapses.

Execution statuses, from weakest to strongest:
  NONE, INCLUDED, EXECUTED_OPTIMISTIC, INCLUDED_FINAL, EXECUTED, FINAL

Example:
  nearrpc wait B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq itranscend.near \
    --until FINAL --retry-interval 1s --timeout 2m
`,
		Args: cobra.RangeArgs(0, 2),
		RunE: waitRunE(logger, tracer),
	}

	addClientFlags(cmd)
	addTransactionFlags(cmd)
	cmd.Flags().String("until", string(types.TxExecutionStatusFinal), "Execution status to wait for")
	cmd.Flags().Duration("retry-interval", time.Second, "Interval between two status polls")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Give up after this duration")

	return cmd
}

func waitRunE(logger *zap.Logger, tracer logging.Tracer) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		info, err := transactionInfoFromArgs(cmd, args)
		if err != nil {
			return err
		}

		target, err := types.ParseTxExecutionStatus(sflags.MustGetString(cmd, "until"))
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		retryInterval := sflags.MustGetDuration(cmd, "retry-interval")
		timeout := sflags.MustGetDuration(cmd, "timeout")

		logger.Info("waiting for transaction",
			zap.String("target", string(target)),
			zap.Duration("retry_interval", retryInterval),
			zap.Duration("timeout", timeout),
		)

		client, err := newClientFromFlags(cmd, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		startTime := time.Now()
		outcome, err := rpc.NewWaiter(retryInterval, logger).Wait(ctx, client, info, target)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", target, err)
		}

		if tracer.Enabled() {
			for _, status := range client.Endpoints() {
				logger.Debug("endpoint status",
					zap.String("endpoint", status.URL),
					zap.Float64("health_score", status.HealthScore),
					zap.Uint64("total_requests", status.TotalRequests),
					zap.Uint64("failed_requests", status.FailedRequests),
				)
			}
		}

		fmt.Printf("Transaction reached %s after %s\n\n", target, time.Since(startTime).Round(time.Millisecond))
		printOutcome(outcome)
		return nil
	}
}
