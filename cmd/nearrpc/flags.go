package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli/sflags"
	"go.uber.org/zap"

	"github.com/near-commons/near-rpc-go/rpc"
	"github.com/near-commons/near-rpc-go/types"
)

const defaultEndpoint = "https://rpc.mainnet.near.org"

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("endpoints", []string{defaultEndpoint}, "NEAR RPC endpoints, the first one is primary (repeat the flag for more)")
	cmd.Flags().String("strategy", string(rpc.StrategyRoundRobin), "Endpoint selection strategy: round-robin or weighted")
	cmd.Flags().Duration("request-timeout", 0, "Timeout of a single HTTP round trip (0 = client default)")
	cmd.Flags().Int("max-attempts", rpc.DefaultRetryConfig().MaxAttempts, "Attempts per call on transport failures")
	cmd.Flags().Int("rate-limit", 0, "Maximum calls per second (0 = unlimited)")
	cmd.Flags().String("metrics-listen-addr", "", "Serve prometheus metrics on this address, e.g. :9102")
}

func addTransactionFlags(cmd *cobra.Command) {
	cmd.Flags().String("signed-tx", "", "Query by base64 encoded signed transaction instead of hash and sender")
}

// newClientFromFlags builds the client from addClientFlags flags
func newClientFromFlags(cmd *cobra.Command, logger *zap.Logger) (*rpc.Client, error) {
	endpoints := sflags.MustGetStringArray(cmd, "endpoints")
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one --endpoints must be provided")
	}

	retryConfig := rpc.DefaultRetryConfig()
	retryConfig.MaxAttempts = sflags.MustGetInt(cmd, "max-attempts")

	opts := []rpc.Option{
		rpc.WithFallbackEndpoints(endpoints[1:]...),
		rpc.WithStrategy(rpc.Strategy(sflags.MustGetString(cmd, "strategy"))),
		rpc.WithRetry(retryConfig),
	}
	if timeout := sflags.MustGetDuration(cmd, "request-timeout"); timeout > 0 {
		opts = append(opts, rpc.WithTimeout(timeout))
	}
	if rps := sflags.MustGetInt(cmd, "rate-limit"); rps > 0 {
		opts = append(opts, rpc.WithRateLimit(float64(rps), 1))
	}
	if addr := sflags.MustGetString(cmd, "metrics-listen-addr"); addr != "" {
		registry := prometheus.NewRegistry()
		opts = append(opts, rpc.WithMetrics(rpc.NewMetrics(registry)))
		serveMetrics(addr, registry, logger)
	}

	client, err := rpc.NewClient(endpoints[0], logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	for _, endpoint := range endpoints {
		logger.Debug("using RPC endpoint", zap.String("endpoint", endpoint))
	}
	return client, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("serving metrics", zap.String("listen_addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

// transactionInfoFromArgs reads either --signed-tx or <tx-hash> <sender-account-id>
func transactionInfoFromArgs(cmd *cobra.Command, args []string) (types.TransactionInfo, error) {
	signedTx := sflags.MustGetString(cmd, "signed-tx")
	if signedTx != "" {
		if len(args) != 0 {
			return nil, fmt.Errorf("--signed-tx cannot be combined with positional arguments")
		}
		tx, err := types.SignedTransactionFromBase64(signedTx)
		if err != nil {
			return nil, fmt.Errorf("invalid --signed-tx: %w", err)
		}
		return types.FullTransaction{SignedTransaction: tx}, nil
	}

	if len(args) != 2 {
		return nil, fmt.Errorf("expected <tx-hash> <sender-account-id> or --signed-tx")
	}
	hash, err := types.ParseCryptoHash(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid tx hash: %w", err)
	}
	sender, err := types.ParseAccountID(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sender account id: %w", err)
	}
	return types.TransactionID{Hash: hash, SenderAccountID: sender}, nil
}
