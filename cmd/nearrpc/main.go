package main

import (
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

// Injected at build time
var version = "<missing>"

var logger, tracer = logging.PackageLogger("nearrpc", "github.com/near-commons/near-rpc-go")

func main() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.InfoLevel))

	Run(
		"nearrpc",
		"NEAR transaction status queries and tooling",
		Description(`
			nearrpc queries the status of NEAR transactions through the
			'tx' and 'EXPERIMENTAL_tx_status' JSON-RPC methods, either by
			transaction hash and sender account or by the full signed
			transaction.

			'nearrpc wait' polls a transaction until it reaches a given
			execution status.

			The binary also contains utility tools to inspect signed
			transactions offline.

			NEAR Endpoints:
			  Mainnet: https://rpc.mainnet.near.org
			  Testnet: https://rpc.testnet.near.org
		`),

		ConfigureVersion(version),
		ConfigureViper("NEARRPC"),

		CobraCmd(NewStatusCmd(logger)),
		CobraCmd(NewWaitCmd(logger, tracer)),

		CobraCmd(NewToolDecodeTxCmd(logger)),

		OnCommandErrorLogAndExit(logger),
	)
}

func CobraCmd(cmd *cobra.Command) cli.CommandOption {
	return cli.CommandOptionFunc(func(parent *cobra.Command) {
		parent.AddCommand(cmd)
	})
}
