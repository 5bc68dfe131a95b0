package utils

import (
	"strings"

	"github.com/near-commons/near-rpc-go/types"
)

// 1 NEAR = 10^24 yoctoNEAR
const NEARDecimals = 24

// 1 TGas = 10^12 gas
const GasPerTGas = 1_000_000_000_000

// YoctoToNEAR renders a yoctoNEAR balance as a NEAR decimal without trailing
// zeros, e.g. "1.5"
func YoctoToNEAR(b types.Balance) string {
	digits := b.String()
	if len(digits) <= NEARDecimals {
		digits = strings.Repeat("0", NEARDecimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-NEARDecimals]
	frac := strings.TrimRight(digits[len(digits)-NEARDecimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// GasToTGas converts gas units to TGas
func GasToTGas(gas types.Gas) float64 {
	return float64(gas) / GasPerTGas
}

// TotalGasBurnt sums the gas burnt by the transaction and all its receipts
func TotalGasBurnt(outcome *types.FinalExecutionOutcomeView) types.Gas {
	total := outcome.TransactionOutcome.Outcome.GasBurnt
	for _, receipt := range outcome.ReceiptsOutcome {
		total += receipt.Outcome.GasBurnt
	}
	return total
}

// TotalTokensBurnt sums the yoctoNEAR burnt by the transaction and all its
// receipts
func TotalTokensBurnt(outcome *types.FinalExecutionOutcomeView) types.Balance {
	var total types.Balance
	total.Set(&outcome.TransactionOutcome.Outcome.TokensBurnt.Int)
	for _, receipt := range outcome.ReceiptsOutcome {
		total.Add(&total.Int, &receipt.Outcome.TokensBurnt.Int)
	}
	return total
}
