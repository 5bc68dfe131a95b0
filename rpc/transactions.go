package rpc

import (
	"context"
	"time"

	"github.com/near-commons/near-rpc-go/methods"
	"github.com/near-commons/near-rpc-go/types"
	"go.uber.org/zap"
)

// TransactionStatus calls tx for info. Outcomes that reached FINAL are served
// from the client cache on later calls.
func (c *Client) TransactionStatus(ctx context.Context, info types.TransactionInfo) (*methods.TxResponse, error) {
	startTime := time.Now()

	key, cacheable := newCacheKey(methods.MethodTx, info)
	if cacheable {
		if out, ok := cachedOutcome[methods.TxResponse](c, key); ok {
			c.metrics.observe(methods.MethodTx, outcomeCacheHit, time.Since(startTime))
			return out, nil
		}
	}

	out, err := methods.Call[methods.TxResponse](ctx, c, methods.TxRequest{TransactionInfo: info})
	if err != nil {
		return nil, err
	}

	if cacheable {
		storeOutcome(c, key, out.FinalExecutionStatus, out)
	}

	c.logger.Debug("transaction status fetched",
		zap.Stringer("hash", out.TransactionOutcome.ID),
		zap.String("final_execution_status", string(out.FinalExecutionStatus)),
		zap.Duration("duration", time.Since(startTime)))
	return out, nil
}

// TransactionStatusWithReceipts calls EXPERIMENTAL_tx_status for info, which
// also returns every receipt the transaction produced
func (c *Client) TransactionStatusWithReceipts(ctx context.Context, info types.TransactionInfo) (*methods.ExperimentalTxStatusResponse, error) {
	startTime := time.Now()

	key, cacheable := newCacheKey(methods.MethodExperimentalTxStatus, info)
	if cacheable {
		if out, ok := cachedOutcome[methods.ExperimentalTxStatusResponse](c, key); ok {
			c.metrics.observe(methods.MethodExperimentalTxStatus, outcomeCacheHit, time.Since(startTime))
			return out, nil
		}
	}

	out, err := methods.Call[methods.ExperimentalTxStatusResponse](ctx, c, methods.ExperimentalTxStatusRequest{TransactionInfo: info})
	if err != nil {
		return nil, err
	}

	if cacheable {
		storeOutcome(c, key, out.FinalExecutionStatus, out)
	}

	c.logger.Debug("transaction status with receipts fetched",
		zap.Stringer("hash", out.TransactionOutcome.ID),
		zap.Int("receipts", len(out.Receipts)),
		zap.Duration("duration", time.Since(startTime)))
	return out, nil
}
