package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/near-commons/near-rpc-go/methods"
	"github.com/near-commons/near-rpc-go/types"
	"go.uber.org/zap"
)

// StatusFetcher is the part of Client a Waiter polls
type StatusFetcher interface {
	TransactionStatus(ctx context.Context, info types.TransactionInfo) (*methods.TxResponse, error)
}

// Waiter polls a transaction until it reaches a target execution status
type Waiter struct {
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewWaiter creates a waiter polling every retryInterval
func NewWaiter(retryInterval time.Duration, logger *zap.Logger) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{
		retryInterval: retryInterval,
		logger:        logger,
	}
}

// Wait returns the first outcome whose final_execution_status satisfies
// target. Unknown transactions and node timeouts are polled again; any other
// error stops the wait. An outcome without final_execution_status comes from
// a node predating it and is accepted as is.
func (w *Waiter) Wait(ctx context.Context, client StatusFetcher, info types.TransactionInfo, target types.TxExecutionStatus) (*methods.TxResponse, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("invalid target status %q", target)
	}

	sleepDuration := time.Duration(0)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepDuration):
		}
		sleepDuration = w.retryInterval

		outcome, err := client.TransactionStatus(ctx, info)
		if err != nil {
			if errors.Is(err, types.ErrUnknownTransaction) || errors.Is(err, types.ErrTimeout) {
				w.logger.Debug("transaction not ready yet",
					zap.Int("attempt", attempt),
					zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("fetching transaction status: %w", err)
		}

		reached := outcome.FinalExecutionStatus
		if reached == "" || reached.Satisfies(target) {
			w.logger.Info("transaction reached target status",
				zap.Stringer("hash", outcome.TransactionOutcome.ID),
				zap.String("status", string(reached)),
				zap.String("target", string(target)),
				zap.Int("attempts", attempt))
			return outcome, nil
		}

		w.logger.Info("got transaction status",
			zap.Stringer("hash", outcome.TransactionOutcome.ID),
			zap.String("status", string(reached)),
			zap.String("target", string(target)))
	}
}
