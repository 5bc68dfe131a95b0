package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/methods"
	"github.com/near-commons/near-rpc-go/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is a NEAR JSON-RPC client over HTTP. It is safe for concurrent use.
type Client struct {
	pool            *endpointPool
	httpClient      *http.Client
	retry           RetryConfig
	limiter         *rate.Limiter
	metrics         *Metrics
	cache           *lru.Cache[cacheKey, []byte]
	maxResponseSize int64
	nextID          atomic.Uint64
	logger          *zap.Logger
}

var _ methods.Caller = (*Client)(nil)

// NewClient creates a client for rpcEndpoint
func NewClient(rpcEndpoint string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	endpoints := append([]string{rpcEndpoint}, o.fallbackEndpoints...)
	for _, endpoint := range endpoints {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return nil, fmt.Errorf("invalid endpoint %q: expected an http(s) url", endpoint)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	c := &Client{
		pool:            newEndpointPool(endpoints, o.strategy, logger),
		httpClient:      httpClient,
		retry:           o.retry,
		limiter:         o.limiter,
		metrics:         o.metrics,
		maxResponseSize: o.maxResponseSize,
		logger:          logger,
	}

	if o.cacheSize > 0 {
		cache, err := lru.New[cacheKey, []byte](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create outcome cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *types.RPCError `json:"error"`
}

// CallRaw sends method with params and returns the raw result. A JSON-RPC
// error object is returned as *types.RPCError and never retried.
func (c *Client) CallRaw(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	startTime := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if params == nil {
		params = []any{}
	}
	id := c.nextID.Add(1)
	body, err := codec.Encode(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var result json.RawMessage
	err = retry(ctx, c.retry, func(attempt int) error {
		e := c.pool.pick()
		if attempt > 1 {
			c.metrics.retried(e.url)
		}

		attemptStart := time.Now()
		res, err := c.post(ctx, e.url, body)
		took := time.Since(attemptStart)

		var rpcErr *types.RPCError
		switch {
		case err == nil, errors.As(err, &rpcErr):
			e.metrics.recordSuccess(took)
		default:
			e.metrics.recordFailure(err, took)
			c.logger.Debug("rpc attempt failed",
				zap.String("method", method),
				zap.String("endpoint", e.url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if !e.metrics.healthy() {
				c.logger.Warn("endpoint marked unhealthy", zap.String("endpoint", e.url))
			}
		}

		result = res
		return err
	})

	outcome := outcomeSuccess
	var rpcErr *types.RPCError
	switch {
	case errors.As(err, &rpcErr):
		outcome = outcomeRPCError
	case err != nil:
		outcome = outcomeTransportError
	}
	c.metrics.observe(method, outcome, time.Since(startTime))

	c.logger.Debug("rpc call completed",
		zap.String("method", method),
		zap.Uint64("id", id),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(startTime)))

	if err != nil {
		return nil, err
	}
	return result, nil
}

// post performs one HTTP round trip
func (c *Client) post(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("request to %s failed: %w", endpoint, err)}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	var rpcResp rpcResponse
	if decodeErr := codec.DecodeInto(respBody, &rpcResp); decodeErr != nil || (rpcResp.Error == nil && rpcResp.Result == nil) {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 256)}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &transportError{err: httpErr}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, httpErr
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
		}
		return nil, errors.New("response carries neither result nor error")
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Endpoints reports the health of every configured endpoint
func (c *Client) Endpoints() []EndpointStatus {
	return c.pool.statuses()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
