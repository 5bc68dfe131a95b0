package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/near-commons/near-rpc-go/decoder"
	"github.com/near-commons/near-rpc-go/internal/nodetest"
	"github.com/near-commons/near-rpc-go/types"
)

var fastRetry = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

var exampleHash = types.MustParseCryptoHash("B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq")

const exampleSender = types.AccountID("itranscend.near")

func exampleID() types.TransactionID {
	return types.TransactionID{Hash: exampleHash, SenderAccountID: exampleSender}
}

func newTestClient(t *testing.T, endpoint string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRetry(fastRetry)}, opts...)
	client, err := NewClient(endpoint, zap.NewNop(), opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsInvalidEndpoint(t *testing.T) {
	_, err := NewClient("localhost:3030", nil)
	require.Error(t, err)

	_, err = NewClient("http://localhost:3030", nil, WithFallbackEndpoints("ftp://example.org"))
	require.Error(t, err)
}

func TestTransactionStatusByID(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender, types.TxExecutionStatusExecuted)

	client := newTestClient(t, node.URL())
	out, err := client.TransactionStatus(context.Background(), exampleID())
	require.NoError(t, err)

	assert.Equal(t, exampleHash, out.TransactionOutcome.ID)
	assert.Equal(t, types.TxExecutionStatusExecuted, out.FinalExecutionStatus)
	assert.True(t, out.Status.IsSuccess())

	requests := node.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "tx", requests[0].Method)
	assert.JSONEq(t, `["B9aypWiMuiWR5kqzewL9eC96uZWA3qCMhLe67eBMWacq","itranscend.near"]`, string(requests[0].Params))
	assert.Equal(t, types.DefaultTxExecutionStatus, requests[0].Parsed.WaitUntil)
}

func TestTransactionStatusWithReceiptsBySignedTransaction(t *testing.T) {
	signed := nodetest.SignedTransfer("alice.near", "bob.near", 7, 1)
	header, err := decoder.DecodeSignedTransaction(signed)
	require.NoError(t, err)

	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(header.Hash, header.SignerID)

	client := newTestClient(t, node.URL())
	out, err := client.TransactionStatusWithReceipts(context.Background(), types.FullTransaction{SignedTransaction: signed})
	require.NoError(t, err)

	assert.Equal(t, header.Hash, out.TransactionOutcome.ID)
	require.Len(t, out.Receipts, 1)
	assert.Equal(t, out.TransactionOutcome.Outcome.ReceiptIDs[0], out.Receipts[0].ReceiptID)

	requests := node.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "EXPERIMENTAL_tx_status", requests[0].Method)
	assert.JSONEq(t, `["`+signed.Base64()+`"]`, string(requests[0].Params))
}

func TestTransactionStatusUnknownTransaction(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()

	client := newTestClient(t, node.URL())
	_, err := client.TransactionStatus(context.Background(), exampleID())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnknownTransaction)

	var txErr *types.TransactionError
	require.ErrorAs(t, err, &txErr)
	require.NotNil(t, txErr.TransactionHash)
	assert.Equal(t, exampleHash, *txErr.TransactionHash)

	// node errors are never retried
	assert.Len(t, node.Requests(), 1)
}

func TestTransactionStatusCachesFinalOutcomes(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender,
		types.TxExecutionStatusIncluded,
		types.TxExecutionStatusFinal,
	)

	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, node.URL(), WithMetrics(metrics))
	ctx := context.Background()

	out, err := client.TransactionStatus(ctx, exampleID())
	require.NoError(t, err)
	assert.Equal(t, types.TxExecutionStatusIncluded, out.FinalExecutionStatus)

	for i := 0; i < 3; i++ {
		out, err = client.TransactionStatus(ctx, exampleID())
		require.NoError(t, err)
		assert.Equal(t, types.TxExecutionStatusFinal, out.FinalExecutionStatus)
	}

	assert.Len(t, node.Requests(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("tx", outcomeCacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("tx", outcomeSuccess)))
}

func TestCachedOutcomesAreNotShared(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)

	client := newTestClient(t, node.URL())
	ctx := context.Background()

	first, err := client.TransactionStatus(ctx, exampleID())
	require.NoError(t, err)
	require.Len(t, first.ReceiptsOutcome, 1)
	first.Transaction.SignerID = "mallory.near"
	first.ReceiptsOutcome[0].Outcome.Logs = append(first.ReceiptsOutcome[0].Outcome.Logs, "tampered")
	first.ReceiptsOutcome = nil

	second, err := client.TransactionStatus(ctx, exampleID())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, exampleSender, second.Transaction.SignerID)
	require.Len(t, second.ReceiptsOutcome, 1)
	assert.NotContains(t, second.ReceiptsOutcome[0].Outcome.Logs, "tampered")

	withReceipts, err := client.TransactionStatusWithReceipts(ctx, exampleID())
	require.NoError(t, err)
	require.Len(t, withReceipts.Receipts, 1)
	receiptID := withReceipts.Receipts[0].ReceiptID
	withReceipts.Receipts[0].ReceiptID = types.CryptoHash{}
	withReceipts.Receipts = nil

	again, err := client.TransactionStatusWithReceipts(ctx, exampleID())
	require.NoError(t, err)
	require.Len(t, again.Receipts, 1)
	assert.Equal(t, receiptID, again.Receipts[0].ReceiptID)

	// one call per method reached the node
	assert.Len(t, node.Requests(), 2)
}

func TestTransactionStatusCacheDisabled(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)

	client := newTestClient(t, node.URL(), WithCacheSize(0))
	for i := 0; i < 2; i++ {
		_, err := client.TransactionStatus(context.Background(), exampleID())
		require.NoError(t, err)
	}
	assert.Len(t, node.Requests(), 2)
}

func TestCallRawRetriesServerErrors(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)
	node.FailNext(http.StatusBadGateway, http.StatusServiceUnavailable)

	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, node.URL(), WithMetrics(metrics))

	_, err := client.TransactionStatus(context.Background(), exampleID())
	require.NoError(t, err)
	assert.Len(t, node.Requests(), 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.retries.WithLabelValues(node.URL())))
}

func TestCallRawGivesUp(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.FailNext(http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError)

	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, node.URL(), WithMetrics(metrics))

	_, err := client.CallRaw(context.Background(), "tx", []any{exampleHash, exampleSender})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("tx", outcomeTransportError)))
}

func TestCallRawDoesNotRetryClientErrors(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.FailNext(http.StatusBadRequest)

	client := newTestClient(t, node.URL())
	_, err := client.CallRaw(context.Background(), "tx", []any{exampleHash, exampleSender})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Len(t, node.Requests(), 1)
}

func TestCallRawReturnsRPCError(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()

	client := newTestClient(t, node.URL())
	_, err := client.CallRaw(context.Background(), "block", []any{})

	var rpcErr *types.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, types.ErrorNameRequestValidation, rpcErr.Name)
	require.NotNil(t, rpcErr.Cause)
	assert.Equal(t, "METHOD_NOT_FOUND", rpcErr.Cause.Name)
}

func TestCallRawRequestEnvelope(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]json.RawMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(body["id"]) + `,"result":{"ok":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	for i := 0; i < 2; i++ {
		raw, err := client.CallRaw(context.Background(), "status", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
	}

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `"2.0"`, string(bodies[0]["jsonrpc"]))
	assert.JSONEq(t, `"status"`, string(bodies[0]["method"]))
	assert.JSONEq(t, `[]`, string(bodies[0]["params"]))
	assert.NotEqual(t, string(bodies[0]["id"]), string(bodies[1]["id"]))
}

func TestCallRawEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CallRaw(context.Background(), "tx", nil)
	require.Error(t, err)

	var rpcErr *types.RPCError
	assert.False(t, errors.As(err, &rpcErr))
}

func TestCallRawFailsOverToFallbackEndpoint(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)

	client := newTestClient(t, down.URL, WithFallbackEndpoints(node.URL()), WithCacheSize(0))
	for i := 0; i < 4; i++ {
		_, err := client.TransactionStatus(context.Background(), exampleID())
		require.NoError(t, err)
	}

	statuses := client.Endpoints()
	require.Len(t, statuses, 2)
	assert.Equal(t, down.URL, statuses[0].URL)
	assert.NotZero(t, statuses[0].FailedRequests)
	assert.NotEmpty(t, statuses[0].LastError)
	assert.Zero(t, statuses[1].FailedRequests)
	assert.Len(t, node.Requests(), 4)
}

func TestCallRawHonoursContext(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, node.URL())
	_, err := client.TransactionStatus(ctx, exampleID())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, node.Requests())
}

func TestCallRawRateLimited(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)

	client := newTestClient(t, node.URL(), WithRateLimit(1, 1), WithCacheSize(0))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.TransactionStatus(ctx, exampleID())
	require.NoError(t, err)

	// the second token is a full second away
	_, err = client.TransactionStatus(ctx, exampleID())
	require.Error(t, err)
	assert.Len(t, node.Requests(), 1)
}

func TestConcurrentCalls(t *testing.T) {
	node := nodetest.NewNode()
	defer node.Close()
	node.AddTransaction(exampleHash, exampleSender)

	client := newTestClient(t, node.URL(), WithCacheSize(0))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.TransactionStatusWithReceipts(context.Background(), exampleID())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, node.Requests(), 16)
}
