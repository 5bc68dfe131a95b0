package nodetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/decoder"
	"github.com/near-commons/near-rpc-go/types"
)

// Request is a call the node received
type Request struct {
	Method string
	Params json.RawMessage
	Parsed types.TransactionStatusRequest
}

type transaction struct {
	sender   types.AccountID
	statuses []types.TxExecutionStatus
	served   int
}

// Node is a mock NEAR node answering tx and EXPERIMENTAL_tx_status
type Node struct {
	server *httptest.Server

	mu           sync.Mutex
	transactions map[types.CryptoHash]*transaction
	requests     []Request
	failures     []int
	timeouts     int
}

// NewNode starts a node; callers must Close it
func NewNode() *Node {
	n := &Node{transactions: make(map[types.CryptoHash]*transaction)}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	return n
}

func (n *Node) URL() string {
	return n.server.URL
}

func (n *Node) Close() {
	n.server.Close()
}

// AddTransaction registers a transaction. Each status query advances through
// statuses and then keeps reporting the last one.
func (n *Node) AddTransaction(hash types.CryptoHash, sender types.AccountID, statuses ...types.TxExecutionStatus) {
	if len(statuses) == 0 {
		statuses = []types.TxExecutionStatus{types.TxExecutionStatusFinal}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transactions[hash] = &transaction{sender: sender, statuses: statuses}
}

// FailNext makes the next calls answer with the given HTTP status codes
func (n *Node) FailNext(statusCodes ...int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, statusCodes...)
}

// TimeoutNext makes the next count status queries report TIMEOUT_ERROR
func (n *Node) TimeoutNext(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts += count
}

// Requests returns the calls received so far, including failed ones
func (n *Node) Requests() []Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Request(nil), n.requests...)
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *types.RPCError `json:"error,omitempty"`
}

func (n *Node) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req envelope
	if err := codec.DecodeInto(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	recorded := Request{Method: req.Method, Params: req.Params}
	if len(n.failures) > 0 {
		code := n.failures[0]
		n.failures = n.failures[1:]
		n.requests = append(n.requests, recorded)
		n.mu.Unlock()
		http.Error(w, http.StatusText(code), code)
		return
	}
	resp := response{JSONRPC: "2.0", ID: req.ID}
	resp.Result, resp.Error = n.dispatch(&recorded)
	n.requests = append(n.requests, recorded)
	n.mu.Unlock()

	bz, err := codec.Encode(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bz)
}

// dispatch runs with n.mu held
func (n *Node) dispatch(req *Request) (any, *types.RPCError) {
	if req.Method != "tx" && req.Method != "EXPERIMENTAL_tx_status" {
		return nil, &types.RPCError{
			Code:    -32601,
			Message: "Method not found",
			Name:    types.ErrorNameRequestValidation,
			Cause:   &types.ErrorCause{Name: "METHOD_NOT_FOUND", Info: mustJSON(map[string]string{"method_name": req.Method})},
		}
	}

	parsed, err := types.ParseTransactionStatusRequest(req.Params)
	if err != nil {
		return nil, parseError(err)
	}
	req.Parsed = parsed

	var (
		hash   types.CryptoHash
		sender types.AccountID
	)
	switch info := parsed.TransactionInfo.(type) {
	case types.FullTransaction:
		header, err := decoder.DecodeSignedTransaction(info.SignedTransaction)
		if err != nil {
			return nil, handlerError(types.TxErrInvalidTransaction, map[string]string{"context": err.Error()})
		}
		hash, sender = header.Hash, header.SignerID
	case types.TransactionID:
		hash, sender = info.Hash, info.SenderAccountID
	}

	if n.timeouts > 0 {
		n.timeouts--
		return nil, handlerError(types.TxErrTimeout, nil)
	}

	tx, ok := n.transactions[hash]
	if !ok || tx.sender != sender {
		return nil, handlerError(types.TxErrUnknownTransaction, map[string]types.CryptoHash{"requested_transaction_hash": hash})
	}

	status := tx.statuses[tx.served]
	if tx.served < len(tx.statuses)-1 {
		tx.served++
	}

	outcome := Outcome(hash, sender, status)
	if req.Method == "tx" {
		return outcome.FinalExecutionOutcomeView, nil
	}
	return outcome, nil
}

func handlerError(kind types.TransactionErrorKind, info any) *types.RPCError {
	rpcErr := &types.RPCError{
		Code:    -32000,
		Message: "Server error",
		Name:    types.ErrorNameHandler,
		Cause:   &types.ErrorCause{Name: string(kind)},
	}
	if info != nil {
		rpcErr.Cause.Info = mustJSON(info)
	}
	return rpcErr
}

func parseError(err error) *types.RPCError {
	return &types.RPCError{
		Code:    -32700,
		Message: "Parse error",
		Data:    mustJSON(err.Error()),
		Name:    types.ErrorNameRequestValidation,
		Cause:   &types.ErrorCause{Name: "PARSE_ERROR", Info: mustJSON(map[string]string{"error_message": err.Error()})},
	}
}

func mustJSON(v any) json.RawMessage {
	bz, err := codec.Encode(v)
	if err != nil {
		panic(fmt.Sprintf("nodetest: %v", err))
	}
	return bz
}
