// Package methods defines the typed NEAR JSON-RPC methods.
//
// Every method is a request type that knows its method name, how to encode
// its positional params, and which response and error types the node answers
// with. The set of methods is closed: Method carries unexported methods, so
// only this package can implement it. Call dispatches any of them through a
// Caller without method specific branching.
package methods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/types"
)

// Caller sends a single JSON-RPC call and returns the raw result. A
// server-reported failure must be returned as a *types.RPCError.
type Caller interface {
	CallRaw(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// Method is a typed RPC method answering with an R
type Method[R any] interface {
	// MethodName is the name the node registers the method under
	MethodName() string
	// Params encodes the positional params, failing with *EncodingError
	Params() ([]any, error)

	decodeResponse(raw json.RawMessage) (*R, error)
	decodeError(rpcErr *types.RPCError) error
}

// EncodingError reports a request whose params cannot be encoded. It is
// returned before any call is made.
type EncodingError struct {
	Method string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding params for %s: %v", e.Method, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Call encodes m, sends it through c and decodes the typed response. Server
// errors are mapped through the method's error type; every other failure is
// returned unchanged.
func Call[R any](ctx context.Context, c Caller, m Method[R]) (*R, error) {
	params, err := m.Params()
	if err != nil {
		return nil, err
	}

	raw, err := c.CallRaw(ctx, m.MethodName(), params)
	if err != nil {
		var rpcErr *types.RPCError
		if errors.As(err, &rpcErr) {
			return nil, m.decodeError(rpcErr)
		}
		return nil, err
	}

	return m.decodeResponse(raw)
}

func decodeResult[R any](method string, raw json.RawMessage) (*R, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	out, err := codec.Decode[R](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}
