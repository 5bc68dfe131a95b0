package rpc

import (
	"github.com/near-commons/near-rpc-go/codec"
	"github.com/near-commons/near-rpc-go/decoder"
	"github.com/near-commons/near-rpc-go/types"
	"go.uber.org/zap"
)

// cacheKey identifies a status query independently of how the transaction
// was given
type cacheKey struct {
	method string
	hash   types.CryptoHash
	sender types.AccountID
}

func newCacheKey(method string, info types.TransactionInfo) (cacheKey, bool) {
	switch v := info.(type) {
	case types.TransactionID:
		return cacheKey{method: method, hash: v.Hash, sender: v.SenderAccountID}, true
	case types.FullTransaction:
		header, err := decoder.DecodeSignedTransaction(v.SignedTransaction)
		if err != nil {
			return cacheKey{}, false
		}
		return cacheKey{method: method, hash: header.Hash, sender: header.SignerID}, true
	default:
		return cacheKey{}, false
	}
}

// cachedOutcome decodes a stored FINAL outcome into a new R, so every caller
// owns what it gets back
func cachedOutcome[R any](c *Client, key cacheKey) (*R, bool) {
	if c.cache == nil {
		return nil, false
	}
	bz, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out, err := codec.Decode[R](bz)
	if err != nil {
		c.logger.Warn("dropping undecodable cached outcome", zap.String("method", key.method), zap.Error(err))
		c.cache.Remove(key)
		return nil, false
	}
	return out, true
}

// storeOutcome keeps outcomes that reached FINAL; anything earlier may still
// change on the node
func storeOutcome[R any](c *Client, key cacheKey, status types.TxExecutionStatus, out *R) {
	if c.cache == nil || status != types.TxExecutionStatusFinal {
		return
	}
	bz, err := codec.Encode(out)
	if err != nil {
		c.logger.Debug("not caching outcome", zap.String("method", key.method), zap.Error(err))
		return
	}
	c.cache.Add(key, bz)
}
