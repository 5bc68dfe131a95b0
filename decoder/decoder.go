package decoder

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/near-commons/near-rpc-go/types"
	"go.uber.org/zap"
)

// KeyType is the curve tag that prefixes borsh public keys and signatures
type KeyType uint8

const (
	KeyTypeED25519   KeyType = 0
	KeyTypeSECP256K1 KeyType = 1
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeED25519:
		return "ed25519"
	case KeyTypeSECP256K1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

func (k KeyType) publicKeyLen() (int, error) {
	switch k {
	case KeyTypeED25519:
		return 32, nil
	case KeyTypeSECP256K1:
		return 64, nil
	default:
		return 0, fmt.Errorf("unknown key type %d", uint8(k))
	}
}

func (k KeyType) signatureLen() (int, error) {
	switch k {
	case KeyTypeED25519:
		return 64, nil
	case KeyTypeSECP256K1:
		return 65, nil
	default:
		return 0, fmt.Errorf("unknown key type %d", uint8(k))
	}
}

// PublicKey is a typed public key, printed as "<curve>:<base58>"
type PublicKey struct {
	Type KeyType
	Data []byte
}

func (p PublicKey) String() string {
	return p.Type.String() + ":" + base58.Encode(p.Data)
}

// Transaction layout versions. V1 is prefixed with a 0x01 byte, which can
// never start a V0 transaction since signer ids are at least 2 bytes long.
const (
	TransactionV0 uint8 = 0
	TransactionV1 uint8 = 1
)

const priorityFeeLen = 8

// SignedTransactionHeader holds the fields of a signed transaction that can
// be read without knowing the action schema
type SignedTransactionHeader struct {
	Version     uint8
	SignerID    types.AccountID
	PublicKey   PublicKey
	Nonce       uint64
	ReceiverID  types.AccountID
	BlockHash   types.CryptoHash
	ActionCount uint32
	// PriorityFee is only carried by V1 transactions
	PriorityFee uint64
	Signature   PublicKey
	// Hash is sha256 of the borsh encoded transaction, i.e. the blob minus
	// the trailing signature
	Hash types.CryptoHash
}

// DecodeSignedTransaction parses the header and trailing signature of a
// borsh encoded signed transaction and computes its hash
func DecodeSignedTransaction(blob []byte) (*SignedTransactionHeader, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty signed transaction")
	}

	r := newBorshReader(blob)
	header := &SignedTransactionHeader{Version: TransactionV0}
	if blob[0] == TransactionV1 {
		header.Version = TransactionV1
		r.offset = 1
	}

	signer, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("reading signer id: %w", err)
	}
	if header.SignerID, err = types.ParseAccountID(signer); err != nil {
		return nil, fmt.Errorf("reading signer id: %w", err)
	}

	if header.PublicKey, err = readPublicKey(r); err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	if header.Nonce, err = r.readU64(); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}

	receiver, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("reading receiver id: %w", err)
	}
	if header.ReceiverID, err = types.ParseAccountID(receiver); err != nil {
		return nil, fmt.Errorf("reading receiver id: %w", err)
	}

	blockHash, err := r.readBytes(types.CryptoHashLength)
	if err != nil {
		return nil, fmt.Errorf("reading block hash: %w", err)
	}
	copy(header.BlockHash[:], blockHash)

	if header.ActionCount, err = r.readU32(); err != nil {
		return nil, fmt.Errorf("reading action count: %w", err)
	}

	// The signature is produced by the signer key, so its curve matches
	sigLen, err := header.PublicKey.Type.signatureLen()
	if err != nil {
		return nil, err
	}
	sigStart := len(blob) - 1 - sigLen
	if sigStart < r.offset {
		return nil, fmt.Errorf("reading signature: %w", errUnexpectedEOF)
	}

	// actions sit between the header and the priority fee (V1) or signature
	actionsEnd := sigStart
	if header.Version == TransactionV1 {
		actionsEnd = sigStart - priorityFeeLen
		if actionsEnd < r.offset {
			return nil, fmt.Errorf("reading priority fee: %w", errUnexpectedEOF)
		}
		feeReader := newBorshReader(blob[actionsEnd:sigStart])
		header.PriorityFee, _ = feeReader.readU64()
	}
	if header.ActionCount == 0 && actionsEnd != r.offset {
		return nil, fmt.Errorf("%d trailing bytes after a transaction without actions", actionsEnd-r.offset)
	}
	if header.ActionCount > 0 && actionsEnd == r.offset {
		return nil, fmt.Errorf("transaction declares %d actions but carries none", header.ActionCount)
	}

	sigReader := newBorshReader(blob[sigStart:])
	sigType, _ := sigReader.readU8()
	if KeyType(sigType) != header.PublicKey.Type {
		return nil, fmt.Errorf("signature type %s does not match public key type %s", KeyType(sigType), header.PublicKey.Type)
	}
	sig, _ := sigReader.readBytes(sigLen)
	header.Signature = PublicKey{Type: KeyType(sigType), Data: sig}

	header.Hash = sha256.Sum256(blob[:sigStart])
	return header, nil
}

func readPublicKey(r *borshReader) (PublicKey, error) {
	keyType, err := r.readU8()
	if err != nil {
		return PublicKey{}, err
	}
	keyLen, err := KeyType(keyType).publicKeyLen()
	if err != nil {
		return PublicKey{}, err
	}
	data, err := r.readBytes(keyLen)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{Type: KeyType(keyType), Data: data}, nil
}

// Decoder wraps the decoding helpers with logging for tooling
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a new signed transaction decoder
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// DecodeSignedTransactionFromBase64 decodes the base64 form used on the wire
func (d *Decoder) DecodeSignedTransactionFromBase64(encoded string) (*SignedTransactionHeader, error) {
	tx, err := types.SignedTransactionFromBase64(encoded)
	if err != nil {
		return nil, err
	}
	return d.DecodeSignedTransaction(tx)
}

// DecodeSignedTransaction decodes raw borsh bytes
func (d *Decoder) DecodeSignedTransaction(tx types.SignedTransaction) (*SignedTransactionHeader, error) {
	header, err := DecodeSignedTransaction(tx)
	if err != nil {
		d.logger.Debug("failed to decode signed transaction",
			zap.Int("size", len(tx)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}

	d.logger.Debug("decoded signed transaction",
		zap.Stringer("hash", header.Hash),
		zap.Stringer("signer_id", header.SignerID),
		zap.Uint64("nonce", header.Nonce),
		zap.Uint32("action_count", header.ActionCount))
	return header, nil
}
