package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxBorshString bounds string lengths read from untrusted blobs
const maxBorshString = 1 << 16

var errUnexpectedEOF = errors.New("unexpected end of data")

// borshReader reads little-endian borsh primitives from a byte slice
type borshReader struct {
	data   []byte
	offset int
}

func newBorshReader(data []byte) *borshReader {
	return &borshReader{data: data}
}

func (r *borshReader) remaining() int {
	return len(r.data) - r.offset
}

func (r *borshReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, r.offset, errUnexpectedEOF)
	}
	out := r.data[r.offset : r.offset+n]
	r.offset += n
	return out, nil
}

func (r *borshReader) readU8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *borshReader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *borshReader) readU64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *borshReader) readString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	if n > maxBorshString {
		return "", fmt.Errorf("string length %d exceeds limit %d", n, maxBorshString)
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("string at offset %d is not valid utf-8", r.offset-int(n))
	}
	return string(b), nil
}
