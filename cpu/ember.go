package cpu

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EmberExtension is the canonical extension for a compiled word stream.
const EmberExtension = ".ember"

// EncodeEmber packs words into the big-endian byte layout an .ember file
// uses on disk.
func EncodeEmber(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(out[i*2:], w)
	}
	return out
}

// DecodeEmber unpacks an .ember file's bytes into words. An odd-length
// input is rejected.
func DecodeEmber(raw []byte) ([]uint16, error) {
	if len(raw)%2 != 0 {
		return nil, errors.Errorf("ember file has odd length %d", len(raw))
	}
	words := make([]uint16, len(raw)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return words, nil
}
