// Package storagekey derives the hashed storage keys a parachain uses for its
// plain values and Blake2_128Concat maps, so exported state records can be
// matched by prefix.
package storagekey

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/luxfi/geth/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	// HashSize is the byte length of every Twox128 and Blake2_128 digest.
	HashSize = 16

	// PrefixLen is the length in hex characters, 0x included, of a
	// module+item prefix.
	PrefixLen = 2 + 4*HashSize
)

// Twox128 is the 128-bit xxhash used for module and item names: xxh64 with
// seed 0 followed by xxh64 with seed 1, both little-endian.
func Twox128(data []byte) []byte {
	out := make([]byte, HashSize)
	for seed := uint64(0); seed < 2; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

// Blake2128 is blake2b with a 16 byte digest.
func Blake2128(data []byte) []byte {
	h, err := blake2b.New(HashSize, nil)
	if err != nil {
		// only returned for invalid sizes or keys
		panic(err)
	}
	h.Write(data)
	return h.Sum(nil)
}

// Blake2128Concat returns Blake2128(data) followed by data itself.
func Blake2128Concat(data []byte) []byte {
	out := make([]byte, 0, HashSize+len(data))
	out = append(out, Blake2128(data)...)
	return append(out, data...)
}

func prefix(module, item string) []byte {
	out := make([]byte, 0, 2*HashSize)
	out = append(out, Twox128([]byte(module))...)
	return append(out, Twox128([]byte(item))...)
}

// Encode returns the key of a plain storage value, which is also the prefix
// shared by every entry of a map stored under module/item.
func Encode(module, item string) string {
	return hexutil.Encode(prefix(module, item))
}

// EncodeBlake128MapKey returns the full key of a Blake2_128Concat map entry.
func EncodeBlake128MapKey(module, item string, mapKey []byte) string {
	return hexutil.Encode(append(prefix(module, item), Blake2128Concat(mapKey)...))
}

// EncodeBlake128DoubleMapKey returns the full key of a double map entry whose
// two keys are both Blake2_128Concat hashed.
func EncodeBlake128DoubleMapKey(module, item string, key1, key2 []byte) string {
	out := prefix(module, item)
	out = append(out, Blake2128Concat(key1)...)
	out = append(out, Blake2128Concat(key2)...)
	return hexutil.Encode(out)
}

// Blake128ConcatSuffix is the hex encoding, without 0x, of the part of a map
// key that follows the module+item prefix.
func Blake128ConcatSuffix(mapKey []byte) string {
	return hexutil.Encode(Blake2128Concat(mapKey))[2:]
}

// DecodeBlake128MapKey recovers the raw map key from a full Blake2_128Concat
// key under the given prefix. ok is false when key is not under prefix or is
// too short to hold a hash.
func DecodeBlake128MapKey(prefix, key string) (mapKey []byte, ok bool) {
	if !strings.HasPrefix(key, prefix) {
		return nil, false
	}
	rest := key[len(prefix):]
	if len(rest) < 2*HashSize {
		return nil, false
	}
	raw, err := hexutil.Decode("0x" + rest[2*HashSize:])
	if err != nil {
		return nil, false
	}
	return raw, true
}

// DecodeBlake128DoubleMapKey splits the two raw keys of a double map entry.
// The first key must have a fixed size of key1Len bytes.
func DecodeBlake128DoubleMapKey(prefix, key string, key1Len int) (key1, key2 []byte, ok bool) {
	rest, ok := DecodeBlake128MapKey(prefix, key)
	if !ok || len(rest) < key1Len+HashSize {
		return nil, nil, false
	}
	return rest[:key1Len], rest[key1Len+HashSize:], true
}
