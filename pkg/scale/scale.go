// Package scale holds the handful of SCALE codec helpers the state
// manipulators need. Records are otherwise treated as opaque bytes.
package scale

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	// ErrShortInput is returned when a buffer ends before the value it encodes.
	ErrShortInput = errors.New("scale: short input")

	// ErrCompactOverflow is returned for compact integers wider than 64 bits.
	ErrCompactOverflow = errors.New("scale: compact integer overflows uint64")
)

// EncodeCompact encodes n as a SCALE compact integer.
func EncodeCompact(n uint64) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n) << 2}
	case n < 1<<14:
		v := uint16(n)<<2 | 0b01
		return binary.LittleEndian.AppendUint16(nil, v)
	case n < 1<<30:
		v := uint32(n)<<2 | 0b10
		return binary.LittleEndian.AppendUint32(nil, v)
	}
	raw := binary.LittleEndian.AppendUint64(nil, n)
	size := len(raw)
	for size > 4 && raw[size-1] == 0 {
		size--
	}
	return append([]byte{byte(size-4)<<2 | 0b11}, raw[:size]...)
}

// DecodeCompact decodes a SCALE compact integer at the start of b and
// returns it with the number of bytes it occupied.
func DecodeCompact(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrShortInput
	}
	switch b[0] & 0b11 {
	case 0b00:
		return uint64(b[0] >> 2), 1, nil
	case 0b01:
		if len(b) < 2 {
			return 0, 0, ErrShortInput
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case 0b10:
		if len(b) < 4 {
			return 0, 0, ErrShortInput
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	}
	size := int(b[0]>>2) + 4
	if size > 8 {
		return 0, 0, ErrCompactOverflow
	}
	if len(b) < 1+size {
		return 0, 0, ErrShortInput
	}
	var buf [8]byte
	copy(buf[:], b[1:1+size])
	return binary.LittleEndian.Uint64(buf[:]), 1 + size, nil
}

// U32 reads a little-endian u32 at offset.
func U32(b []byte, offset int) (uint32, error) {
	if len(b) < offset+4 {
		return 0, ErrShortInput
	}
	return binary.LittleEndian.Uint32(b[offset:]), nil
}

// PutU32 returns v as 4 little-endian bytes.
func PutU32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// U128 reads a little-endian u128 at offset.
func U128(b []byte, offset int) (*uint256.Int, error) {
	if len(b) < offset+16 {
		return nil, ErrShortInput
	}
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[15-i] = b[offset+i]
	}
	return new(uint256.Int).SetBytes(be[:]), nil
}

// PutU128 returns the low 128 bits of v as 16 little-endian bytes.
func PutU128(v *uint256.Int) []byte {
	be := v.Bytes32()
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = be[31-i]
	}
	return out
}

// EncodeAccounts encodes a Vec<AccountId20>.
func EncodeAccounts(accounts []common.Address) []byte {
	out := EncodeCompact(uint64(len(accounts)))
	for _, a := range accounts {
		out = append(out, a.Bytes()...)
	}
	return out
}

// DecodeAccounts decodes a Vec<AccountId20>.
func DecodeAccounts(b []byte) ([]common.Address, error) {
	n, size, err := DecodeCompact(b)
	if err != nil {
		return nil, err
	}
	body := b[size:]
	if n > uint64(len(body))/common.AddressLength {
		return nil, fmt.Errorf("%w: %d accounts do not fit in %d bytes", ErrShortInput, n, len(body))
	}
	accounts := make([]common.Address, n)
	for i := range accounts {
		accounts[i] = common.BytesToAddress(body[i*common.AddressLength : (i+1)*common.AddressLength])
	}
	return accounts, nil
}
