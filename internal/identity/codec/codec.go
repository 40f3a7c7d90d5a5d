// Package codec maps 32-bit sequential identity ids to 10-digit UINs and back.
//
// The mapping is a keyed unbalanced Feistel permutation over [0, 2^32), so
// consecutive sequence ids produce unrelated UINs. It resists enumeration and
// guessing only. Anyone holding the key can invert it; it is not encryption.
package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	dErrors "safeharbour/pkg/domain-errors"
)

const (
	// KeySize is the required key length in bytes.
	KeySize = 32
	// UINLength is the number of decimal digits in a UIN.
	UINLength = 10

	rounds   = 6
	highBits = 12
	lowBits  = 32 - highBits
	highMask = 1<<highBits - 1
	lowMask  = 1<<lowBits - 1
)

type Codec struct {
	key []byte
}

// New builds a codec. The key must be exactly KeySize bytes.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("uin codec key must be %d bytes, got %d", KeySize, len(key)))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Codec{key: k}, nil
}

// Encode permutes seq and renders it as a zero-padded 10-digit string.
func (c *Codec) Encode(seq uint32) string {
	return fmt.Sprintf("%0*d", UINLength, c.permute(seq))
}

// EncodeInt encodes a wider integer, rejecting values outside [0, 2^32).
func (c *Codec) EncodeInt(seq int64) (string, error) {
	if seq < 0 || seq > math.MaxUint32 {
		return "", dErrors.New(dErrors.CodeDomain, "sequential id is outside the 32-bit unsigned range")
	}
	return c.Encode(uint32(seq)), nil
}

// Decode parses a UIN and inverts the permutation.
func (c *Codec) Decode(uin string) (uint32, error) {
	if len(uin) != UINLength {
		return 0, dErrors.New(dErrors.CodeDomain, "uin must be exactly 10 digits")
	}
	for i := 0; i < len(uin); i++ {
		if uin[i] < '0' || uin[i] > '9' {
			return 0, dErrors.New(dErrors.CodeDomain, "uin must be exactly 10 digits")
		}
	}
	v, err := strconv.ParseUint(uin, 10, 64)
	if err != nil || v > math.MaxUint32 {
		return 0, dErrors.New(dErrors.CodeDomain, "uin is outside the 32-bit unsigned range")
	}
	return c.invert(uint32(v)), nil
}

// Each round moves the low 20 bits to the top and mixes them into the high
// 12 bits, which land at the bottom.
func (c *Codec) permute(x uint32) uint32 {
	for i := 0; i < rounds; i++ {
		hi := x >> lowBits
		lo := x & lowMask
		x = lo<<highBits | (hi^c.round(i, lo))&highMask
	}
	return x
}

func (c *Codec) invert(y uint32) uint32 {
	for i := rounds - 1; i >= 0; i-- {
		lo := y >> highBits
		hi := (y ^ c.round(i, lo)) & highMask
		y = hi<<lowBits | lo
	}
	return y
}

func (c *Codec) round(i int, half uint32) uint32 {
	var msg [5]byte
	msg[0] = byte(i)
	binary.BigEndian.PutUint32(msg[1:], half)
	mac := hmac.New(sha256.New, c.key)
	mac.Write(msg[:])
	return binary.BigEndian.Uint32(mac.Sum(nil))
}
