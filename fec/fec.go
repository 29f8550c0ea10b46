// Package fec wraps payloads in a Reed-Solomon envelope so that corrupted
// shards can be detected and rebuilt on the receiving side.
//
// Envelope layout, little-endian:
//
//	magic      uint32
//	data       uint16   number of data shards
//	parity     uint16   number of parity shards
//	shardSize  uint32
//	payloadLen uint32
//	crc        uint32 per shard (IEEE)
//	shards     data+parity shards of shardSize bytes
package fec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/reedsolomon"
)

// Shard counts used when none are configured.
const (
	DefaultDataShards   = 8
	DefaultParityShards = 2
)

const (
	magic      = 0x55464543
	headerSize = 16
	maxShards  = 256
)

var (
	ErrBadEnvelope   = errors.New("fec: malformed envelope")
	ErrUnrecoverable = errors.New("fec: too many corrupted shards")
)

type Codec struct {
	dataShards   int
	parityShards int
	encoder      reedsolomon.Encoder
}

func New(dataShards, parityShards int) (*Codec, error) {
	if dataShards < 1 || parityShards < 0 || dataShards+parityShards > maxShards {
		return nil, fmt.Errorf("fec: invalid shard counts %d+%d", dataShards, parityShards)
	}
	enc, err := newEncoder(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{
		dataShards:   dataShards,
		parityShards: parityShards,
		encoder:      enc,
	}, nil
}

func newEncoder(dataShards, parityShards int) (reedsolomon.Encoder, error) {
	if parityShards == 0 {
		return nil, nil
	}
	return reedsolomon.New(dataShards, parityShards)
}

func (c *Codec) Encode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return putHeader(make([]byte, headerSize), c.dataShards, c.parityShards, 0, 0), nil
	}
	shards, err := c.split(payload)
	if err != nil {
		return nil, err
	}
	if c.encoder != nil {
		if err := c.encoder.Encode(shards); err != nil {
			return nil, err
		}
	}
	shardSize := len(shards[0])
	total := len(shards)
	out := make([]byte, headerSize+4*total+shardSize*total)
	putHeader(out, c.dataShards, c.parityShards, shardSize, len(payload))
	body := out[headerSize+4*total:]
	for i, s := range shards {
		binary.LittleEndian.PutUint32(out[headerSize+4*i:], crc32.ChecksumIEEE(s))
		copy(body[i*shardSize:], s)
	}
	return out, nil
}

// split cuts a copy of payload into data shards and allocates empty parity
// shards.
func (c *Codec) split(payload []byte) ([][]byte, error) {
	if c.encoder != nil {
		return c.encoder.Split(append([]byte(nil), payload...))
	}
	shardSize := (len(payload) + c.dataShards - 1) / c.dataShards
	padded := make([]byte, shardSize*c.dataShards)
	copy(padded, payload)
	shards := make([][]byte, c.dataShards)
	for i := range shards {
		shards[i] = padded[i*shardSize : (i+1)*shardSize]
	}
	return shards, nil
}

// Decode verifies every shard of an envelope, rebuilds the corrupted ones
// and returns the payload along with the number of shards repaired.
func (c *Codec) Decode(envelope []byte) ([]byte, int, error) {
	if len(envelope) < headerSize || binary.LittleEndian.Uint32(envelope[0:4]) != magic {
		return nil, 0, ErrBadEnvelope
	}
	dataShards := int(binary.LittleEndian.Uint16(envelope[4:6]))
	parityShards := int(binary.LittleEndian.Uint16(envelope[6:8]))
	shardSize := int(binary.LittleEndian.Uint32(envelope[8:12]))
	payloadLen := int(binary.LittleEndian.Uint32(envelope[12:16]))
	total := dataShards + parityShards
	if payloadLen == 0 {
		return []byte{}, 0, nil
	}
	if dataShards < 1 || total > maxShards || shardSize < 1 || payloadLen > dataShards*shardSize {
		return nil, 0, fmt.Errorf("%w: %d+%d shards of %d bytes for %d bytes", ErrBadEnvelope, dataShards, parityShards, shardSize, payloadLen)
	}
	if len(envelope) != headerSize+4*total+shardSize*total {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrBadEnvelope, len(envelope))
	}

	body := envelope[headerSize+4*total:]
	shards := make([][]byte, total)
	repaired := 0
	for i := range shards {
		s := make([]byte, shardSize)
		copy(s, body[i*shardSize:(i+1)*shardSize])
		if crc32.ChecksumIEEE(s) != binary.LittleEndian.Uint32(envelope[headerSize+4*i:]) {
			repaired++
			continue
		}
		shards[i] = s
	}
	if repaired > parityShards {
		return nil, 0, fmt.Errorf("%w: %d of %d shards", ErrUnrecoverable, repaired, total)
	}
	if repaired > 0 {
		enc, err := c.encoderFor(dataShards, parityShards)
		if err != nil {
			return nil, 0, err
		}
		if err := enc.ReconstructData(shards); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnrecoverable, err)
		}
	}

	var out bytes.Buffer
	out.Grow(payloadLen)
	for _, s := range shards[:dataShards] {
		out.Write(s)
	}
	return out.Bytes()[:payloadLen], repaired, nil
}

func (c *Codec) encoderFor(dataShards, parityShards int) (reedsolomon.Encoder, error) {
	if dataShards == c.dataShards && parityShards == c.parityShards && c.encoder != nil {
		return c.encoder, nil
	}
	return reedsolomon.New(dataShards, parityShards)
}

func putHeader(b []byte, dataShards, parityShards, shardSize, payloadLen int) []byte {
	binary.LittleEndian.PutUint32(b[0:4], magic)
	binary.LittleEndian.PutUint16(b[4:6], uint16(dataShards))
	binary.LittleEndian.PutUint16(b[6:8], uint16(parityShards))
	binary.LittleEndian.PutUint32(b[8:12], uint32(shardSize))
	binary.LittleEndian.PutUint32(b[12:16], uint32(payloadLen))
	return b
}
