package rdt

import "fmt"

// chunks maps DATA frame ids 1..n onto PacketSize windows of a message
// buffer. Every access is range checked.
type chunks struct {
	buf []byte
	n   int32
}

// frameCount returns ceil(length / PacketSize).
func frameCount(length int) int32 {
	n := length / PacketSize
	if length%PacketSize != 0 {
		n++
	}
	return int32(n)
}

func newChunks(buf []byte) chunks {
	return chunks{buf: buf, n: frameCount(len(buf))}
}

func (c chunks) Count() int32 { return c.n }

func (c chunks) bounds(id int32) (int, int, error) {
	if id < 1 || id > c.n {
		return 0, 0, fmt.Errorf("rdt: chunk %d outside 1..%d", id, c.n)
	}
	lo := int(id-1) * PacketSize
	hi := lo + PacketSize
	if hi > len(c.buf) {
		hi = len(c.buf)
	}
	return lo, hi, nil
}

// Chunk returns the bytes of chunk id without padding.
func (c chunks) Chunk(id int32) ([]byte, error) {
	lo, hi, err := c.bounds(id)
	if err != nil {
		return nil, err
	}
	return c.buf[lo:hi], nil
}

// Fill copies payload into chunk id, truncated to the chunk length.
func (c chunks) Fill(id int32, payload []byte) error {
	lo, hi, err := c.bounds(id)
	if err != nil {
		return err
	}
	copy(c.buf[lo:hi], payload)
	return nil
}
