package rdt

import (
	"encoding/binary"
	"fmt"
)

// Wire constants.
const (
	// PacketSize is the payload capacity of START and DATA frames.
	PacketSize = 1024
	// HeaderSize is the size of the id and kind fields.
	HeaderSize = 8
	// MaxFrameSize is the largest datagram the codec produces.
	MaxFrameSize = HeaderSize + PacketSize
)

// Kind tags the frame variant.
type Kind int32

const (
	KindData  Kind = 0
	KindStart Kind = 1
	KindAck   Kind = 2
	KindEnd   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindStart:
		return "START"
	case KindAck:
		return "ACK"
	case KindEnd:
		return "END"
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

//	0                   1                   2                   3
//	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                         Frame ID (int32)                      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                           Kind (int32)                        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|       Body, START and DATA only (PacketSize bytes)            |
//	|   START: total length (int32) then zeros                      |
//	|   DATA:  payload, zero padded                                 |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// All integers are little-endian.

// Frame is one wire unit. Length is meaningful for START only, Data for DATA
// only. A decoded DATA frame always carries the full PacketSize slot.
type Frame struct {
	ID     int32
	Kind   Kind
	Length int32
	Data   []byte
}

// Start announces a message of the given length. It always has id 0.
func Start(length int32) Frame { return Frame{ID: 0, Kind: KindStart, Length: length} }

// Data carries chunk id of a message.
func Data(id int32, chunk []byte) Frame { return Frame{ID: id, Kind: KindData, Data: chunk} }

// Ack confirms frame id.
func Ack(id int32) Frame { return Frame{ID: id, Kind: KindAck} }

// End closes a message of n chunks; its id is n+1.
func End(id int32) Frame { return Frame{ID: id, Kind: KindEnd} }

// WireSize reports the encoded size of a frame of kind k.
func WireSize(k Kind) int {
	switch k {
	case KindStart, KindData:
		return MaxFrameSize
	default:
		return HeaderSize
	}
}

// MarshalBinary encodes f. DATA payloads shorter than PacketSize are padded
// with zeros.
func (f Frame) MarshalBinary() ([]byte, error) {
	var buf []byte
	switch f.Kind {
	case KindStart:
		if f.Length < 0 {
			return nil, fmt.Errorf("%w: negative START length %d", ErrMalformedFrame, f.Length)
		}
		buf = make([]byte, MaxFrameSize)
		binary.LittleEndian.PutUint32(buf[HeaderSize:HeaderSize+4], uint32(f.Length))
	case KindData:
		if len(f.Data) > PacketSize {
			return nil, fmt.Errorf("%w: DATA payload of %d bytes", ErrMalformedFrame, len(f.Data))
		}
		buf = make([]byte, MaxFrameSize)
		copy(buf[HeaderSize:], f.Data)
	case KindAck, KindEnd:
		buf = make([]byte, HeaderSize)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedFrame, int32(f.Kind))
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.ID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Kind))
	return buf, nil
}

// UnmarshalFrame decodes a datagram. The Data of a DATA frame aliases b.
func UnmarshalFrame(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(b))
	}
	f := Frame{
		ID:   int32(binary.LittleEndian.Uint32(b[0:4])),
		Kind: Kind(int32(binary.LittleEndian.Uint32(b[4:8]))),
	}
	switch f.Kind {
	case KindStart:
		if len(b) < MaxFrameSize {
			return Frame{}, fmt.Errorf("%w: short START (%d bytes)", ErrMalformedFrame, len(b))
		}
		f.Length = int32(binary.LittleEndian.Uint32(b[HeaderSize : HeaderSize+4]))
		if f.ID != 0 || f.Length < 0 {
			return Frame{}, fmt.Errorf("%w: START id %d length %d", ErrMalformedFrame, f.ID, f.Length)
		}
	case KindData:
		if len(b) < MaxFrameSize {
			return Frame{}, fmt.Errorf("%w: short DATA (%d bytes)", ErrMalformedFrame, len(b))
		}
		if f.ID < 1 {
			return Frame{}, fmt.Errorf("%w: DATA id %d", ErrMalformedFrame, f.ID)
		}
		f.Data = b[HeaderSize:MaxFrameSize]
	case KindEnd:
		if f.ID < 1 {
			return Frame{}, fmt.Errorf("%w: END id %d", ErrMalformedFrame, f.ID)
		}
	case KindAck:
		if f.ID < 0 {
			return Frame{}, fmt.Errorf("%w: ACK id %d", ErrMalformedFrame, f.ID)
		}
	default:
		return Frame{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedFrame, int32(f.Kind))
	}
	return f, nil
}

func (f Frame) String() string {
	if f.Kind == KindStart {
		return fmt.Sprintf("%s(%d, len=%d)", f.Kind, f.ID, f.Length)
	}
	return fmt.Sprintf("%s(%d)", f.Kind, f.ID)
}
