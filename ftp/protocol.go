// Package ftp is a small file-access protocol carried one message at a time
// over a reliable message transport.
//
// Every step is its own message. A command is a 4-byte little-endian int32,
// names and listings are NUL-terminated text, and every request is answered
// with a 4-byte status:
//
//	GET     cmd, name         -> status [, file]
//	PUT     cmd, name, file   -> status
//	DELETE  cmd, name         -> status
//	LS      cmd               -> status [, listing]
//	EXIT    cmd               -> status, session ends
//
// GET and PUT may set FlagFEC, in which case the file message is a fec
// envelope.
package ftp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
)

type Command int32

const (
	CmdGet    Command = 0
	CmdPut    Command = 1
	CmdDelete Command = 2
	CmdList   Command = 3
	CmdExit   Command = 4

	// FlagFEC marks a file payload wrapped in a fec envelope.
	FlagFEC Command = 0x100
)

func (c Command) Op() Command { return c &^ FlagFEC }
func (c Command) FEC() bool   { return c&FlagFEC != 0 }

func (c Command) String() string {
	var s string
	switch c.Op() {
	case CmdGet:
		s = "GET"
	case CmdPut:
		s = "PUT"
	case CmdDelete:
		s = "DELETE"
	case CmdList:
		s = "LS"
	case CmdExit:
		s = "EXIT"
	default:
		return fmt.Sprintf("Command(%d)", int32(c))
	}
	if c.FEC() {
		s += "+FEC"
	}
	return s
}

type Status int32

const (
	StatusOK    Status = 0
	StatusError Status = 1
)

// NoFiles is the listing of a directory without regular files.
const NoFiles = "No files found\n"

var (
	// ErrRemote is returned when the server answers StatusError.
	ErrRemote = errors.New("ftp: server reported an error")
	// ErrProtocol marks a message that does not fit the current step.
	ErrProtocol = errors.New("ftp: protocol violation")
	// ErrBadName is returned for file names that would leave the root.
	ErrBadName = errors.New("ftp: invalid file name")
)

// Messenger sends and receives whole messages. *rdt.Endpoint implements it.
type Messenger interface {
	SendData(msg []byte, to net.Addr) (int, error)
	RecvData() ([]byte, net.Addr, error)
}

func encodeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func decodeInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: %d-byte integer message", ErrProtocol, len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func encodeText(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// decodeText accepts text up to the first NUL. A missing terminator is
// tolerated.
func decodeText(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// ValidName reports whether name refers to a file directly inside the
// served directory.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}
