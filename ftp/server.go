package ftp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deweykai/uftp/fec"
	"github.com/deweykai/uftp/rdt"
	"go.uber.org/zap"
)

// Server answers requests for the regular files directly inside root.
type Server struct {
	m     Messenger
	root  string
	codec *fec.Codec
	log   *zap.Logger
}

type ServerOption func(*Server)

// WithServerFEC sets the codec used for FEC-flagged GET responses. PUT
// envelopes describe themselves and decode with any codec.
func WithServerFEC(c *fec.Codec) ServerOption {
	return func(s *Server) { s.codec = c }
}

func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

func NewServer(m Messenger, root string, opts ...ServerOption) (*Server, error) {
	s := &Server{m: m, root: root, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		c, err := fec.New(fec.DefaultDataShards, fec.DefaultParityShards)
		if err != nil {
			return nil, err
		}
		s.codec = c
	}
	return s, nil
}

// Serve runs sessions until the channel fails.
func (s *Server) Serve() error {
	for {
		if err := s.ServeSession(); err != nil {
			return err
		}
	}
}

// ServeSession handles commands until a client sends EXIT. Failed
// transfers are logged and skipped; only a broken channel is returned.
func (s *Server) ServeSession() error {
	for {
		msg, peer, err := s.m.RecvData()
		if err != nil {
			if errors.Is(err, rdt.ErrChannel) {
				return err
			}
			s.log.Debug("no command", zap.Error(err))
			continue
		}
		v, err := decodeInt32(msg)
		if err != nil {
			s.log.Warn("bad command", zap.Error(err), zap.Stringer("peer", peer))
			continue
		}
		cmd := Command(v)
		s.log.Info("command", zap.Stringer("cmd", cmd), zap.Stringer("peer", peer))

		switch cmd.Op() {
		case CmdGet:
			err = s.handleGet(cmd, peer)
		case CmdPut:
			err = s.handlePut(cmd, peer)
		case CmdDelete:
			err = s.handleDelete(peer)
		case CmdList:
			err = s.handleList(peer)
		case CmdExit:
			return s.reply(StatusOK, peer)
		default:
			s.log.Warn("unknown command", zap.Stringer("cmd", cmd))
			err = s.reply(StatusError, peer)
		}
		if err != nil {
			if errors.Is(err, rdt.ErrChannel) {
				return err
			}
			s.log.Warn("command failed", zap.Stringer("cmd", cmd), zap.Error(err))
		}
	}
}

func (s *Server) reply(st Status, peer net.Addr) error {
	if _, err := s.m.SendData(encodeInt32(int32(st)), peer); err != nil {
		return fmt.Errorf("ftp: send status: %w", err)
	}
	return nil
}

// fail answers StatusError and returns cause, or the send error if the
// status could not be delivered.
func (s *Server) fail(peer net.Addr, cause error) error {
	if err := s.reply(StatusError, peer); err != nil {
		return err
	}
	return cause
}

func (s *Server) recvName() (string, error) {
	msg, _, err := s.m.RecvData()
	if err != nil {
		return "", fmt.Errorf("ftp: receive name: %w", err)
	}
	name := decodeText(msg)
	return name, ValidName(name)
}

func (s *Server) path(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Server) handleGet(cmd Command, peer net.Addr) error {
	name, err := s.recvName()
	if err != nil {
		return s.fail(peer, err)
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return s.fail(peer, err)
	}
	if cmd.FEC() {
		if data, err = s.codec.Encode(data); err != nil {
			return s.fail(peer, err)
		}
	}
	if err := s.reply(StatusOK, peer); err != nil {
		return err
	}
	s.log.Info("sending file", zap.String("file", name), zap.Int("bytes", len(data)))
	if _, err := s.m.SendData(data, peer); err != nil {
		return fmt.Errorf("ftp: send %q: %w", name, err)
	}
	return nil
}

func (s *Server) handlePut(cmd Command, peer net.Addr) error {
	name, nameErr := s.recvName()
	if nameErr != nil && !errors.Is(nameErr, ErrBadName) {
		return s.fail(peer, nameErr)
	}
	data, _, err := s.m.RecvData()
	if err != nil {
		return s.fail(peer, fmt.Errorf("ftp: receive file: %w", err))
	}
	if nameErr != nil {
		return s.fail(peer, nameErr)
	}
	if cmd.FEC() {
		out, repaired, err := s.codec.Decode(data)
		if err != nil {
			return s.fail(peer, err)
		}
		if repaired > 0 {
			s.log.Info("repaired shards", zap.String("file", name), zap.Int("shards", repaired))
		}
		data = out
	}
	if err := os.WriteFile(s.path(name), data, 0644); err != nil {
		return s.fail(peer, err)
	}
	s.log.Info("received file", zap.String("file", name), zap.Int("bytes", len(data)))
	return s.reply(StatusOK, peer)
}

func (s *Server) handleDelete(peer net.Addr) error {
	name, err := s.recvName()
	if err != nil {
		return s.fail(peer, err)
	}
	if err := os.Remove(s.path(name)); err != nil {
		return s.fail(peer, err)
	}
	return s.reply(StatusOK, peer)
}

func (s *Server) handleList(peer net.Addr) error {
	listing, err := s.listing()
	if err != nil {
		return s.fail(peer, err)
	}
	if err := s.reply(StatusOK, peer); err != nil {
		return err
	}
	if _, err := s.m.SendData(encodeText(listing), peer); err != nil {
		return fmt.Errorf("ftp: send listing: %w", err)
	}
	return nil
}

// listing names the regular files in root, one per line.
func (s *Server) listing() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return NoFiles, nil
	}
	sort.Strings(names)
	return strings.Join(names, "\n") + "\n", nil
}
