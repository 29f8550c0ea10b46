package ftp

import (
	"fmt"
	"net"

	"github.com/deweykai/uftp/fec"
	"go.uber.org/zap"
)

// Client issues requests to one server. Calls must not overlap.
type Client struct {
	m     Messenger
	to    net.Addr
	codec *fec.Codec
	log   *zap.Logger
}

type ClientOption func(*Client)

// WithFEC makes GET and PUT transfer file payloads in fec envelopes.
func WithFEC(c *fec.Codec) ClientOption {
	return func(cl *Client) { cl.codec = c }
}

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(cl *Client) { cl.log = l }
}

// NewClient returns a client talking through m to the server at to. to may
// be nil when m is bound to a connected channel.
func NewClient(m Messenger, to net.Addr, opts ...ClientOption) *Client {
	c := &Client{m: m, to: to, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) command(op Command) Command {
	if c.codec != nil && (op == CmdGet || op == CmdPut) {
		return op | FlagFEC
	}
	return op
}

func (c *Client) send(what string, msg []byte) error {
	if _, err := c.m.SendData(msg, c.to); err != nil {
		return fmt.Errorf("ftp: send %s: %w", what, err)
	}
	return nil
}

func (c *Client) recv(what string) ([]byte, error) {
	msg, _, err := c.m.RecvData()
	if err != nil {
		return nil, fmt.Errorf("ftp: receive %s: %w", what, err)
	}
	return msg, nil
}

func (c *Client) status(op Command) error {
	msg, err := c.recv("status")
	if err != nil {
		return err
	}
	v, err := decodeInt32(msg)
	if err != nil {
		return err
	}
	switch Status(v) {
	case StatusOK:
		return nil
	case StatusError:
		return fmt.Errorf("%s: %w", op, ErrRemote)
	}
	return fmt.Errorf("%w: status %d", ErrProtocol, v)
}

// request sends a command and its arguments and waits for the status.
func (c *Client) request(op Command, args ...[]byte) error {
	cmd := c.command(op)
	c.log.Debug("request", zap.Stringer("cmd", cmd))
	if err := c.send("command", encodeInt32(int32(cmd))); err != nil {
		return err
	}
	for _, a := range args {
		if err := c.send("argument", a); err != nil {
			return err
		}
	}
	return c.status(cmd)
}

func (c *Client) Get(name string) ([]byte, error) {
	if err := c.request(CmdGet, encodeText(name)); err != nil {
		return nil, err
	}
	data, err := c.recv("file")
	if err != nil {
		return nil, err
	}
	if c.codec == nil {
		return data, nil
	}
	out, repaired, err := c.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("ftp: GET %q: %w", name, err)
	}
	if repaired > 0 {
		c.log.Info("repaired shards", zap.String("file", name), zap.Int("shards", repaired))
	}
	return out, nil
}

func (c *Client) Put(name string, data []byte) error {
	if c.codec != nil {
		enc, err := c.codec.Encode(data)
		if err != nil {
			return err
		}
		data = enc
	}
	return c.request(CmdPut, encodeText(name), data)
}

func (c *Client) Delete(name string) error {
	return c.request(CmdDelete, encodeText(name))
}

// List returns the server's listing, one file per line.
func (c *Client) List() (string, error) {
	if err := c.request(CmdList); err != nil {
		return "", err
	}
	data, err := c.recv("listing")
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

// Exit ends the server session.
func (c *Client) Exit() error {
	return c.request(CmdExit)
}
