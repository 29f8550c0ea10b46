// Package channel provides the datagram endpoints transfers run over: UDP
// and SCION sockets, an in-memory pipe for tests, and a wrapper that drops
// datagrams according to a Gilbert-Elliott loss model.
package channel

import (
	"io"
	"net"
	"time"
)

// Datagram is an unconnected datagram endpoint with deadlines. It has the
// method set of net.PacketConn minus Close and LocalAddr.
type Datagram interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Connected adapts a connected socket to Datagram. Reads report the remote
// address; writes go to the remote address whatever addr is passed.
type Connected struct {
	conn net.Conn
}

func FromConn(c net.Conn) *Connected {
	return &Connected{conn: c}
}

func (c *Connected) ReadFrom(p []byte) (int, net.Addr, error) {
	n, err := c.conn.Read(p)
	if err != nil {
		return 0, nil, err
	}
	return n, c.conn.RemoteAddr(), nil
}

func (c *Connected) WriteTo(p []byte, _ net.Addr) (int, error) {
	return c.conn.Write(p)
}

func (c *Connected) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *Connected) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *Connected) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *Connected) LocalAddr() net.Addr                { return c.conn.LocalAddr() }
func (c *Connected) Close() error                       { return c.conn.Close() }

func closeDatagram(d Datagram) error {
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
