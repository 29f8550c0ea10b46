package channel

import (
	"net"
)

// socketBuffer is the kernel buffer size requested for UDP sockets, large
// enough for a full window of frames.
const socketBuffer = 4 << 20

// ListenUDP binds an unconnected UDP socket on address.
func ListenUDP(address string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	tune(conn)
	return conn, nil
}

// DialUDP connects a UDP socket to address.
func DialUDP(address string) (*Connected, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	tune(conn)
	return FromConn(conn), nil
}

// tune enlarges the socket buffers. The kernel may cap the request; that is
// not an error.
func tune(conn *net.UDPConn) {
	_ = conn.SetReadBuffer(socketBuffer)
	_ = conn.SetWriteBuffer(socketBuffer)
}
