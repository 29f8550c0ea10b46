package channel

import (
	"context"
	"net"

	"github.com/netsec-ethz/scion-apps/pkg/pan"
)

// ListenSCION binds a SCION/UDP socket on port. The returned connection
// replies on the path the last datagram from a peer arrived on.
func ListenSCION(ctx context.Context, port int) (pan.ListenConn, error) {
	return pan.ListenUDP(ctx, &net.UDPAddr{Port: port}, nil)
}

// DialSCION connects to a SCION address of the form "ISD-AS,[IP]:port".
// A nil selector uses a PathSelector without a pinned path.
func DialSCION(ctx context.Context, address string, selector pan.Selector) (*Connected, error) {
	raddr, err := pan.ResolveUDPAddr(address)
	if err != nil {
		return nil, err
	}
	if selector == nil {
		selector = &PathSelector{}
	}
	conn, err := pan.DialUDP(ctx, nil, raddr, nil, selector)
	if err != nil {
		return nil, err
	}
	return FromConn(conn), nil
}
