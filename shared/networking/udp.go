package networking

import (
	"fmt"
	"net"
	"time"

	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// UDPEndpoint is a non-blocking, single-datagram UDP socket. It
// performs no reassembly and no reliability: every Recv call yields at
// most one datagram. Send rejects oversize payloads with
// ErrOversizeDatagram; Recv drops oversize incoming datagrams silently.
type UDPEndpoint struct {
	conn *net.UDPConn
}

// ListenUDP binds a UDP socket on addr ("host:port").
func ListenUDP(addr string) (*UDPEndpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("networking: resolve udp %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("networking: listen udp %s: %w", addr, err)
	}
	return &UDPEndpoint{conn: conn}, nil
}

// Close closes the socket.
func (u *UDPEndpoint) Close() error {
	return u.conn.Close()
}

// LocalAddr returns the bound local address.
func (u *UDPEndpoint) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Send writes payload to addr. Payloads larger than
// protocol.UDPMaxDatagram are rejected with ErrOversizeDatagram rather
// than sent, per the Framing contract.
func (u *UDPEndpoint) Send(payload []byte, addr *net.UDPAddr) error {
	if len(payload) > protocol.UDPMaxDatagram {
		return ErrOversizeDatagram
	}
	_ = u.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := u.conn.WriteToUDP(payload, addr)
	if err != nil {
		if isWouldBlock(err) {
			return ErrWouldBlock
		}
		return fmt.Errorf("networking: udp send: %w", err)
	}
	return nil
}

// Recv returns at most one datagram and its source address, or
// ErrWouldBlock if none is currently available. Datagrams larger than
// protocol.UDPMaxDatagram are dropped silently (not returned, not
// erred) and the caller should call Recv again.
func (u *UDPEndpoint) Recv() ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, protocol.UDPMaxDatagram+1)
	_ = u.conn.SetReadDeadline(time.Now().Add(pollDeadline))
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if isWouldBlock(err) {
			return nil, nil, ErrWouldBlock
		}
		return nil, nil, fmt.Errorf("networking: udp recv: %w", err)
	}
	if n > protocol.UDPMaxDatagram {
		return u.Recv()
	}
	return buf[:n], addr, nil
}

// Drain repeatedly calls Recv and invokes fn for each datagram until
// ErrWouldBlock.
func (u *UDPEndpoint) Drain(fn func(payload []byte, addr *net.UDPAddr)) {
	for {
		payload, addr, err := u.Recv()
		if err != nil {
			return
		}
		fn(payload, addr)
	}
}
