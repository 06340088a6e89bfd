package networking

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// TCPListener is a non-blocking TCP accept loop. Accept is polled once
// per pump call; it never blocks the caller.
type TCPListener struct {
	ln net.Listener
}

// ListenTCP binds a TCP listener on addr ("host:port").
func ListenTCP(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("networking: listen tcp %s: %w", addr, err)
	}
	return &TCPListener{ln: ln}, nil
}

// Accept returns a newly accepted TCPPeer, or ErrWouldBlock if no
// connection is pending. Call in a loop to drain the full backlog in
// one pump.
func (l *TCPListener) Accept() (*TCPPeer, error) {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	if dl, ok := l.ln.(deadliner); ok {
		_ = dl.SetDeadline(time.Now().Add(pollDeadline))
	}
	conn, err := l.ln.Accept()
	if err != nil {
		if isWouldBlock(err) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("networking: accept: %w", err)
	}
	return newTCPPeer(conn), nil
}

// Close closes the listening socket.
func (l *TCPListener) Close() error {
	return l.ln.Close()
}

// Addr returns the bound local address.
func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// TCPPeer is one non-blocking, length-framed TCP connection. Partial
// frames (header or body split across pumps) are buffered internally
// so RecvFrame can always be called again on the next pump.
type TCPPeer struct {
	conn net.Conn

	// headerBuf accumulates bytes toward a complete TCPHeaderSize
	// header; bodyBuf accumulates bytes toward the declared body
	// length once the header is known.
	headerBuf []byte
	bodyBuf   []byte
	bodyLen   int
	haveLen   bool
}

func newTCPPeer(conn net.Conn) *TCPPeer {
	return &TCPPeer{conn: conn}
}

// RemoteAddr returns the peer's remote address.
func (p *TCPPeer) RemoteAddr() net.Addr {
	return p.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (p *TCPPeer) Close() error {
	return p.conn.Close()
}

// SendFrame writes a complete length-prefixed frame. A 2-second write
// deadline bounds the call so a persistently full socket buffer
// surfaces as ErrWouldBlock rather than stalling the pump indefinitely.
// There is no partial-write buffering on the send side: a write that
// times out part-way also returns ErrWouldBlock, with part of the frame
// already sent, and SendFrame does not close the connection itself.
func (p *TCPPeer) SendFrame(body []byte) error {
	frame, err := protocol.EncodeFrame(body)
	if err != nil {
		return err
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = p.conn.Write(frame)
	if err != nil {
		if isWouldBlock(err) {
			return ErrWouldBlock
		}
		return fmt.Errorf("networking: tcp send: %w", err)
	}
	return nil
}

// RecvFrame returns at most one decoded frame body. It returns
// ErrWouldBlock when no further data is currently available,
// ErrConnectionReset when the peer has closed the connection, or a
// framing error (protocol.IsFramingError) for a malformed header.
func (p *TCPPeer) RecvFrame() ([]byte, error) {
	if !p.haveLen {
		if err := p.fillHeader(); err != nil {
			return nil, err
		}
		if !p.haveLen {
			return nil, ErrWouldBlock
		}
	}

	if err := p.fillBody(); err != nil {
		return nil, err
	}
	if len(p.bodyBuf) < p.bodyLen {
		return nil, ErrWouldBlock
	}

	body := p.bodyBuf
	p.bodyBuf = nil
	p.bodyLen = 0
	p.haveLen = false
	return body, nil
}

func (p *TCPPeer) fillHeader() error {
	need := protocol.TCPHeaderSize - len(p.headerBuf)
	buf := make([]byte, need)
	n, err := p.readNonBlocking(buf)
	if n > 0 {
		p.headerBuf = append(p.headerBuf, buf[:n]...)
	}
	if err != nil {
		return err
	}
	if len(p.headerBuf) == protocol.TCPHeaderSize {
		bodyLen, herr := protocol.DecodeHeader(p.headerBuf)
		p.headerBuf = nil
		if herr != nil {
			return herr
		}
		p.bodyLen = bodyLen
		p.haveLen = true
	}
	return nil
}

func (p *TCPPeer) fillBody() error {
	if p.bodyLen == 0 {
		p.bodyBuf = []byte{}
		return nil
	}
	need := p.bodyLen - len(p.bodyBuf)
	if need <= 0 {
		return nil
	}
	buf := make([]byte, need)
	n, err := p.readNonBlocking(buf)
	if n > 0 {
		p.bodyBuf = append(p.bodyBuf, buf[:n]...)
	}
	return err
}

// readNonBlocking reads whatever is immediately available into buf,
// using a deadline pollDeadline in the future to emulate non-blocking
// sockets (Go does not expose true non-blocking read on net.Conn).
func (p *TCPPeer) readNonBlocking(buf []byte) (int, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(pollDeadline))
	n, err := p.conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, ErrConnectionReset
		}
		if isWouldBlock(err) {
			// A timeout may still have delivered partial bytes.
			if n > 0 {
				return n, nil
			}
			return n, ErrWouldBlock
		}
		return n, fmt.Errorf("networking: tcp recv: %w", err)
	}
	return n, nil
}
