package networking

import (
	"fmt"
	"net"
	"time"

	"github.com/Machine-builder/tiny-treads/pkg/logging"
	"github.com/Machine-builder/tiny-treads/shared/clock"
	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// ConnectionState is the client-side handshake state machine.
type ConnectionState int

const (
	// ConnectingA awaits INIT_TCP after the TCP socket connects.
	ConnectingA ConnectionState = iota
	// ConnectingB awaits INIT_FINAL, retransmitting INIT_UDP on timeout.
	ConnectingB
	// Ready means the handshake completed; packets flow both ways.
	Ready
	// Failed means the retry budget was exhausted without INIT_FINAL,
	// or the TCP connection was lost or failed to read.
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectingA:
		return "connecting-a"
	case ConnectingB:
		return "connecting-b"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClientPumpResult is returned by Client.Pump once per tick.
// ConnectionStatus is edge-triggered: +1 once on the tick the
// handshake completes, -1 once on the tick it fails or the TCP
// connection is lost, 0 otherwise.
type ClientPumpResult struct {
	TCPEvents        []protocol.Packet
	UDPEvents        []protocol.Packet
	Connected        bool
	ConnectionStatus int
}

// Client is the peer-side counterpart of Server: it owns a TCP
// connection and a UDP socket, drives the handshake state machine, and
// exposes decoded packets once Ready.
type Client struct {
	serverHost string
	tcpPort    int
	udpPort    int
	codec      *protocol.Codec
	clock      clock.Clock

	tcp *TCPPeer
	udp *UDPEndpoint

	state       ConnectionState
	clientID    protocol.ClientID
	retriesLeft int
	retryAt     time.Time
}

// NewClient constructs a Client targeting serverHost on the given TCP
// and UDP ports. Call Connect to begin the handshake.
func NewClient(serverHost string, tcpPort, udpPort int, codec *protocol.Codec, clk clock.Clock) *Client {
	return &Client{
		serverHost: serverHost,
		tcpPort:    tcpPort,
		udpPort:    udpPort,
		codec:      codec,
		clock:      clk,
		state:      ConnectingA,
	}
}

// Connect dials the server's TCP port and binds an ephemeral local UDP
// socket. It does not block on the handshake; call Pump to drive it.
func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.serverHost, c.tcpPort)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("networking: dial tcp %s: %w", addr, err)
	}
	c.tcp = newTCPPeer(conn)

	udp, err := ListenUDP(":0")
	if err != nil {
		c.tcp.Close()
		return err
	}
	c.udp = udp

	c.state = ConnectingA
	return nil
}

// Close closes both sockets.
func (c *Client) Close() error {
	var err error
	if c.tcp != nil {
		err = c.tcp.Close()
	}
	if c.udp != nil {
		if uerr := c.udp.Close(); err == nil {
			err = uerr
		}
	}
	return err
}

func (c *Client) serverUDPAddr() (*net.UDPAddr, error) {
	addr := fmt.Sprintf("%s:%d", c.serverHost, c.udpPort)
	return net.ResolveUDPAddr("udp", addr)
}

// Pump advances the handshake state machine and, once Ready, drains
// all currently available TCP and UDP packets.
func (c *Client) Pump() ClientPumpResult {
	var result ClientPumpResult

	switch c.state {
	case ConnectingA:
		c.pumpConnectingA(&result)
	case ConnectingB:
		c.pumpConnectingB(&result)
	case Ready:
		c.pumpReady(&result)
	case Failed:
		// terminal; nothing to do
	}

	result.Connected = c.state == Ready
	return result
}

func (c *Client) pumpConnectingA(result *ClientPumpResult) {
	for {
		body, err := c.tcp.RecvFrame()
		if err == ErrWouldBlock {
			return
		}
		if err != nil {
			c.fail(result)
			return
		}
		pkt, decodeErr := c.codec.Unpack(body)
		if decodeErr != nil {
			continue
		}
		initTCP, ok := pkt.(protocol.InitTCP)
		if !ok {
			continue
		}
		c.clientID = initTCP.ClientID
		c.armRetry(protocol.HandshakeFirstRetryDelay, protocol.HandshakeMaxRetries)
		c.sendInitUDP()
		c.state = ConnectingB
		return
	}
}

func (c *Client) pumpConnectingB(result *ClientPumpResult) {
	for {
		body, err := c.tcp.RecvFrame()
		if err == ErrWouldBlock {
			break
		}
		if err != nil {
			c.fail(result)
			return
		}
		pkt, decodeErr := c.codec.Unpack(body)
		if decodeErr != nil {
			continue
		}
		if _, ok := pkt.(protocol.InitFinal); ok {
			c.state = Ready
			result.ConnectionStatus = 1
			return
		}
	}

	if !c.clock.Now().Before(c.retryAt) {
		if c.retriesLeft <= 0 {
			c.fail(result)
			return
		}
		c.retriesLeft--
		c.sendInitUDP()
		c.retryAt = c.clock.Now().Add(protocol.HandshakeRetryDelay)
	}
}

func (c *Client) pumpReady(result *ClientPumpResult) {
	for {
		body, err := c.tcp.RecvFrame()
		if err == ErrWouldBlock {
			break
		}
		if err != nil {
			c.fail(result)
			return
		}
		pkt, decodeErr := c.codec.Unpack(body)
		if decodeErr != nil {
			logging.Debug("dropping malformed tcp packet", logging.Fields{"error": decodeErr.Error()})
			continue
		}
		result.TCPEvents = append(result.TCPEvents, pkt)
	}

	c.udp.Drain(func(payload []byte, _ *net.UDPAddr) {
		pkt, err := c.codec.Unpack(payload)
		if err != nil {
			logging.Debug("dropping malformed udp packet", logging.Fields{"error": err.Error()})
			return
		}
		result.UDPEvents = append(result.UDPEvents, pkt)
	})
}

func (c *Client) fail(result *ClientPumpResult) {
	c.state = Failed
	result.ConnectionStatus = -1
}

func (c *Client) armRetry(d time.Duration, retries int) {
	c.retriesLeft = retries
	c.retryAt = c.clock.Now().Add(d)
}

func (c *Client) sendInitUDP() {
	addr, err := c.serverUDPAddr()
	if err != nil {
		return
	}
	body, err := c.codec.Pack(protocol.InitUDP{ClientID: c.clientID})
	if err != nil {
		return
	}
	_ = c.udp.Send(body, addr)
}

// SendTCP sends p to the server over TCP.
func (c *Client) SendTCP(p protocol.Packet) error {
	body, err := c.codec.Pack(p)
	if err != nil {
		return err
	}
	return c.tcp.SendFrame(body)
}

// SendUDP sends p to the server over UDP.
func (c *Client) SendUDP(p protocol.Packet) error {
	addr, err := c.serverUDPAddr()
	if err != nil {
		return err
	}
	body, err := c.codec.Pack(p)
	if err != nil {
		return err
	}
	return c.udp.Send(body, addr)
}

// State returns the current handshake state.
func (c *Client) State() ConnectionState {
	return c.state
}
