package networking

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/Machine-builder/tiny-treads/pkg/logging"
	"github.com/Machine-builder/tiny-treads/shared/clock"
	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// TCPEvent pairs a decoded TCP packet with the client it arrived from.
type TCPEvent struct {
	ClientID protocol.ClientID
	Packet   protocol.Packet
}

// UDPEvent pairs a decoded UDP packet with the client it arrived from.
type UDPEvent struct {
	ClientID protocol.ClientID
	Packet   protocol.Packet
}

// PumpResult is returned by Server.Pump once per tick.
type PumpResult[M any] struct {
	NewClients   []protocol.ClientID
	Disconnected []protocol.ClientID
	TCPEvents    []TCPEvent
	UDPEvents    []UDPEvent
}

type clientRecord[M any] struct {
	id      protocol.ClientID
	peer    *TCPPeer
	udpAddr *net.UDPAddr
	model   M
}

// Server owns the TCP listener and UDP endpoint for the hybrid
// transport, performs the three-way handshake, and routes packets to
// and from connected clients by ClientID. M is the caller's opaque
// per-client application model; the server itself never inspects it.
type Server[M any] struct {
	listener     *TCPListener
	udp          *UDPEndpoint
	codec        *protocol.Codec
	clock        clock.Clock
	modelFactory func(protocol.ClientID) M

	clients   map[protocol.ClientID]*clientRecord[M]
	byUDPAddr map[string]protocol.ClientID
}

// NewServer binds a TCP listener on tcpAddr and a UDP endpoint on
// udpAddr and returns a ready-to-pump Server.
func NewServer[M any](tcpAddr, udpAddr string, modelFactory func(protocol.ClientID) M, codec *protocol.Codec, clk clock.Clock) (*Server[M], error) {
	ln, err := ListenTCP(tcpAddr)
	if err != nil {
		return nil, err
	}
	udp, err := ListenUDP(udpAddr)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return &Server[M]{
		listener:     ln,
		udp:          udp,
		codec:        codec,
		clock:        clk,
		modelFactory: modelFactory,
		clients:      make(map[protocol.ClientID]*clientRecord[M]),
		byUDPAddr:    make(map[string]protocol.ClientID),
	}, nil
}

// Close closes all peer sockets, then the listener and UDP endpoint.
func (s *Server[M]) Close() error {
	for _, rec := range s.clients {
		if rec.peer != nil {
			rec.peer.Close()
		}
	}
	s.udp.Close()
	return s.listener.Close()
}

// Model returns the application model for cid, if the client is live.
func (s *Server[M]) Model(cid protocol.ClientID) (M, bool) {
	rec, ok := s.clients[cid]
	if !ok {
		var zero M
		return zero, false
	}
	return rec.model, true
}

// Pump drains all currently available TCP accepts, TCP frames, and UDP
// datagrams exactly once and returns the events observed this tick.
func (s *Server[M]) Pump() PumpResult[M] {
	var result PumpResult[M]

	for {
		peer, err := s.listener.Accept()
		if err != nil {
			break
		}
		s.acceptPeer(peer)
	}

	for cid, rec := range s.clients {
		for {
			body, err := rec.peer.RecvFrame()
			if err == ErrWouldBlock {
				break
			}
			if err != nil {
				s.disconnect(cid, &result)
				break
			}
			pkt, decodeErr := s.codec.Unpack(body)
			if decodeErr != nil {
				logging.Debug("dropping malformed tcp packet", logging.Fields{"client_id": cid, "error": decodeErr.Error()})
				continue
			}
			result.TCPEvents = append(result.TCPEvents, TCPEvent{ClientID: cid, Packet: pkt})
		}
	}

	s.udp.Drain(func(payload []byte, addr *net.UDPAddr) {
		pkt, err := s.codec.Unpack(payload)
		if err != nil {
			logging.Debug("dropping malformed udp packet", logging.Fields{"addr": addr.String(), "error": err.Error()})
			return
		}
		if initUDP, ok := pkt.(protocol.InitUDP); ok {
			s.handleInitUDP(initUDP, addr, &result)
			return
		}
		cid, known := s.byUDPAddr[addr.String()]
		if !known {
			return
		}
		result.UDPEvents = append(result.UDPEvents, UDPEvent{ClientID: cid, Packet: pkt})
	})

	return result
}

func (s *Server[M]) acceptPeer(peer *TCPPeer) {
	cid := s.allocateClientID()
	rec := &clientRecord[M]{
		id:    cid,
		peer:  peer,
		model: s.modelFactory(cid),
	}
	s.clients[cid] = rec
	if err := rec.peer.SendFrame(s.mustPack(protocol.InitTCP{ClientID: cid})); err != nil {
		// Peer vanished before the handshake could even start; it
		// will surface as a disconnect on the next RecvFrame attempt.
		_ = err
	}
}

func (s *Server[M]) allocateClientID() protocol.ClientID {
	for {
		cid := protocol.ClientID(rand.Intn(65536))
		if _, exists := s.clients[cid]; !exists {
			return cid
		}
	}
}

func (s *Server[M]) handleInitUDP(pkt protocol.InitUDP, addr *net.UDPAddr, result *PumpResult[M]) {
	rec, ok := s.clients[pkt.ClientID]
	if !ok {
		return
	}
	if rec.udpAddr != nil {
		return // duplicate INIT_UDP after binding: ignored
	}
	rec.udpAddr = addr
	s.byUDPAddr[addr.String()] = rec.id
	_ = rec.peer.SendFrame(s.mustPack(protocol.InitFinal{}))
	result.NewClients = append(result.NewClients, rec.id)
}

func (s *Server[M]) disconnect(cid protocol.ClientID, result *PumpResult[M]) {
	rec, ok := s.clients[cid]
	if !ok {
		return
	}
	if rec.udpAddr != nil {
		delete(s.byUDPAddr, rec.udpAddr.String())
	}
	rec.peer.Close()
	delete(s.clients, cid)
	result.Disconnected = append(result.Disconnected, cid)
}

// SendTCP sends p to target over TCP, or to every connected client
// when target is nil.
func (s *Server[M]) SendTCP(p protocol.Packet, target *protocol.ClientID) error {
	body := s.mustPack(p)
	if target != nil {
		rec, ok := s.clients[*target]
		if !ok {
			return fmt.Errorf("networking: unknown client %d", *target)
		}
		return rec.peer.SendFrame(body)
	}
	var firstErr error
	for _, rec := range s.clients {
		if err := rec.peer.SendFrame(body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendUDP sends p to addr, or fans it out to every client with a bound
// UDP address when addr is nil.
func (s *Server[M]) SendUDP(p protocol.Packet, addr *net.UDPAddr) error {
	body := s.mustPack(p)
	if addr != nil {
		return s.udp.Send(body, addr)
	}
	var firstErr error
	for _, rec := range s.clients {
		if rec.udpAddr == nil {
			continue
		}
		if err := s.udp.Send(body, rec.udpAddr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BoundClients returns the ClientIDs with an established UDP binding,
// i.e. those the application has been told about via NewClients.
func (s *Server[M]) BoundClients() []protocol.ClientID {
	ids := make([]protocol.ClientID, 0, len(s.clients))
	for cid, rec := range s.clients {
		if rec.udpAddr != nil {
			ids = append(ids, cid)
		}
	}
	return ids
}

func (s *Server[M]) mustPack(p protocol.Packet) []byte {
	body, err := s.codec.Pack(p)
	if err != nil {
		panic(fmt.Sprintf("networking: pack %T: %v", p, err))
	}
	return body
}
