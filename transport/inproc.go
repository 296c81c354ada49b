package transport

import (
	"strings"
	"sync"
	"time"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// Inproc is an in-memory transport: a registry of bound endpoints backed by
// channel queues. It implements enough of the MQ contract for tests and
// single-process wiring: wildcard ports resolve to synthetic concrete
// ports, LastEndpoint introspection works, and sends route to the peer's
// inbox.
type Inproc struct {
	mu       sync.Mutex
	byPort   map[uint16]*InprocSocket
	byAddr   map[string]*InprocSocket
	nextPort uint16
}

// NewInproc creates an empty in-memory transport.
func NewInproc() *Inproc {
	return &Inproc{
		byPort:   make(map[uint16]*InprocSocket),
		byAddr:   make(map[string]*InprocSocket),
		nextPort: 49152,
	}
}

// NewSocket creates a socket attached to this transport.
func (t *Inproc) NewSocket(typ SocketType) *InprocSocket {
	return &InprocSocket{
		transport: t,
		typ:       typ,
		inbox:     make(chan []byte, 1024),
	}
}

// lookup finds the bound socket for an endpoint, matching tcp endpoints by
// port so a connect to any expanded interface address reaches the binder.
func (t *Inproc) lookup(ep string) *InprocSocket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byAddr[ep]; ok {
		return s
	}
	if _, port, err := ParseTCPEndpoint(ep); err == nil {
		return t.byPort[port]
	}
	return nil
}

// InprocSocket is one endpoint of the in-memory transport.
type InprocSocket struct {
	transport *Inproc
	typ       SocketType

	mu     sync.Mutex
	inbox  chan []byte
	peers  map[string]*InprocSocket
	bound  []string
	last   string
	closed bool
}

// Bind registers the socket under ep. A "*" or "0" port is replaced by a
// fresh synthetic port; the resolved endpoint is visible via LastEndpoint.
func (s *InprocSocket) Bind(ep string) error {
	t := s.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	resolved := ep
	if strings.HasPrefix(ep, "tcp://") {
		host := ep
		port := uint16(0)
		if h, p, err := ParseTCPEndpoint(ep); err == nil {
			host, port = h, p
		} else if idx := strings.LastIndexByte(ep, ':'); idx > 5 {
			host = ep[6:idx]
		}
		if port == 0 {
			port = t.nextPort
			t.nextPort++
		}
		if _, taken := t.byPort[port]; taken {
			return xerr.Newf(xerr.CodeTransport, "port %d already bound", port)
		}
		resolved = FormatTCPEndpoint(strings.Trim(host, "[]"), port)
		t.byPort[port] = s
	} else {
		if _, taken := t.byAddr[ep]; taken {
			return xerr.Newf(xerr.CodeTransport, "endpoint %q already bound", ep)
		}
	}
	t.byAddr[resolved] = s

	s.mu.Lock()
	s.bound = append(s.bound, resolved)
	s.last = resolved
	s.mu.Unlock()
	return nil
}

// Unbind removes one registration.
func (s *InprocSocket) Unbind(ep string) error {
	t := s.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byAddr[ep] == s {
		delete(t.byAddr, ep)
	}
	if _, port, err := ParseTCPEndpoint(ep); err == nil {
		if t.byPort[port] == s {
			delete(t.byPort, port)
		}
	}
	return nil
}

// Connect attaches the socket to a bound endpoint.
func (s *InprocSocket) Connect(ep string) error {
	peer := s.transport.lookup(ep)
	if peer == nil {
		return xerr.Newf(xerr.CodeTransport, "nothing bound at %q", ep)
	}
	s.mu.Lock()
	if s.peers == nil {
		s.peers = make(map[string]*InprocSocket)
	}
	s.peers[ep] = peer
	s.mu.Unlock()
	return nil
}

// Disconnect drops a peer or binding record.
func (s *InprocSocket) Disconnect(ep string) error {
	s.mu.Lock()
	delete(s.peers, ep)
	s.mu.Unlock()
	return s.Unbind(ep)
}

// LastEndpoint returns the most recent resolved bind.
func (s *InprocSocket) LastEndpoint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == "" {
		return "", xerr.New(xerr.CodeTransport, "socket was never bound")
	}
	return s.last, nil
}

// Send delivers data to every connected peer's inbox. A bound socket with
// no connected peers drops the message the way a PUB socket would.
func (s *InprocSocket) Send(data []byte, flags Flag) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return xerr.New(xerr.CodeStopped, "socket closed")
	}
	peers := make([]*InprocSocket, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	isBound := len(s.bound) > 0
	s.mu.Unlock()

	if len(peers) == 0 && !isBound {
		return xerr.New(xerr.CodeTransport, "no peer to send to")
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	for _, p := range peers {
		select {
		case p.inbox <- msg:
		default:
			if flags&FlagDontWait != 0 {
				return xerr.New(xerr.CodeTransport, "peer inbox full")
			}
			p.inbox <- msg
		}
	}
	return nil
}

// Recv takes the next message from the inbox.
func (s *InprocSocket) Recv(flags Flag) ([]byte, error) {
	if flags&FlagDontWait != 0 {
		select {
		case msg := <-s.inbox:
			return msg, nil
		default:
			return nil, xerr.New(xerr.CodeTransport, "no message ready")
		}
	}
	msg, ok := <-s.inbox
	if !ok {
		return nil, xerr.New(xerr.CodeStopped, "socket closed")
	}
	return msg, nil
}

// PollIn waits for a readable message within the timeout.
func (s *InprocSocket) PollIn(timeout time.Duration) (bool, error) {
	if len(s.inbox) > 0 {
		return true, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-s.inbox:
		// put it back for the actual Recv
		s.inbox <- msg
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// SetLinger is a no-op for the in-memory transport.
func (s *InprocSocket) SetLinger(time.Duration) error { return nil }

// Close unbinds everything and marks the socket dead.
func (s *InprocSocket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	bound := append([]string(nil), s.bound...)
	s.mu.Unlock()

	for _, ep := range bound {
		_ = s.Unbind(ep)
	}
	return nil
}
