// Package zeromq adapts a ZeroMQ socket to the transport.Socket contract.
package zeromq

import (
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/chalkan3-sloth/gridcore/transport"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

func zmqType(t transport.SocketType) zmq.Type {
	switch t {
	case transport.Pair:
		return zmq.PAIR
	case transport.Pub:
		return zmq.PUB
	case transport.Sub:
		return zmq.SUB
	case transport.Req:
		return zmq.REQ
	case transport.Rep:
		return zmq.REP
	case transport.Dealer:
		return zmq.DEALER
	case transport.Router:
		return zmq.ROUTER
	case transport.Pull:
		return zmq.PULL
	case transport.Push:
		return zmq.PUSH
	case transport.XPub:
		return zmq.XPUB
	case transport.XSub:
		return zmq.XSUB
	default:
		return zmq.PAIR
	}
}

func zmqFlags(f transport.Flag) zmq.Flag {
	var out zmq.Flag
	if f&transport.FlagDontWait != 0 {
		out |= zmq.DONTWAIT
	}
	if f&transport.FlagSendMore != 0 {
		out |= zmq.SNDMORE
	}
	return out
}

// Socket is a ZeroMQ-backed transport socket.
type Socket struct {
	s *zmq.Socket
}

// New creates a ZeroMQ socket of the given pattern on the default context.
func New(typ transport.SocketType) (*Socket, error) {
	s, err := zmq.NewSocket(zmqType(typ))
	if err != nil {
		return nil, xerr.New(xerr.CodeTransport, "cannot create zmq socket").WithCause(err)
	}
	return &Socket{s: s}, nil
}

// Bind implements transport.Socket.
func (z *Socket) Bind(endpoint string) error { return z.s.Bind(endpoint) }

// Unbind implements transport.Socket.
func (z *Socket) Unbind(endpoint string) error { return z.s.Unbind(endpoint) }

// Connect implements transport.Socket.
func (z *Socket) Connect(endpoint string) error { return z.s.Connect(endpoint) }

// Disconnect implements transport.Socket.
func (z *Socket) Disconnect(endpoint string) error { return z.s.Disconnect(endpoint) }

// LastEndpoint implements transport.Socket.
func (z *Socket) LastEndpoint() (string, error) { return z.s.GetLastEndpoint() }

// Send implements transport.Socket.
func (z *Socket) Send(data []byte, flags transport.Flag) error {
	_, err := z.s.SendBytes(data, zmqFlags(flags))
	return err
}

// Recv implements transport.Socket.
func (z *Socket) Recv(flags transport.Flag) ([]byte, error) {
	return z.s.RecvBytes(zmqFlags(flags))
}

// PollIn implements transport.Socket.
func (z *Socket) PollIn(timeout time.Duration) (bool, error) {
	poller := zmq.NewPoller()
	poller.Add(z.s, zmq.POLLIN)
	polled, err := poller.Poll(timeout)
	if err != nil {
		return false, err
	}
	return len(polled) > 0, nil
}

// SetLinger implements transport.Socket.
func (z *Socket) SetLinger(d time.Duration) error { return z.s.SetLinger(d) }

// SetSubscribe installs a subscription filter on a SUB socket.
func (z *Socket) SetSubscribe(filter string) error { return z.s.SetSubscribe(filter) }

// Close implements transport.Socket.
func (z *Socket) Close() error { return z.s.Close() }
