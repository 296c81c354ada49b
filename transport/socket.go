// Package transport wraps a message-queue socket with a validity-gated
// lifecycle: bind/connect/disconnect transitions are coordinated with
// waiters, wildcard binds expand to concrete per-interface endpoints, and
// transient send failures are retried with backoff. The host MQ library is
// abstracted behind the Socket interface; see the zeromq subpackage for the
// real transport and Inproc for an in-memory one.
package transport

import "time"

// SocketType tags the messaging pattern of a socket.
type SocketType int

const (
	Pair SocketType = iota
	Pub
	Sub
	Req
	Rep
	Dealer
	Router
	Pull
	Push
	XPub
	XSub
)

func (t SocketType) String() string {
	switch t {
	case Pair:
		return "pair"
	case Pub:
		return "pub"
	case Sub:
		return "sub"
	case Req:
		return "req"
	case Rep:
		return "rep"
	case Dealer:
		return "dealer"
	case Router:
		return "router"
	case Pull:
		return "pull"
	case Push:
		return "push"
	case XPub:
		return "xpub"
	case XSub:
		return "xsub"
	default:
		return "unknown"
	}
}

// Flag modifies a single send or receive.
type Flag int

const (
	// FlagNone is a plain blocking operation.
	FlagNone Flag = 0
	// FlagDontWait makes the operation fail instead of blocking.
	FlagDontWait Flag = 1 << iota
	// FlagSendMore marks a frame as part of a multi-frame message.
	FlagSendMore
)

// Socket is the slice of the host message-queue socket the wrapper relies
// on: non-blocking send/recv, polling and endpoint introspection.
type Socket interface {
	Bind(endpoint string) error
	Unbind(endpoint string) error
	Connect(endpoint string) error
	Disconnect(endpoint string) error

	// LastEndpoint reports the endpoint of the most recent bind with
	// wildcards resolved to concrete values.
	LastEndpoint() (string, error)

	Send(data []byte, flags Flag) error
	Recv(flags Flag) ([]byte, error)

	// PollIn reports read-readiness within the timeout.
	PollIn(timeout time.Duration) (bool, error)

	SetLinger(d time.Duration) error
	Close() error
}
