package transport

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chalkan3-sloth/gridcore/internal/flexbuf"
	"github.com/chalkan3-sloth/gridcore/netutil"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

const (
	// DefaultSendRetries is how many send attempts are made before a send
	// fails.
	DefaultSendRetries = 10
	// DefaultSendRetryStep grows the sleep between send attempts.
	DefaultSendRetryStep = 100 * time.Millisecond
	// DefaultValidWait bounds how long Send waits for the socket to
	// become valid before giving up.
	DefaultValidWait = 100 * time.Millisecond
	// MaxSubscriptionSize caps sanitized subscription keys.
	MaxSubscriptionSize = 1024
)

// HostBindResult reports the outcome of one host in a batch bind.
type HostBindResult struct {
	Host      string
	Endpoints []string
	Err       error
}

// Wrapper gates a Socket behind a validity flag: the socket is valid while
// it has at least one live binding or connection. Waiters blocked on
// validity are woken by bind/connect and released by stop.
type Wrapper struct {
	sock Socket
	typ  SocketType
	id   string

	mu        sync.Mutex
	endpoints map[string]struct{}
	valid     bool
	validCh   chan struct{}
	stopped   bool
	waiters   int
	noWaiters *sync.Cond

	stopOnce sync.Once
	stopCh   chan struct{}

	sendRetries   int
	sendRetryStep time.Duration
	validWait     time.Duration
}

// WrapperOption adjusts a Wrapper.
type WrapperOption func(*Wrapper)

// WithSendRetry overrides the send retry budget and backoff step.
func WithSendRetry(retries int, step time.Duration) WrapperOption {
	return func(w *Wrapper) {
		w.sendRetries = retries
		w.sendRetryStep = step
	}
}

// WithValidWait overrides how long Send waits for validity.
func WithValidWait(d time.Duration) WrapperOption {
	return func(w *Wrapper) { w.validWait = d }
}

// NewWrapper wraps sock. The wrapper owns the socket and closes it.
func NewWrapper(sock Socket, typ SocketType, opts ...WrapperOption) *Wrapper {
	w := &Wrapper{
		sock:          sock,
		typ:           typ,
		id:            uuid.NewString(),
		endpoints:     make(map[string]struct{}),
		validCh:       make(chan struct{}),
		stopCh:        make(chan struct{}),
		sendRetries:   DefaultSendRetries,
		sendRetryStep: DefaultSendRetryStep,
		validWait:     DefaultValidWait,
	}
	w.noWaiters = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Socket exposes the wrapped socket for operations outside the wrapper's
// contract (subscription setup, recv loops).
func (w *Wrapper) Socket() Socket { return w.sock }

// Type returns the socket's messaging pattern tag.
func (w *Wrapper) Type() SocketType { return w.typ }

// setValid must be called with mu held.
func (w *Wrapper) setValid() {
	if !w.valid {
		w.valid = true
		close(w.validCh)
	}
}

// setInvalid must be called with mu held.
func (w *Wrapper) setInvalid() {
	if w.valid {
		w.valid = false
		w.validCh = make(chan struct{})
	}
}

// Valid reports whether the socket currently has a live binding or
// connection.
func (w *Wrapper) Valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.valid
}

// Stopped reports whether Close has begun.
func (w *Wrapper) Stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// Endpoints returns the sorted set of recorded endpoints.
func (w *Wrapper) Endpoints() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.endpoints))
	for ep := range w.endpoints {
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}

// ConnectedTo reports whether any of the candidates is a recorded endpoint.
func (w *Wrapper) ConnectedTo(candidates []string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range candidates {
		if _, ok := w.endpoints[c]; ok {
			return true
		}
	}
	return false
}

// Bind binds addr. For tcp addresses the actually-bound endpoint is read
// back from the transport so wildcard ports become concrete; a 0.0.0.0 host
// is expanded into one endpoint per local IP. Returns the endpoints
// recorded by this call.
func (w *Wrapper) Bind(addr string) ([]string, error) {
	if addr == "" {
		return nil, xerr.New(xerr.CodeInvalidArgument, "empty bind address")
	}
	if err := w.sock.Bind(addr); err != nil {
		return nil, xerr.Newf(xerr.CodeTransport, "bind %q failed", addr).WithCause(err)
	}

	recorded := []string{addr}
	if strings.HasPrefix(addr, "tcp://") {
		if eps := w.expandLastEndpoint(); len(eps) > 0 {
			recorded = eps
		}
	}

	w.mu.Lock()
	for _, ep := range recorded {
		w.endpoints[ep] = struct{}{}
	}
	w.setValid()
	w.mu.Unlock()

	slog.Debug("socket bound",
		"socket", w.id, "type", w.typ.String(), "endpoints", recorded)
	return recorded, nil
}

// expandLastEndpoint reads the transport's view of the last bind and
// expands a wildcard host into per-interface endpoints.
func (w *Wrapper) expandLastEndpoint() []string {
	last, err := w.sock.LastEndpoint()
	if err != nil || last == "" {
		return nil
	}
	host, port, err := ParseTCPEndpoint(last)
	if err != nil || port == 0 {
		return nil
	}

	hosts := []string{host}
	if host == "0.0.0.0" || host == "*" {
		if ips := netutil.OwnIPs(true); len(ips) > 0 {
			hosts = ips
		}
	}
	eps := make([]string, 0, len(hosts))
	for _, h := range hosts {
		eps = append(eps, FormatTCPEndpoint(h, port))
	}
	return eps
}

// BatchTCPBind binds every host on an ephemeral port, expanding the "*" and
// "0.0.0.0" wildcards to local IPs and bracketing IPv6 hosts. Individual
// failures are logged and reported per host; iteration continues.
func (w *Wrapper) BatchTCPBind(hosts []string) []HostBindResult {
	var results []HostBindResult
	for _, host := range hosts {
		if host == "" {
			continue
		}
		expanded := []string{host}
		if host == "*" || host == "0.0.0.0" {
			if ips := netutil.OwnIPs(true); len(ips) > 0 {
				expanded = ips
			}
		}
		for _, h := range expanded {
			addr := "tcp://" + h + ":*"
			if strings.Contains(h, ":") && !strings.HasPrefix(h, "[") {
				addr = "tcp://[" + h + "]:*"
			}
			eps, err := w.Bind(addr)
			if err != nil {
				slog.Error("batch bind failed", "socket", w.id, "endpoint", addr, "error", err)
			}
			results = append(results, HostBindResult{Host: h, Endpoints: eps, Err: err})
		}
	}
	return results
}

// BatchEndpointRebind binds a set of previously known endpoints, optionally
// trying only one endpoint per host. Returns whether at least one bind
// succeeded.
func (w *Wrapper) BatchEndpointRebind(endpoints []string, sameHostOnce bool) bool {
	ok := false
	seen := make(map[string]struct{})
	for _, ep := range endpoints {
		if ep == "" {
			continue
		}
		if sameHostOnce {
			host := hostOf(ep)
			if _, dup := seen[host]; dup {
				continue
			}
			seen[host] = struct{}{}
		}
		if _, err := w.Bind(ep); err != nil {
			slog.Error("rebind failed", "socket", w.id, "endpoint", ep, "error", err)
			continue
		}
		ok = true
	}
	return ok
}

// Connect connects to addr and records it.
func (w *Wrapper) Connect(addr string) error {
	if addr == "" {
		return xerr.New(xerr.CodeInvalidArgument, "empty connect address")
	}
	if err := w.sock.Connect(addr); err != nil {
		return xerr.Newf(xerr.CodeTransport, "connect %q failed", addr).WithCause(err)
	}
	w.mu.Lock()
	w.endpoints[addr] = struct{}{}
	w.setValid()
	w.mu.Unlock()
	return nil
}

// Reconnect connects to addr after dropping every prior endpoint. Already
// being connected to addr is a no-op.
func (w *Wrapper) Reconnect(addr string) error {
	w.mu.Lock()
	_, connected := w.endpoints[addr]
	w.mu.Unlock()
	if connected {
		return nil
	}
	w.DisconnectAll()
	return w.Connect(addr)
}

// DisconnectAll disconnects every recorded endpoint and invalidates the
// socket.
func (w *Wrapper) DisconnectAll() {
	w.mu.Lock()
	eps := make([]string, 0, len(w.endpoints))
	for ep := range w.endpoints {
		eps = append(eps, ep)
	}
	w.endpoints = make(map[string]struct{})
	w.setInvalid()
	w.mu.Unlock()

	for _, ep := range eps {
		if err := w.sock.Disconnect(ep); err != nil {
			slog.Debug("disconnect failed", "socket", w.id, "endpoint", ep, "error", err)
		}
	}
}

// WaitValid blocks until the socket becomes valid or the timeout elapses,
// returning the current validity. Stop short-circuits the wait.
func (w *Wrapper) WaitValid(timeout time.Duration) bool {
	w.mu.Lock()
	if w.valid || w.stopped {
		valid := w.valid
		w.mu.Unlock()
		return valid
	}
	ch := w.validCh
	w.waiters++
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	select {
	case <-ch:
	case <-w.stopCh:
	case <-timer.C:
	}
	timer.Stop()

	w.mu.Lock()
	w.waiters--
	if w.waiters == 0 {
		w.noWaiters.Broadcast()
	}
	valid := w.valid
	w.mu.Unlock()
	return valid
}

// WaitValidForever blocks until validity or stop.
func (w *Wrapper) WaitValidForever() bool {
	for !w.Stopped() {
		if w.WaitValid(500 * time.Millisecond) {
			return true
		}
	}
	return w.Valid()
}

// Send transmits one message. An invalid socket is given a short window to
// become valid; transient transport failures are retried with a growing
// sleep before surfacing.
func (w *Wrapper) Send(data []byte, flags Flag) error {
	if w.Stopped() {
		return xerr.New(xerr.CodeStopped, "socket is stopped")
	}
	if !w.WaitValid(w.validWait) {
		slog.Error("send on invalid socket", "socket", w.id, "type", w.typ.String())
		return xerr.New(xerr.CodeTransport, "socket has no live binding or connection")
	}

	var lastErr error
	for attempt := 1; attempt <= w.sendRetries; attempt++ {
		lastErr = w.sock.Send(data, flags)
		if lastErr == nil {
			return nil
		}
		slog.Warn("send failed, retrying",
			"socket", w.id, "attempt", attempt, "error", lastErr)

		timer := time.NewTimer(time.Duration(attempt) * w.sendRetryStep)
		select {
		case <-timer.C:
		case <-w.stopCh:
			timer.Stop()
			return xerr.New(xerr.CodeStopped, "socket stopped during send")
		}
		timer.Stop()
	}
	return xerr.Newf(xerr.CodeTransport, "send failed after %d attempts", w.sendRetries).WithCause(lastErr)
}

// PollIn polls for read-readiness. An invalid socket is never readable.
func (w *Wrapper) PollIn(timeout time.Duration) bool {
	if !w.Valid() {
		return false
	}
	ready, err := w.sock.PollIn(timeout)
	if err != nil {
		return false
	}
	return ready
}

// ValidSubscription sanitizes a candidate subscription key: bytes outside
// the printable ASCII range become spaces and the key is truncated at
// MaxSubscriptionSize.
func ValidSubscription(candidate []byte) []byte {
	n := len(candidate)
	if n > MaxSubscriptionSize {
		n = MaxSubscriptionSize
	}
	var scratch [256]byte
	out := flexbuf.Get(scratch[:], n)
	for i := 0; i < n; i++ {
		c := candidate[i]
		if c < 32 || c > 126 {
			c = ' '
		}
		out[i] = c
	}
	return out
}

// Close stops the wrapper: waiters are released and drained, the linger is
// minimized and the socket closed. Errors during close are swallowed.
func (w *Wrapper) Close() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.stopCh)
		for w.waiters > 0 {
			w.noWaiters.Wait()
		}
		w.mu.Unlock()

		if err := w.sock.SetLinger(0); err != nil {
			slog.Debug("set linger failed", "socket", w.id, "error", err)
		}
		if err := w.sock.Close(); err != nil {
			slog.Debug("socket close failed", "socket", w.id, "error", err)
		}
	})
}
