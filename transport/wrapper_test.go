package transport

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkan3-sloth/gridcore/netutil"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

// flakySocket fails the first failures sends, then succeeds.
type flakySocket struct {
	mu       sync.Mutex
	failures int
	sends    int
	last     string
}

func (f *flakySocket) Bind(ep string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = ep
	return nil
}
func (f *flakySocket) Unbind(string) error     { return nil }
func (f *flakySocket) Connect(string) error    { return nil }
func (f *flakySocket) Disconnect(string) error { return nil }
func (f *flakySocket) LastEndpoint() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, nil
}
func (f *flakySocket) Send([]byte, Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.sends <= f.failures {
		return xerr.New(xerr.CodeTransport, "transient send failure")
	}
	return nil
}
func (f *flakySocket) Recv(Flag) ([]byte, error)           { return nil, nil }
func (f *flakySocket) PollIn(time.Duration) (bool, error)  { return false, nil }
func (f *flakySocket) SetLinger(time.Duration) error       { return nil }
func (f *flakySocket) Close() error                        { return nil }

func newInprocWrapper(t *testing.T, typ SocketType, opts ...WrapperOption) (*Inproc, *Wrapper) {
	t.Helper()
	tr := NewInproc()
	w := NewWrapper(tr.NewSocket(typ), typ, opts...)
	t.Cleanup(w.Close)
	return tr, w
}

func TestWrapperWildcardBindExpansion(t *testing.T) {
	_, w := newInprocWrapper(t, Push)

	eps, err := w.Bind("tcp://0.0.0.0:*")
	require.NoError(t, err)
	require.NotEmpty(t, eps)

	ips := netutil.OwnIPs(true)
	assert.GreaterOrEqual(t, len(eps), len(ips),
		"one concrete endpoint per resolvable local IP")
	for _, ep := range eps {
		host, port, err := ParseTCPEndpoint(ep)
		require.NoError(t, err)
		assert.NotEqual(t, "0.0.0.0", host)
		assert.NotZero(t, port)
	}
	assert.True(t, w.Valid())
	assert.ElementsMatch(t, eps, w.Endpoints())
}

func TestWrapperValidityWaits(t *testing.T) {
	_, w := newInprocWrapper(t, Pub)

	assert.False(t, w.WaitValid(50*time.Millisecond))

	became := make(chan bool, 1)
	go func() {
		became <- w.WaitValid(5 * time.Second)
	}()
	time.Sleep(50 * time.Millisecond)
	_, err := w.Bind("tcp://127.0.0.1:*")
	require.NoError(t, err)

	select {
	case ok := <-became:
		assert.True(t, ok, "bind must wake validity waiters")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by bind")
	}

	w.DisconnectAll()
	assert.False(t, w.Valid())
	assert.False(t, w.WaitValid(50*time.Millisecond))
	assert.Empty(t, w.Endpoints())
}

func TestWrapperConnectAndSend(t *testing.T) {
	tr, bound := newInprocWrapper(t, Pull)
	eps, err := bound.Bind("tcp://127.0.0.1:*")
	require.NoError(t, err)

	sender := NewWrapper(tr.NewSocket(Push), Push)
	defer sender.Close()
	require.NoError(t, sender.Connect(eps[0]))
	assert.True(t, sender.Valid())

	require.NoError(t, sender.Send([]byte("block-7"), FlagNone))
	assert.True(t, bound.PollIn(time.Second))
	msg, err := bound.Socket().Recv(FlagNone)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("block-7"), msg))
}

func TestWrapperSendRetriesTransientFailures(t *testing.T) {
	sock := &flakySocket{failures: 3}
	w := NewWrapper(sock, Push, WithSendRetry(10, time.Millisecond))
	defer w.Close()
	_, err := w.Bind("tcp://127.0.0.1:4242")
	require.NoError(t, err)

	require.NoError(t, w.Send([]byte("payload"), FlagNone))
	assert.Equal(t, 4, sock.sends, "three failures then one success")
}

func TestWrapperSendGivesUpAfterBudget(t *testing.T) {
	sock := &flakySocket{failures: 1 << 30}
	w := NewWrapper(sock, Push, WithSendRetry(3, time.Millisecond))
	defer w.Close()
	_, err := w.Bind("tcp://127.0.0.1:4243")
	require.NoError(t, err)

	err = w.Send([]byte("payload"), FlagNone)
	require.Error(t, err)
	assert.Equal(t, xerr.CodeTransport, xerr.CodeOf(err))
	assert.Equal(t, 3, sock.sends)
}

func TestWrapperSendOnInvalidSocket(t *testing.T) {
	_, w := newInprocWrapper(t, Push, WithValidWait(20*time.Millisecond))
	err := w.Send([]byte("nope"), FlagNone)
	require.Error(t, err)
	assert.Equal(t, xerr.CodeTransport, xerr.CodeOf(err))
}

func TestWrapperReconnect(t *testing.T) {
	tr, bound := newInprocWrapper(t, Pull)
	epsA, err := bound.Bind("tcp://127.0.0.1:*")
	require.NoError(t, err)

	other := NewWrapper(tr.NewSocket(Pull), Pull)
	defer other.Close()
	epsB, err := other.Bind("tcp://127.0.0.1:*")
	require.NoError(t, err)

	sender := NewWrapper(tr.NewSocket(Push), Push)
	defer sender.Close()
	require.NoError(t, sender.Connect(epsA[0]))

	// reconnect to the same endpoint is a no-op
	require.NoError(t, sender.Reconnect(epsA[0]))
	assert.True(t, sender.ConnectedTo([]string{epsA[0]}))

	// reconnect elsewhere drops the old endpoint first
	require.NoError(t, sender.Reconnect(epsB[0]))
	assert.True(t, sender.ConnectedTo([]string{epsB[0]}))
	assert.False(t, sender.ConnectedTo([]string{epsA[0]}))
}

func TestWrapperBatchTCPBind(t *testing.T) {
	_, w := newInprocWrapper(t, Pub)

	results := w.BatchTCPBind([]string{"127.0.0.1", "", "127.0.0.1"})
	require.Len(t, results, 2, "empty hosts are skipped")
	assert.NoError(t, results[0].Err)
	assert.NotEmpty(t, results[0].Endpoints)
	assert.NoError(t, results[1].Err)
}

func TestWrapperBatchEndpointRebind(t *testing.T) {
	tr := NewInproc()
	w := NewWrapper(tr.NewSocket(Pub), Pub)
	defer w.Close()

	ok := w.BatchEndpointRebind([]string{
		"tcp://127.0.0.1:18001",
		"tcp://127.0.0.1:18002",
	}, false)
	assert.True(t, ok)
	assert.Len(t, w.Endpoints(), 2)

	// occupied ports fail but a single success is enough
	w2 := NewWrapper(tr.NewSocket(Pub), Pub)
	defer w2.Close()
	ok = w2.BatchEndpointRebind([]string{
		"tcp://127.0.0.1:18001",
		"tcp://127.0.0.1:18003",
	}, false)
	assert.True(t, ok)

	w3 := NewWrapper(tr.NewSocket(Pub), Pub)
	defer w3.Close()
	assert.False(t, w3.BatchEndpointRebind([]string{"tcp://127.0.0.1:18001"}, false))
}

func TestWrapperBatchEndpointRebindSameHostOnce(t *testing.T) {
	tr := NewInproc()
	w := NewWrapper(tr.NewSocket(Pub), Pub)
	defer w.Close()

	ok := w.BatchEndpointRebind([]string{
		"tcp://127.0.0.1:18101",
		"tcp://127.0.0.1:18102",
		"tcp://127.0.0.2:18103",
	}, true)
	assert.True(t, ok)
	eps := w.Endpoints()
	assert.Len(t, eps, 2, "one endpoint per host")
	joined := strings.Join(eps, " ")
	assert.Contains(t, joined, "18101")
	assert.NotContains(t, joined, "18102")
}

func TestWrapperCloseReleasesWaiters(t *testing.T) {
	tr := NewInproc()
	w := NewWrapper(tr.NewSocket(Sub), Sub)

	done := make(chan bool, 1)
	go func() {
		done <- w.WaitValid(time.Minute)
	}()
	time.Sleep(50 * time.Millisecond)
	w.Close()

	select {
	case ok := <-done:
		assert.False(t, ok, "stop short-circuits validity waits")
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not release the waiter")
	}
	assert.True(t, w.Stopped())
}

func TestValidSubscription(t *testing.T) {
	in := []byte("key\x01name\xffrest")
	out := ValidSubscription(in)
	assert.Equal(t, "key name rest", string(out))

	long := bytes.Repeat([]byte{'a'}, 3000)
	assert.Len(t, ValidSubscription(long), MaxSubscriptionSize)
}
