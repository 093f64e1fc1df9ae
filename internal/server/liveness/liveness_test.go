package liveness

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingListener struct {
	net.Listener
	closed chan struct{}
	once   sync.Once
}

func (l *failingListener) Accept() (net.Conn, error) {
	return nil, errors.New("too many open files")
}

func (l *failingListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return l.Listener.Close()
}

func startServer(t *testing.T) (*Server, string, context.CancelFunc, <-chan error) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(lis.Addr().String(), uuid.MustParse("6f1d3c1e-8c1f-4c55-9b55-0e2f0b0e6a11"), logging.Nop{})
	s.connTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	return s, lis.Addr().String(), cancel, done
}

func TestPing_ReturnsStatusLine(t *testing.T) {
	t.Parallel()

	_, addr, _, _ := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := Ping(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "cliquefs ok 6f1d3c1e-8c1f-4c55-9b55-0e2f0b0e6a11\n", reply)
	assert.LessOrEqual(t, len(reply), MaxReply)
}

func TestServe_ManyConcurrentClients(t *testing.T) {
	t.Parallel()

	_, addr, _, _ := startServer(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			reply, err := Ping(ctx, addr)
			if err == nil && !strings.HasPrefix(reply, "cliquefs ok ") {
				err = io.ErrUnexpectedEOF
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestServe_SilentClientIsDropped(t *testing.T) {
	t.Parallel()

	_, addr, _, _ := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	b, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, b, "no reply without the handshake byte")
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	_, addr, cancel, done := startServer(t)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1:99999", uuid.New(), logging.Nop{})
	assert.Error(t, s.Run(context.Background()))
}

func TestPing_DialError(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = Ping(ctx, addr)
	assert.ErrorContains(t, err, "dial")
}

func TestServe_AcceptFailureReleasesListener(t *testing.T) {
	t.Parallel()

	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	lis := &failingListener{Listener: inner, closed: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(inner.Addr().String(), uuid.New(), logging.Nop{})
	err = s.Serve(ctx, lis)
	require.ErrorContains(t, err, "too many open files")

	select {
	case <-lis.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("listener still held after Serve returned")
	}
}
