// Package liveness implements the byte-level liveness handshake: a client
// connects, sends one byte, and receives a short status line before the
// connection is closed. The handshake carries no application semantics and
// performs no authentication.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/google/uuid"
)

// MaxReply is the largest reply the listener ever writes.
const MaxReply = 128

const defaultConnTimeout = 5 * time.Second

type Server struct {
	address     string
	logger      logging.Logger
	reply       []byte
	connTimeout time.Duration
}

func NewServer(a string, instanceID uuid.UUID, l logging.Logger) *Server {
	reply := []byte(fmt.Sprintf("cliquefs ok %s\n", instanceID))
	if len(reply) > MaxReply {
		reply = reply[:MaxReply]
	}

	return &Server{
		address:     a,
		logger:      l.With("module", "liveness"),
		reply:       reply,
		connTimeout: defaultConnTimeout,
	}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled or Accept fails,
// then closes the listener and waits for in-flight handshakes to finish.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping liveness listener...")
		_ = listen.Close()
	}()

	s.logger.Info(ctx, "Starting liveness listener", "address", listen.Addr().String())

	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.connTimeout)); err != nil {
		s.logger.Warn(ctx, "set deadline", "error", err)
		return
	}

	var b [1]byte
	if _, err := io.ReadFull(conn, b[:]); err != nil {
		s.logger.Debug(ctx, "handshake read failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	if _, err := conn.Write(s.reply); err != nil {
		s.logger.Debug(ctx, "handshake write failed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// Ping performs the client side of the handshake against address and returns
// the listener's reply.
func Ping(ctx context.Context, address string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultConnTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := conn.Write([]byte{1}); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	reply, err := io.ReadAll(io.LimitReader(conn, MaxReply))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	return string(reply), nil
}
