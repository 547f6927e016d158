// internal/control/server.go
package control

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/magscan/internal/monitoring"
)

var ErrServerClosed = errors.New("control: server closed")

// MaxLineBytes caps a pending command line. A longer line is answered
// as unrecognized and the rest of it, up to the next newline, is dropped.
const MaxLineBytes = 1024

// Handler applies one command and returns the reply line.
type Handler interface {
	Handle(ctx context.Context, cmd Command) string
}

type ServerConfig struct {
	// IdleFlush is how long a partial line may sit before it is taken
	// as a complete command.
	IdleFlush    time.Duration
	PollInterval time.Duration
	WriteTimeout time.Duration
}

// Server accepts one client at a time and answers each line.
type Server struct {
	cfg ServerConfig
	ln  net.Listener
	h   Handler

	mu   sync.Mutex
	conn net.Conn
}

func NewServer(cfg ServerConfig, ln net.Listener, h Handler) (*Server, error) {
	if ln == nil || h == nil {
		return nil, errors.New("control: listener and handler required")
	}
	if cfg.IdleFlush <= 0 {
		cfg.IdleFlush = 200 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &Server{cfg: cfg, ln: ln, h: h}, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve runs until ctx is cancelled and then returns ErrServerClosed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.ln.Close()
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	defer stop()

	monitoring.Logf("[control] listening on %s", s.ln.Addr())
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.serveConn(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	monitoring.Logf("[control] client %s connected (conn=%s)", conn.RemoteAddr(), id)
	defer monitoring.Logf("[control] client %s disconnected (conn=%s)", conn.RemoteAddr(), id)

	var pending []byte
	discarding := false
	buf := make([]byte, 1024)

	for ctx.Err() == nil {
		wait := s.cfg.PollInterval
		if len(pending) > 0 {
			wait = s.cfg.IdleFlush
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))

		n, err := conn.Read(buf)
		chunk := buf[:n]
		if discarding {
			if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
				chunk = chunk[i+1:]
				discarding = false
			} else {
				chunk = nil
			}
		}
		pending = append(pending, chunk...)

		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := string(pending[:i])
			pending = pending[i+1:]
			if !s.reply(ctx, conn, id, line) {
				return
			}
		}

		if len(pending) > MaxLineBytes {
			monitoring.Logf("[control] conn=%s line over %d bytes dropped", id, MaxLineBytes)
			pending = nil
			discarding = true
			if !s.answer(ctx, conn, id, Command{Kind: Unrecognized}) {
				return
			}
		}

		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if n == 0 {
				// silence ends an oversized line too
				discarding = false
				if len(pending) > 0 {
					line := string(pending)
					pending = nil
					if !s.reply(ctx, conn, id, line) {
						return
					}
				}
			}
			continue
		}

		// peer gone; a trailing bare command still gets applied
		if len(pending) > 0 {
			s.reply(ctx, conn, id, string(pending))
		}
		return
	}
}

func (s *Server) reply(ctx context.Context, conn net.Conn, id, line string) bool {
	cmd := Parse(strings.TrimRight(line, "\r"))
	monitoring.Logf("[control] conn=%s command: %s", id, cmd)
	return s.answer(ctx, conn, id, cmd)
}

func (s *Server) answer(ctx context.Context, conn net.Conn, id string, cmd Command) bool {
	resp := s.h.Handle(ctx, cmd)

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write([]byte(resp + "\n")); err != nil {
		monitoring.Logf("[control] conn=%s reply failed: %v", id, err)
		return false
	}
	return true
}
