// Package ipc is the local control channel of the daemon: one JSON request
// and one JSON reply per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/trafficaz.sock"

// Request is a control command.
type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

// Reply answers a Request.
type Reply struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Session uint64 `json:"session,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Handler func(ctx context.Context, req Request) Reply

type Server struct {
	path    string
	handler Handler
	log     *log.Logger
}

func NewServer(path string, handler Handler, logger *log.Logger) *Server {
	if path == "" {
		path = DefaultSocketPath
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{path: path, handler: handler, log: logger}
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is done, then removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	defer os.Remove(s.path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("Control socket listening", "path", s.path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn("Accept failed", "err", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.log.Debug("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Reply{Error: "malformed request"})
		return
	}

	s.log.Debug("Control command", "cmd", req.Cmd)
	reply := s.handler(ctx, req)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.log.Debug("Reply failed", "err", err)
	}
}

// Send delivers req to the daemon at path and waits for its reply.
func Send(ctx context.Context, path string, req Request) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
