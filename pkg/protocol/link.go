package protocol

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

type Config struct {
	Shard          string
	URL            string
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
}

// Link is a websocket connection to the hub. Frames addressed to the shard
// or to ALL are handed to the Run callback; the link redials when the hub
// drops it.
type Link struct {
	cfg Config
	log *log.Logger

	mu   sync.Mutex // guards conn and serialises writes
	conn *ws.Conn
}

// Dial connects to the hub.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Link, error) {
	if cfg.Shard == "" || !isToken(cfg.Shard) {
		return nil, fmt.Errorf("invalid shard name %q", cfg.Shard)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	l := &Link{cfg: cfg, log: logger}
	conn, err := l.dial(ctx)
	if err != nil {
		return nil, err
	}
	l.conn = conn
	return l, nil
}

func (l *Link) Shard() string { return l.cfg.Shard }

func (l *Link) dial(ctx context.Context) (*ws.Conn, error) {
	l.log.Debug("Dialing hub", "url", l.cfg.URL)
	conn, _, err := ws.DefaultDialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial hub %s: %w", l.cfg.URL, err)
	}
	return conn, nil
}

// Send writes m with the link's shard as sender.
func (l *Link) Send(m *Message) error {
	m.From = l.cfg.Shard
	if err := m.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return errors.New("hub link closed")
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	if err := l.conn.WriteMessage(ws.TextMessage, []byte(m.String())); err != nil {
		l.log.Error("Failed to transmit", "msg", m.String(), "err", err)
		return fmt.Errorf("write frame: %w", err)
	}
	l.log.Debug("Write ws", "msg", m.String())
	return nil
}

// Run reads frames until ctx is done, redialing after connection loss.
func (l *Link) Run(ctx context.Context, onMessage func(*Message)) error {
	go func() {
		<-ctx.Done()
		l.close()
	}()

	for {
		conn := l.current()
		if conn == nil {
			return ctx.Err()
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("Hub connection lost, reconnecting", "url", l.cfg.URL, "err", err)
			if err := l.reconnect(ctx); err != nil {
				return err
			}
			l.log.Info("Reconnected to hub")
			continue
		}

		line := string(raw)
		if !l.addressed(line) {
			continue
		}

		msg, err := Parse(line)
		if err != nil {
			l.log.Warn("Failed to parse", "msg", line, "err", err)
			continue
		}
		onMessage(msg)
	}
}

func (l *Link) addressed(line string) bool {
	to, _, _ := strings.Cut(line, ":")
	return to == l.cfg.Shard || to == Broadcast
}

func (l *Link) current() *ws.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *Link) reconnect(ctx context.Context) error {
	l.mu.Lock()
	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.ReconnectDelay):
		}

		conn, err := l.dial(ctx)
		if err != nil {
			l.log.Debug("Reconnect failed", "err", err)
			continue
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if ctx.Err() != nil {
			_ = conn.Close()
			return ctx.Err()
		}
		l.conn = conn
		return nil
	}
}

func (l *Link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		_ = l.conn.Close()
		l.conn = nil
	}
}
