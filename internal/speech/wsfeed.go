package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// FeedMessage is a frame sent by a remote recognizer, usually the phone app
// running the platform speech engine.
type FeedMessage struct {
	From    string `json:"from"`
	Kind    string `json:"kind"` // partial, final, error
	Content string `json:"content"`
}

// WSFeed is a Recognizer reading transcripts from a websocket.
type WSFeed struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSFeed(wsURL string, logger *slog.Logger) (*WSFeed, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("feed url must be ws:// or wss://, got %q", wsURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WSFeed{url: u.String(), logger: logger}, nil
}

func (f *WSFeed) Start(ctx context.Context, onResult func(Result), onError func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	f.conn = conn

	f.logger.Info("Connected to transcript feed", "url", f.url)

	go f.read(conn, onResult, onError)
	return nil
}

func (f *WSFeed) Stop() error {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (f *WSFeed) read(conn *websocket.Conn, onResult func(Result), onError func(error)) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.current() != conn {
				// closed by Stop
				return
			}
			f.mu.Lock()
			f.conn = nil
			f.mu.Unlock()
			_ = conn.Close()
			onError(fmt.Errorf("feed read: %w", err))
			return
		}

		var m FeedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			f.logger.Warn("Dropping malformed feed frame", "err", err)
			continue
		}

		switch m.Kind {
		case "partial":
			onResult(Result{Text: m.Content})
		case "final":
			onResult(Result{Text: m.Content, Final: true})
		case "error":
			onError(errors.New(m.Content))
		default:
			f.logger.Debug("Ignoring feed frame", "kind", m.Kind)
		}
	}
}

func (f *WSFeed) current() *websocket.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}
