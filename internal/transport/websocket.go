package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

const websocketPath = "/voting/ws"

type Websocket struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewWebsocket targets <baseURL>/voting/ws. http and https base URLs are
// mapped to ws and wss.
func NewWebsocket(baseURL string, logger *slog.Logger) (*Websocket, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	u.Path += websocketPath

	if logger == nil {
		logger = slog.Default()
	}
	return &Websocket{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

func (w *Websocket) URL() string { return w.url }

func (w *Websocket) Run(ctx context.Context, onConnected func(), onUpdate func(models.TallyUpdateEvent)) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(models.PushMessage{Event: models.EventSubscribeVoting}); err != nil {
		return fmt.Errorf("%w: subscribe: %v", ErrUnavailable, err)
	}
	w.logger.Info("push transport connected", "event", "push_connected", "transport", "websocket", "url", w.url)
	onConnected()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		ev, ok, err := Decode(raw)
		if err != nil {
			w.logger.Warn("dropping push frame", "event", "push_frame_invalid", "error", err.Error())
			continue
		}
		if ok {
			onUpdate(ev)
		}
	}
}
