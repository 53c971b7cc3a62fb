package feed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"meme-ledger/internal/domain"
)

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages; the server pings well within it.
	ReadTimeout time.Duration
	// Buffer is the capacity of the returned channel.
	Buffer int
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       90 * time.Second,
		Buffer:            1000,
	}
}

// Client follows a feed endpoint, reconnecting with exponential backoff.
type Client struct {
	endpoint string
	config   ClientConfig
	logger   zerolog.Logger
}

// NewClient creates a client for endpoint (ws:// or wss://). Tokens, if
// given, restrict the feed to those tokens.
func NewClient(endpoint string, tokens []domain.Address, config *ClientConfig, logger zerolog.Logger) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("feed url scheme %q: want ws or wss", u.Scheme)
	}
	if len(tokens) > 0 {
		q := u.Query()
		for _, t := range tokens {
			q.Add("token", t.String())
		}
		u.RawQuery = q.Encode()
	}

	return &Client{
		endpoint: u.String(),
		config:   cfg,
		logger:   logger.With().Str("component", "feed-client").Logger(),
	}, nil
}

// Subscribe dials the feed and returns a channel of events. The first
// dial must succeed; after that the connection is re-established until
// ctx is cancelled. The server does not replay, so events committed while
// disconnected are not delivered. The channel is closed when ctx is done.
func (c *Client) Subscribe(ctx context.Context) (<-chan *domain.Event, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan *domain.Event, c.config.Buffer)
	go c.run(ctx, conn, ch)
	return ch, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func (c *Client) run(ctx context.Context, conn *websocket.Conn, ch chan<- *domain.Event) {
	defer close(ch)

	// Unblock ReadJSON on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	reconnectDelay := c.config.ReconnectDelay

	for {
		err := c.read(ctx, conn, ch)
		stop()
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("feed connection lost")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}

			// Increase delay for next reconnect (exponential backoff)
			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			conn, err = c.dial(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("feed reconnect failed")
		}

		// Reset delay on successful reconnect
		reconnectDelay = c.config.ReconnectDelay
		stop = context.AfterFunc(ctx, func() { conn.Close() })
	}
}

// read forwards messages until the connection fails.
func (c *Client) read(ctx context.Context, conn *websocket.Conn, ch chan<- *domain.Event) error {
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		ev, err := msg.Event()
		if err != nil {
			c.logger.Debug().Err(err).Msg("skipping malformed feed message")
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
