package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"predict_go/internal/domain"
	"predict_go/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectInterval = 5 * time.Second
	defaultMaxReconnects     = 10
	defaultHandshakeTimeout  = 10 * time.Second
)

// Config holds streaming-connection settings.
type Config struct {
	URL                  string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	// ReadTimeout of zero disables the read deadline. Quiet markets can be
	// silent for long stretches, so there is no default.
	ReadTimeout time.Duration
}

// DefaultConfig returns the standard client settings for a venue URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		ReconnectInterval:    defaultReconnectInterval,
		MaxReconnectAttempts: defaultMaxReconnects,
		HandshakeTimeout:     defaultHandshakeTimeout,
	}
}

// Client owns the single persistent websocket connection to the venue.
// It decodes inbound frames, routes them through the subscription registry,
// and reconnects with a fixed delay when the connection drops unexpectedly.
// The fixed (not exponential) delay keeps recovery time bounded, which the
// strategy engines assume.
type Client struct {
	cfg      Config
	registry *Registry
	metrics  *infra.Metrics

	mu         sync.RWMutex
	conn       *websocket.Conn
	connected  bool
	connecting bool
	stopped    bool // set by Disconnect; suppresses reconnection
	attempts   int

	writeMu sync.Mutex
	errMu   sync.RWMutex
	onError func(error)
	wg      sync.WaitGroup
}

// NewClient creates a streaming client over the given registry.
// metrics may be nil.
func NewClient(cfg Config, registry *Registry, metrics *infra.Metrics) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnects
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Client{cfg: cfg, registry: registry, metrics: metrics}
}

// Registry exposes the subscription registry shared with the engines.
func (c *Client) Registry() *Registry {
	return c.registry
}

// OnError registers the handler invoked when reconnection is exhausted.
func (c *Client) OnError(h func(error)) {
	c.errMu.Lock()
	c.onError = h
	c.errMu.Unlock()
}

// Connect establishes the transport. It is idempotent: a no-op while open
// or while another connect attempt is in flight. On success the reconnect
// counter resets and every registered subscription is replayed, batched by
// channel. On failure the connection is left down, a reconnect is
// scheduled, and the dial error is returned.
func (c *Client) Connect(ctx context.Context) error {
	return c.connect(ctx, true)
}

// connect is the shared open path. Only a user-initiated Connect clears the
// stopped flag; the internal retry path backs off the moment Disconnect has
// run, including when the race lands mid-dial.
func (c *Client) connect(ctx context.Context, userInitiated bool) error {
	c.mu.Lock()
	if c.connected || c.connecting {
		c.mu.Unlock()
		return nil
	}
	if userInitiated {
		c.stopped = false
	} else if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		c.scheduleReconnect(ctx)
		return domain.NewTransportError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	c.mu.Lock()
	if c.stopped {
		// Disconnect raced the dial; drop the fresh connection.
		c.connecting = false
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.connecting = false
	c.attempts = 0
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetConnected(true)
	}

	if err := c.resubscribe(); err != nil {
		slog.Warn("subscription replay failed", slog.Any("error", err))
	}

	c.wg.Add(1)
	go c.readLoop(ctx)

	slog.Info("stream connected", slog.String("url", c.cfg.URL))
	return nil
}

// Disconnect closes the transport and suppresses reconnection. Safe to
// call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.closeConn()
	c.wg.Wait()
}

// IsConnected reports whether the transport is currently open.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SubscribeOrderBook registers handler for each asset's book channel and,
// if connected, sends the subscribe frame immediately. While disconnected
// the subscription is latent and applied on the next successful connect.
func (c *Client) SubscribeOrderBook(assetIDs []string, handler domain.OrderBookHandler) error {
	c.registry.AddBook(assetIDs, handler)
	c.updateTrackedGauge()
	if !c.IsConnected() {
		return nil
	}
	return c.writeFrame(subscribeFrame{Type: frameSubscribe, Channel: ChannelBook, AssetIDs: assetIDs})
}

// SubscribePrice registers handler for each asset's price channel.
func (c *Client) SubscribePrice(assetIDs []string, handler domain.PriceHandler) error {
	c.registry.AddPrice(assetIDs, handler)
	c.updateTrackedGauge()
	if !c.IsConnected() {
		return nil
	}
	return c.writeFrame(subscribeFrame{Type: frameSubscribe, Channel: ChannelPrice, AssetIDs: assetIDs})
}

// Unsubscribe removes all book and price handlers for the given assets
// and, if connected, tells the venue to stop sending their updates.
func (c *Client) Unsubscribe(assetIDs []string) error {
	c.registry.Remove(assetIDs)
	c.updateTrackedGauge()
	if !c.IsConnected() {
		return nil
	}
	return c.writeFrame(subscribeFrame{Type: frameUnsubscribe, AssetIDs: assetIDs})
}

func (c *Client) updateTrackedGauge() {
	if c.metrics == nil {
		return
	}
	seen := make(map[string]struct{})
	for _, id := range c.registry.BookAssets() {
		seen[id] = struct{}{}
	}
	for _, id := range c.registry.PriceAssets() {
		seen[id] = struct{}{}
	}
	c.metrics.SetTrackedAssets(int32(len(seen)))
}

// resubscribe replays the registry after a (re)connect, one frame per channel.
func (c *Client) resubscribe() error {
	if books := c.registry.BookAssets(); len(books) > 0 {
		if err := c.writeFrame(subscribeFrame{Type: frameSubscribe, Channel: ChannelBook, AssetIDs: books}); err != nil {
			return err
		}
	}
	if prices := c.registry.PriceAssets(); len(prices) > 0 {
		if err := c.writeFrame(subscribeFrame{Type: frameSubscribe, Channel: ChannelPrice, AssetIDs: prices}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) writeFrame(frame subscribeFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return domain.NewTransportError("write", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}
		if c.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.closeConn()
			c.mu.RLock()
			stopped := c.stopped
			c.mu.RUnlock()
			if stopped || ctx.Err() != nil {
				return
			}
			slog.Warn("stream read failed", slog.Any("error", err))
			c.scheduleReconnect(ctx)
			return
		}
		c.handleMessage(msg)
	}
}

// scheduleReconnect runs the fixed-delay retry policy. Once the attempt
// counter reaches the ceiling it stops and surfaces a terminal error to
// the registered error handler exactly once.
func (c *Client) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordReconnect()
	}

	if attempt >= c.cfg.MaxReconnectAttempts {
		slog.Error("reconnect attempts exhausted", slog.Int("attempts", attempt))
		c.errMu.RLock()
		h := c.onError
		c.errMu.RUnlock()
		if h != nil {
			h(domain.NewFatalTransportError("reconnect", domain.ErrReconnectExhausted))
		}
		return
	}

	slog.Warn("scheduling reconnect",
		slog.Int("attempt", attempt),
		slog.Duration("delay", c.cfg.ReconnectInterval))

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectInterval):
		}
		c.connect(ctx, false)
	}()
}

func (c *Client) handleMessage(msg []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Warn("dropping malformed frame", slog.Any("error", err))
		if c.metrics != nil {
			c.metrics.RecordDecodeError()
		}
		return
	}

	switch frame.Type {
	case frameBook:
		c.handleBook(frame)
	case framePriceChange:
		c.handlePrice(frame)
	default:
		// Acks and unknown frame types are ignored.
	}
}

func (c *Client) handleBook(frame inboundFrame) {
	book := domain.OrderBook{
		Market:    frame.Market,
		AssetID:   frame.AssetID,
		Bids:      []domain.OrderBookEntry{},
		Asks:      []domain.OrderBookEntry{},
		Timestamp: time.Now(),
	}
	if len(frame.Data) > 0 {
		var payload bookPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			slog.Warn("dropping malformed book frame",
				slog.String("asset_id", frame.AssetID), slog.Any("error", err))
			if c.metrics != nil {
				c.metrics.RecordDecodeError()
			}
			return
		}
		if payload.Bids != nil {
			book.Bids = payload.Bids
		}
		if payload.Asks != nil {
			book.Asks = payload.Asks
		}
		if ts, ok := parseMillis(payload.Timestamp); ok {
			book.Timestamp = ts
		}
	}
	if c.metrics != nil {
		c.metrics.RecordFrame()
	}
	for _, h := range c.registry.BookHandlers(frame.AssetID) {
		h(book)
	}
}

func (c *Client) handlePrice(frame inboundFrame) {
	var payload pricePayload
	if len(frame.Data) == 0 || json.Unmarshal(frame.Data, &payload) != nil || payload.Price == "" {
		slog.Warn("dropping malformed price frame", slog.String("asset_id", frame.AssetID))
		if c.metrics != nil {
			c.metrics.RecordDecodeError()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordFrame()
	}
	for _, h := range c.registry.PriceHandlers(frame.AssetID) {
		h(frame.AssetID, payload.Price)
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	if c.metrics != nil {
		c.metrics.SetConnected(false)
	}
}

// parseMillis parses a millisecond-epoch timestamp string from the wire.
func parseMillis(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
