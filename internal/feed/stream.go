package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"token-feature-engine/internal/domain"
)

// StreamConfig configures live stream behavior.
type StreamConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns the default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// LiveStream consumes a live transfer feed over WebSocket. Disconnects
// trigger reconnection with exponential backoff and resubscription to the
// tracked mints; malformed frames are logged and skipped rather than
// terminating the stream.
type LiveStream struct {
	endpoint string
	config   StreamConfig
	logger   Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// mints tracks subscribed tokens for resubscription after reconnect
	mints   map[string]struct{}
	mintsMu sync.Mutex

	events chan *domain.TransferEvent

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// Logger is the minimal logging surface the stream needs.
type Logger interface {
	Printf(format string, v ...interface{})
}

// NewLiveStream connects to the endpoint and starts the reader and ping
// loops.
func NewLiveStream(ctx context.Context, endpoint string, logger Logger, config *StreamConfig) (*LiveStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &LiveStream{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		mints:    make(map[string]struct{}),
		events:   make(chan *domain.TransferEvent, 10000),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

func (s *LiveStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket dial: %v", ErrUpstreamUnavailable, err)
	}

	s.conn = conn
	return nil
}

// Events returns the stream of mapped transfer events. The channel is
// closed on Close.
func (s *LiveStream) Events() <-chan *domain.TransferEvent {
	return s.events
}

// Subscribe adds mints to the tracked set and sends the subscription
// frame. Mints must be valid base58 addresses.
func (s *LiveStream) Subscribe(mints ...string) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	for _, mint := range mints {
		if _, err := decodePubkey(mint); err != nil {
			return fmt.Errorf("%w: mint: %v", ErrUpstreamMalformed, err)
		}
	}

	s.mintsMu.Lock()
	for _, mint := range mints {
		s.mints[mint] = struct{}{}
	}
	s.mintsMu.Unlock()

	return s.writeSubscribe(mints)
}

func (s *LiveStream) writeSubscribe(mints []string) error {
	req := streamRequest{Op: "subscribe", Mints: mints}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("%w: not connected", ErrUpstreamUnavailable)
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%w: write subscribe: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// Close closes the connection and the event channel.
func (s *LiveStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.events)
	return nil
}

// readLoop reads frames and dispatches transfer events.
func (s *LiveStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay
		s.handleMessage(message)
	}
}

func (s *LiveStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Will retry on the next read error
		return
	}

	s.mintsMu.Lock()
	mints := make([]string, 0, len(s.mints))
	for mint := range s.mints {
		mints = append(mints, mint)
	}
	s.mintsMu.Unlock()

	if len(mints) > 0 {
		if err := s.writeSubscribe(mints); err != nil {
			s.logger.Printf("resubscribe after reconnect failed: %v", err)
		}
	}
}

func (s *LiveStream) handleMessage(message []byte) {
	var frame streamFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		s.logger.Printf("malformed stream frame: %v", err)
		return
	}
	if frame.Type != "transfer" {
		return
	}

	ev, err := mapTransfer(frame.Data)
	if err != nil {
		s.logger.Printf("malformed stream transfer: %v", err)
		return
	}

	// Block until delivered: the buffer absorbs bursts, and dropping
	// events would corrupt first-appearance holder counts downstream.
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// pingLoop keeps the connection alive.
func (s *LiveStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Reader will notice the dead connection and reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

type streamRequest struct {
	Op    string   `json:"op"`
	Mints []string `json:"mints"`
}

type streamFrame struct {
	Type string       `json:"type"`
	Data transferWire `json:"data"`
}
