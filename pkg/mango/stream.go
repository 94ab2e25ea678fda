package mango

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var streamLog = logrus.WithField("component", "fills-stream")

const reconnectDelay = 3 * time.Second

// FillEvent is one fill notification from the venue fills feed.
type FillEvent struct {
	Market          string          `json:"market"`
	Account         string          `json:"account"`
	ExchangeOrderID string          `json:"orderID"`
	ClientOrderID   uint64          `json:"clientOrderID"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"amount"`
	IsMaker         bool            `json:"isMaker"`
}

// FillsStream consumes the venue's websocket fills feed. The feed pushes
// fills for every account in the group; consumers filter by account.
//
// The stream reconnects on read errors until Close is called. Fills missed
// while disconnected are not replayed; the tracker state converges again
// through the history read paths.
type FillsStream struct {
	endpoint string

	fillCallbacks []func(e FillEvent)

	mu     sync.Mutex
	conn   *websocket.Conn
	closeC chan struct{}
	closed bool
}

func NewFillsStream(endpoint string) *FillsStream {
	return &FillsStream{
		endpoint: endpoint,
		closeC:   make(chan struct{}),
	}
}

// OnFill registers a fill callback. Register before Connect; callbacks run
// on the read loop goroutine.
func (s *FillsStream) OnFill(cb func(e FillEvent)) {
	s.fillCallbacks = append(s.fillCallbacks, cb)
}

func (s *FillsStream) EmitFill(e FillEvent) {
	for _, cb := range s.fillCallbacks {
		cb(e)
	}
}

// Connect dials the feed and starts the read loop. The first dial failure is
// returned so that initialization can report it; later failures trigger
// reconnection instead.
func (s *FillsStream) Connect(ctx context.Context) error {
	conn, err := s.dial()
	if err != nil {
		return err
	}

	s.setConn(conn)
	go s.read(ctx)
	return nil
}

func (s *FillsStream) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(s.endpoint, nil)
	return conn, err
}

func (s *FillsStream) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
}

func (s *FillsStream) read(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeC:
			return
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				return
			}

			streamLog.WithError(err).Warn("fills feed read error, reconnecting")
			s.reconnect(ctx)
			continue
		}

		var e FillEvent
		if err := json.Unmarshal(message, &e); err != nil {
			streamLog.WithError(err).Warn("can not parse fill event")
			continue
		}

		s.EmitFill(e)
	}
}

func (s *FillsStream) reconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeC:
			return
		case <-time.After(reconnectDelay):
		}

		conn, err := s.dial()
		if err != nil {
			streamLog.WithError(err).Warn("fills feed reconnect failed")
			continue
		}

		s.setConn(conn)
		return
	}
}

func (s *FillsStream) isClosed() bool {
	select {
	case <-s.closeC:
		return true
	default:
		return false
	}
}

func (s *FillsStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeC)

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
