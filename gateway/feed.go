package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portfolio-trader-go/infrastructure/logger"
	"portfolio-trader-go/order"
)

const (
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	reconnectInitial = time.Second
	reconnectMax     = 30 * time.Second
)

// Feed is the websocket implementation of Venue. It keeps one connection
// to the venue, pushes parsed events into a channel and serialises
// outbound submissions. Read errors trigger reconnection with capped
// backoff until Close is called.
type Feed struct {
	url    string
	log    *logger.Logger
	dialer *websocket.Dialer

	events chan Event

	mu   sync.Mutex
	conn *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the venue feed and starts the read loop.
func Dial(url string, log *logger.Logger) (*Feed, error) {
	if url == "" {
		return nil, errors.New("venue url required")
	}
	f := &Feed{
		url:    url,
		log:    log,
		dialer: websocket.DefaultDialer,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	conn, _, err := f.dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	f.conn = conn

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.readLoop(ctx)
	return f, nil
}

func (f *Feed) Events() <-chan Event { return f.events }

// Submit sends a limit or cancel order over the connection.
func (f *Feed) Submit(o order.Order) error {
	raw, err := EncodeOrder(o)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return errors.New("feed not connected")
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close tears the connection down and closes the event channel.
func (f *Feed) Close() error {
	f.cancel()
	f.mu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.mu.Unlock()
	<-f.done
	return nil
}

func (f *Feed) readLoop(ctx context.Context) {
	defer close(f.done)
	defer close(f.events)

	backoff := reconnectInitial
	for {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()

		if conn != nil {
			backoff = reconnectInitial
			f.readConn(ctx, conn)
		}
		if ctx.Err() != nil {
			return
		}

		f.log.Warn("Feed disconnected, reconnecting", zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > reconnectMax {
			backoff = reconnectMax
		}

		conn, _, err := f.dialer.Dial(f.url, nil)
		if err != nil {
			f.log.Error("Feed reconnect failed", zap.Error(err))
			f.mu.Lock()
			f.conn = nil
			f.mu.Unlock()
			continue
		}
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
	}
}

func (f *Feed) readConn(ctx context.Context, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.log.Error("Feed read failed", zap.Error(err))
			}
			_ = conn.Close()
			return
		}
		ev, err := ParseMessage(raw)
		if err != nil {
			// A malformed message is the venue's problem; skip it.
			f.log.Warn("Feed message dropped", zap.Error(err))
			continue
		}
		select {
		case f.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
