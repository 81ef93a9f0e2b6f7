package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/liquidwatch/engine/internal/domain"
)

// Handlers are the three synchronous downstream steps C4 invokes in order
// for every decoded liquidation event.
type Handlers struct {
	Persist func(ctx context.Context, l domain.Liquidation)
	Cascade func(l domain.Liquidation)
	FanOut  func(ctx context.Context, l domain.Liquidation)
}

// Metrics is the subset of the observability surface the ingest path
// touches. Nil is safe.
type Metrics interface {
	EventIngested(shard int)
	ParseFailure(shard int)
}

// shard owns one combined WebSocket connection for at most shardSize
// symbols: dial, then run the message loop and ping loop side by side,
// tracking connection state as an explicit field.
type shard struct {
	index    int
	symbols  []string
	baseURL  string
	handlers Handlers
	metrics  Metrics

	pingInterval time.Duration
	backoff      time.Duration

	state atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
}

func newShard(index int, symbols []string, baseURL string, handlers Handlers, metrics Metrics, ping, backoff time.Duration) *shard {
	return &shard{
		index:        index,
		symbols:      symbols,
		baseURL:      baseURL,
		handlers:     handlers,
		metrics:      metrics,
		pingInterval: ping,
		backoff:      backoff,
	}
}

func (s *shard) setState(st ConnectionState) {
	s.state.Store(int32(st))
}

func (s *shard) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

func (s *shard) streamURL() string {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "usdt@forceOrder"
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))
}

// run drives the Connecting -> Open -> Closed -> Connecting loop until ctx
// is cancelled. A deliberate close via forceClose is indistinguishable from
// a transport error to this loop: both simply trigger the same backoff and
// reconnect.
func (s *shard) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.setState(Closed)
			return
		}

		s.setState(Connecting)
		conn, err := s.dial(ctx)
		if err != nil {
			log.Warn().Err(err).Int("shard", s.index).Msg("shard dial failed, backing off")
			if !sleepOrDone(ctx, s.backoff) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.setState(Open)
		log.Info().Int("shard", s.index).Int("symbols", len(s.symbols)).Msg("shard connected")

		pingDone := make(chan struct{})
		go s.pingLoop(ctx, conn, pingDone)

		s.readLoop(ctx, conn)
		close(pingDone)

		s.setState(Closed)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		if !sleepOrDone(ctx, s.backoff) {
			return
		}
	}
}

func (s *shard) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.streamURL())
	if err != nil {
		return nil, fmt.Errorf("invalid shard URL: %w", err)
	}

	dialer := websocket.DefaultDialer
	headers := map[string][]string{
		"User-Agent": {userAgent},
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *shard) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.State() != Open {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			// Closing the socket unblocks readLoop's ReadMessage.
			conn.Close()
			return
		}
	}
}

// readLoop blocks decoding frames until the connection errors or closes.
// Each valid forceOrder frame runs the three downstream handlers
// synchronously in the persist -> cascade -> fan-out order C4 requires.
func (s *shard) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame forceOrderFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Debug().Err(err).Int("shard", s.index).Msg("failed to decode frame, skipping")
			if s.metrics != nil {
				s.metrics.ParseFailure(s.index)
			}
			continue
		}

		liquidation, ok := frame.toLiquidation()
		if !ok {
			continue
		}
		if !liquidation.Valid() {
			log.Debug().Int("shard", s.index).Str("symbol", liquidation.Symbol).Msg("dropping malformed liquidation event")
			if s.metrics != nil {
				s.metrics.ParseFailure(s.index)
			}
			continue
		}

		if s.metrics != nil {
			s.metrics.EventIngested(s.index)
		}

		s.handlers.Persist(ctx, liquidation)
		s.handlers.Cascade(liquidation)
		s.handlers.FanOut(ctx, liquidation)
	}
}

// forceClose triggers the transport error path that run() treats as a
// planned refresh: it never toggles a "deliberate" flag, it just closes the
// socket and lets the ordinary backoff-and-reconnect loop take over.
func (s *shard) forceClose() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.setState(Closing)
		conn.Close()
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

const userAgent = "Mozilla/5.0 (compatible; liquidwatch/1.0)"
