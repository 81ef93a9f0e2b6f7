// Package ingest is the C4 stream-ingest component: a sharded WebSocket
// manager that partitions the tracked symbol universe into chunks of at
// most 50, maintains one connection per chunk, and invokes persist,
// cascade, and fan-out synchronously for every decoded event.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager owns every shard. The planned connection refresh is driven
// externally by the scheduler's connection_refresh job, which calls
// Refresh; Manager itself carries no refresh ticker.
type Manager struct {
	baseURL   string
	shardSize int

	pingInterval time.Duration
	backoff      time.Duration

	handlers Handlers
	metrics  Metrics

	shards []*shard
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(baseURL string, shardSize int, ping, backoff time.Duration, handlers Handlers, metrics Metrics) *Manager {
	return &Manager{
		baseURL:      baseURL,
		shardSize:    shardSize,
		pingInterval: ping,
		backoff:      backoff,
		handlers:     handlers,
		metrics:      metrics,
	}
}

// chunk partitions symbols into groups of at most size, per §4.4 sharding.
func chunk(symbols []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[i:end])
	}
	return chunks
}

// Start partitions symbols and launches one goroutine per shard. It returns
// once every shard has started dialing; it does not block for the
// connections to succeed.
func (m *Manager) Start(ctx context.Context, symbols []string) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i, group := range chunk(symbols, m.shardSize) {
		s := newShard(i, group, m.baseURL, m.handlers, m.metrics, m.pingInterval, m.backoff)
		m.shards = append(m.shards, s)

		m.wg.Add(1)
		go func(s *shard) {
			defer m.wg.Done()
			s.run(ctx)
		}(s)
	}

	log.Info().Int("shards", len(m.shards)).Int("symbols", len(symbols)).Msg("ingest manager started")
}

// Refresh forces every shard's socket closed, since the upstream
// unilaterally closes sockets after 24h and an eager refresh avoids a
// thundering reconnect storm across every shard at once. The scheduler's
// connection_refresh job is the sole caller, on a 24h cadence.
func (m *Manager) Refresh() {
	log.Info().Int("shards", len(m.shards)).Msg("performing planned connection refresh")
	for _, s := range m.shards {
		s.forceClose()
	}
}

// Stop cancels every shard, which closes its socket, and waits for every
// shard goroutine to return. The wait itself has no timeout.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// States returns the current per-shard state, used by the health endpoint.
func (m *Manager) States() []ConnectionState {
	states := make([]ConnectionState, len(m.shards))
	for i, s := range m.shards {
		states[i] = s.State()
	}
	return states
}
