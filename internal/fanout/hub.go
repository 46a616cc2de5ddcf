// Package fanout is the subscription/broadcast layer of spec.md §4.6: two
// independent channels (market-data, trades), each with push (socket-like)
// and pull (bounded-queue) consumers, evicted on any send failure —
// intentionally lossy, no buffering tier beyond the pull queue's own
// capacity.
//
// It generalizes the teacher's internal/net/server.go ClientSession
// registry: a map of subscriber id to send target, guarded by one mutex,
// with "write failed -> delete the entry" as the uniform eviction rule.
// Where the teacher had one net.Conn per trader, this has one Consumer per
// streaming subscriber; the heartbeat task reuses the teacher's
// tomb.Tomb-supervised loop from internal/worker.go.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

// PushConsumer is a socket-like streaming sink. Send returning an error
// evicts the consumer; it is never retried.
type PushConsumer interface {
	Send(frame []byte) error
}

// PullConsumer is a bounded-queue sink for line-delimited/polling
// transports. Offer is a non-blocking send; a full queue evicts the
// consumer rather than blocking the broadcaster or dropping another
// consumer's message.
type PullConsumer struct {
	ch chan []byte
}

// NewPullConsumer allocates a bounded queue of the given capacity.
func NewPullConsumer(capacity int) *PullConsumer {
	return &PullConsumer{ch: make(chan []byte, capacity)}
}

// C exposes the receive side for the caller's polling loop.
func (p *PullConsumer) C() <-chan []byte { return p.ch }

func (p *PullConsumer) offer(frame []byte) bool {
	select {
	case p.ch <- frame:
		return true
	default:
		return false
	}
}

type subscriber struct {
	push PushConsumer
	pull *PullConsumer
}

func (s subscriber) send(frame []byte) bool {
	if s.push != nil {
		return s.push.Send(frame) == nil
	}
	return s.pull.offer(frame)
}

// Hub is the registry of market-data and trade subscribers. One mutex
// guards both registries (spec.md §4.6 "Register/unregister are
// synchronized on a single shared mutex"); it is leaf-level and never
// held while a matching-engine symbol lock is held.
type Hub struct {
	log               zerolog.Logger
	heartbeatInterval time.Duration

	mu         sync.Mutex
	marketData map[string]subscriber
	trades     map[string]subscriber

	t *tomb.Tomb
}

// New constructs an empty Hub. heartbeatInterval defaults to 10s if <= 0.
func New(logger zerolog.Logger, heartbeatInterval time.Duration) *Hub {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 10 * time.Second
	}
	return &Hub{
		log:               logger,
		heartbeatInterval: heartbeatInterval,
		marketData:        make(map[string]subscriber),
		trades:            make(map[string]subscriber),
	}
}

// SubscribeMarketDataPush registers a push consumer of book snapshots.
func (h *Hub) SubscribeMarketDataPush(id string, c PushConsumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marketData[id] = subscriber{push: c}
}

// SubscribeMarketDataPull registers and returns a pull consumer of book
// snapshots with the given queue capacity.
func (h *Hub) SubscribeMarketDataPull(id string, capacity int) *PullConsumer {
	pc := NewPullConsumer(capacity)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marketData[id] = subscriber{pull: pc}
	return pc
}

// SubscribeTradesPush registers a push consumer of trade prints.
func (h *Hub) SubscribeTradesPush(id string, c PushConsumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades[id] = subscriber{push: c}
}

// SubscribeTradesPull registers and returns a pull consumer of trade
// prints with the given queue capacity.
func (h *Hub) SubscribeTradesPull(id string, capacity int) *PullConsumer {
	pc := NewPullConsumer(capacity)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades[id] = subscriber{pull: pc}
	return pc
}

// UnsubscribeMarketData removes id from the market-data registry.
func (h *Hub) UnsubscribeMarketData(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.marketData, id)
}

// UnsubscribeTrades removes id from the trades registry.
func (h *Hub) UnsubscribeTrades(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.trades, id)
}

// BroadcastMarketData encodes a depth-bounded L2 snapshot for symbol and
// sends it to every market-data subscriber, in registration-map order.
// Ordering across broadcasts for one symbol is preserved because the
// engine only ever calls this from one goroutine per symbol's post-batch
// housekeeping at a time (spec.md §4.2/§5).
func (h *Hub) BroadcastMarketData(symbol string, bids, asks []common.Level) {
	frame := encodeMarketData(symbol, bids, asks)
	h.broadcast(h.marketData, frame, func(id string) { h.UnsubscribeMarketData(id) })
}

// BroadcastTrades encodes a batch of trade prints for symbol and sends it
// to every trades subscriber.
func (h *Hub) BroadcastTrades(symbol string, trades []common.Trade) {
	if len(trades) == 0 {
		return
	}
	frame := encodeTrades(symbol, trades)
	h.broadcast(h.trades, frame, func(id string) { h.UnsubscribeTrades(id) })
}

func (h *Hub) broadcast(registry map[string]subscriber, frame []byte, evict func(string)) {
	h.mu.Lock()
	targets := make(map[string]subscriber, len(registry))
	for id, s := range registry {
		targets[id] = s
	}
	h.mu.Unlock()

	for id, s := range targets {
		if !s.send(frame) {
			h.log.Error().Str("subscriberID", id).Msg("fanout: evicting unresponsive subscriber")
			evict(id)
		}
	}
}

// Start brings up the heartbeat task under its own tomb, the same
// supervised-loop idiom the teacher uses for its connection workers.
func (h *Hub) Start(ctx context.Context) {
	t, ctx := tomb.WithContext(ctx)
	h.t = t
	t.Go(func() error {
		return h.runHeartbeatLoop(t)
	})
}

// Stop cancels the heartbeat task.
func (h *Hub) Stop() {
	if h.t != nil {
		h.t.Kill(nil)
		_ = h.t.Wait()
	}
}

func (h *Hub) runHeartbeatLoop(t *tomb.Tomb) error {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			frame := encodeHeartbeat(money.Now())
			h.broadcast(h.marketData, frame, func(id string) { h.UnsubscribeMarketData(id) })
			h.broadcast(h.trades, frame, func(id string) { h.UnsubscribeTrades(id) })
		}
	}
}
