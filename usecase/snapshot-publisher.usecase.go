package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
	promclient "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/prometheus"
)

var logger = logging.New("usecase")

const DefaultPublishInterval = time.Millisecond

// BookSource yields the book of the live session; it changes on every reconnect.
type BookSource interface {
	Book() *domain.OrderBook
}

// SnapshotPublisher copies the live book into immutable snapshots that readers
// load without locking. It is the only reader of the book lock.
type SnapshotPublisher struct {
	source   BookSource
	depth    int
	interval time.Duration

	current atomic.Pointer[domain.Snapshot]
	ready   chan struct{}
	once    sync.Once

	lastBook    *domain.OrderBook
	lastVersion uint64
}

func NewSnapshotPublisher(source BookSource, depth int, interval time.Duration) *SnapshotPublisher {
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	return &SnapshotPublisher{
		source:   source,
		depth:    depth,
		interval: interval,
		ready:    make(chan struct{}),
	}
}

func (p *SnapshotPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Publish()
		}
	}
}

// Publish takes a new snapshot if the book changed since the last one and
// reports whether it did.
func (p *SnapshotPublisher) Publish() bool {
	book := p.source.Book()
	if book == nil {
		return false
	}

	if book != p.lastBook {
		p.lastBook = book
		p.lastVersion = 0
		p.current.Store(domain.NewSnapshot(nil, nil, 0, 0, time.Now()))
	}

	if book.Version() == p.lastVersion {
		return false
	}

	snap := book.TakeSnapshot(p.depth)
	p.lastVersion = snap.Version
	p.current.Store(snap)

	p.observe(snap)
	return true
}

// Snapshot returns the latest published snapshot, nil before the first one.
func (p *SnapshotPublisher) Snapshot() *domain.Snapshot { return p.current.Load() }

// Ready is closed once a snapshot with both sides populated is published.
func (p *SnapshotPublisher) Ready() <-chan struct{} { return p.ready }

func (p *SnapshotPublisher) observe(snap *domain.Snapshot) {
	promclient.BookLevelsGauge.WithLabelValues("bid").Set(float64(len(snap.Bids)))
	promclient.BookLevelsGauge.WithLabelValues("ask").Set(float64(len(snap.Asks)))
	promclient.UpdatesPerSecondGauge.Set(snap.UpdateRate)

	bid, okBid := snap.BestBid()
	ask, okAsk := snap.BestAsk()
	if !okBid || !okAsk {
		return
	}

	p.once.Do(func() { close(p.ready) })

	if bid > ask {
		promclient.BookCrossedCounter.Inc()
		logger.Warn().
			Float64("best_bid", bid).
			Float64("best_ask", ask).
			Uint64("version", snap.Version).
			Msg("crossed book published")
	}
}
