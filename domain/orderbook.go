package domain

import (
	"sync"
	"time"
)

// OrderBook is the local L2 mirror of one instrument.
//
// It has a single writer (the diff applier); the snapshot publisher takes the same
// lock only to copy the top levels out. Readers never touch it.
type OrderBook struct {
	Symbol *MarketSymbol
	Bids   *BookSide
	Asks   *BookSide

	version  uint64
	messages uint64
	rate     *UpdateRate
	mu      sync.Mutex
}

func NewOrderBook(symbol *MarketSymbol) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Bids:   NewBookSide(Side_Buy),
		Asks:   NewBookSide(Side_Sell),
		rate:   NewUpdateRate(DefaultRateWindow),
	}
}

func (ob *OrderBook) SideOf(side Side) *BookSide {
	if side == Side_Buy {
		return ob.Bids
	}
	return ob.Asks
}

// Mutate runs fn under the book lock and bumps the version.
func (ob *OrderBook) Mutate(fn func() error) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.version++
	return fn()
}

// CountMessage feeds the throughput estimator. It is called once for every
// frame of the session, whatever table it belongs to and whether it applied.
func (ob *OrderBook) CountMessage() {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.messages++
	ob.rate.Count()
}

// Messages is the number of frames counted so far.
func (ob *OrderBook) Messages() uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.messages
}

// Reset drops both sides; used when a partial replaces the book.
func (ob *OrderBook) Reset() {
	ob.Bids.Clear()
	ob.Asks.Clear()
}

func (ob *OrderBook) Version() uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.version
}

// TakeSnapshot copies the top limit levels of each side into an immutable Snapshot.
func (ob *OrderBook) TakeSnapshot(limit int) *Snapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return NewSnapshot(ob.Bids.Top(limit), ob.Asks.Top(limit), ob.version, ob.rate.Rate(), time.Now())
}
