package usecase

import (
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
)

// Feed is what the service reads from: the supervisor satisfies it.
type Feed interface {
	BookSource
	Tables() *domain.TableStorage
}

type OrderBookService struct {
	feed      Feed
	publisher *SnapshotPublisher
}

func NewOrderBookService(feed Feed, publisher *SnapshotPublisher) *OrderBookService {
	return &OrderBookService{
		feed:      feed,
		publisher: publisher,
	}
}

func (s *OrderBookService) Snapshot() *domain.Snapshot { return s.publisher.Snapshot() }

func (s *OrderBookService) Ready() <-chan struct{} { return s.publisher.Ready() }

func (s *OrderBookService) BestBid() (float64, bool) { return s.Snapshot().BestBid() }

func (s *OrderBookService) BestAsk() (float64, bool) { return s.Snapshot().BestAsk() }

func (s *OrderBookService) MidPrice() (float64, bool) { return s.Snapshot().MidPrice() }

func (s *OrderBookService) BBOVolumes() (uint64, uint64, bool) { return s.Snapshot().BBOVolumes() }

func (s *OrderBookService) Ratio(depth int) (float64, error) { return s.Snapshot().Ratio(depth) }

func (s *OrderBookService) LeveledView(depth int) ([]domain.LevelRecord, error) {
	return s.Snapshot().LeveledView(depth)
}

func (s *OrderBookService) LeveledViewJSON(depth int) (string, error) {
	return s.Snapshot().LeveledViewJSON(depth)
}

func (s *OrderBookService) tables() (*domain.TableStorage, error) {
	t := s.feed.Tables()
	if t == nil {
		return nil, domain.ErrNotReady
	}
	return t, nil
}

func (s *OrderBookService) Instrument() (domain.Row, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.Instrument()
}

func (s *OrderBookService) Ticker() (*domain.Ticker, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.Ticker()
}

func (s *OrderBookService) Funds() (domain.Row, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.Funds()
}

func (s *OrderBookService) MarketDepth() (domain.Row, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.MarketDepth()
}

func (s *OrderBookService) OpenOrders(clOrdIDPrefix string) ([]domain.Row, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.OpenOrders(clOrdIDPrefix)
}

func (s *OrderBookService) RecentTrades() ([]domain.Row, error) {
	t, err := s.tables()
	if err != nil {
		return nil, err
	}
	return t.RecentTrades()
}
