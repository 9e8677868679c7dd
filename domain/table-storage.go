package domain

import (
	"errors"
	"math"
	"strings"
	"sync"
)

var ErrTableNotFound = errors.New("table not found")

// TableStorage holds the generic tables of one connection, keyed by table name.
type TableStorage struct {
	storage map[string]*GenericTable
	mu      sync.RWMutex
}

func NewTableStorage() *TableStorage {
	return &TableStorage{
		storage: make(map[string]*GenericTable),
	}
}

// Table returns the named table, creating it unsynced on first use.
func (s *TableStorage) Table(name string) *GenericTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.storage[name]
	if !ok {
		t = NewGenericTable(name)
		s.storage[name] = t
	}
	return t
}

// View runs fn with the named table under the read lock.
func (s *TableStorage) View(name string, fn func(t *GenericTable) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.storage[name]
	if !ok || !t.Synced() {
		return ErrTableNotFound
	}
	return fn(t)
}

// Apply runs fn with the named table under the write lock.
func (s *TableStorage) Apply(name string, fn func(t *GenericTable) error) error {
	t := s.Table(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(t)
}

func (s *TableStorage) TableCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.storage)
}

func (s *TableStorage) first(name string) (Row, error) {
	var row Row
	err := s.View(name, func(t *GenericTable) error {
		if t.Len() == 0 {
			return ErrTableNotFound
		}
		row = copyRow(t.rows[0])
		return nil
	})
	return row, err
}

// Instrument returns the instrument row with tickLog derived from tickSize.
func (s *TableStorage) Instrument() (Row, error) {
	row, err := s.first("instrument")
	if err != nil {
		return nil, err
	}
	if tick, ok := row.Number("tickSize"); ok && tick > 0 {
		row["tickLog"] = int(math.Abs(math.Log10(tick)))
	}
	return row, nil
}

// Ticker is built from the last quote and the last trade, rounded to the instrument tick.
type Ticker struct {
	Last float64 `json:"last"`
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
	Mid  float64 `json:"mid"`
}

func (s *TableStorage) Ticker() (*Ticker, error) {
	instrument, err := s.Instrument()
	if err != nil {
		return nil, err
	}

	var quote, trade Row
	err = s.View("quote", func(t *GenericTable) error {
		if t.Len() == 0 {
			return ErrTableNotFound
		}
		quote = copyRow(t.rows[t.Len()-1])
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = s.View("trade", func(t *GenericTable) error {
		if t.Len() == 0 {
			return ErrTableNotFound
		}
		trade = copyRow(t.rows[t.Len()-1])
		return nil
	})
	if err != nil {
		return nil, err
	}

	last, _ := trade.Number("price")
	buy, _ := quote.Number("bidPrice")
	sell, _ := quote.Number("askPrice")
	tickLog, _ := instrument["tickLog"].(int)

	return &Ticker{
		Last: roundTo(last, tickLog),
		Buy:  roundTo(buy, tickLog),
		Sell: roundTo(sell, tickLog),
		Mid:  roundTo((buy+sell)/2, tickLog),
	}, nil
}

// Funds returns the margin row of the account.
func (s *TableStorage) Funds() (Row, error) { return s.first("margin") }

// MarketDepth returns the latest orderBook10 image.
func (s *TableStorage) MarketDepth() (Row, error) { return s.first("orderBook10") }

// OpenOrders lists orders placed with the given clOrdID prefix that still have quantity left.
func (s *TableStorage) OpenOrders(clOrdIDPrefix string) ([]Row, error) {
	var out []Row
	err := s.View("order", func(t *GenericTable) error {
		for _, o := range t.rows {
			id, _ := o.String("clOrdID")
			leaves, _ := o.Number("leavesQty")
			if strings.HasPrefix(id, clOrdIDPrefix) && leaves > 0 {
				out = append(out, copyRow(o))
			}
		}
		return nil
	})
	return out, err
}

func (s *TableStorage) RecentTrades() ([]Row, error) {
	var out []Row
	err := s.View("trade", func(t *GenericTable) error {
		for _, r := range t.rows {
			out = append(out, copyRow(r))
		}
		return nil
	})
	return out, err
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
