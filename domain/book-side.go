package domain

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

type sizePrice struct {
	size  uint64
	price float64
}

// BookSide keeps the entries of one side ordered by feed id.
//
// The feed assigns ids so that ascending id means descending price on both sides,
// hence the best bid sits at the smallest id and the best ask at the largest one.
type BookSide struct {
	side    Side
	entries *treemap.Map
}

func NewBookSide(side Side) *BookSide {
	return &BookSide{
		side:    side,
		entries: treemap.NewWith(utils.UInt64Comparator),
	}
}

func (s *BookSide) Side() Side { return s.side }

func (s *BookSide) Len() int { return s.entries.Size() }

func (s *BookSide) Has(id uint64) bool {
	_, ok := s.entries.Get(id)
	return ok
}

func (s *BookSide) Get(id uint64) (Entry, bool) {
	v, ok := s.entries.Get(id)
	if !ok {
		return Entry{}, false
	}
	sp := v.(sizePrice)
	return Entry{ID: id, Price: sp.price, Size: sp.size}, true
}

// Put inserts or overwrites the entry under its id.
func (s *BookSide) Put(e Entry) {
	s.entries.Put(e.ID, sizePrice{size: e.Size, price: e.Price})
}

// Remove deletes id and reports whether it was present.
func (s *BookSide) Remove(id uint64) bool {
	if !s.Has(id) {
		return false
	}
	s.entries.Remove(id)
	return true
}

func (s *BookSide) Clear() { s.entries.Clear() }

// Best returns the top of this side.
func (s *BookSide) Best() (Entry, bool) {
	var k, v interface{}
	if s.side == Side_Buy {
		k, v = s.entries.Min()
	} else {
		k, v = s.entries.Max()
	}
	if k == nil {
		return Entry{}, false
	}
	sp := v.(sizePrice)
	return Entry{ID: k.(uint64), Price: sp.price, Size: sp.size}, true
}

// Walk visits entries from best to worst until fn returns false.
func (s *BookSide) Walk(fn func(Entry) bool) {
	it := s.entries.Iterator()
	if s.side == Side_Buy {
		for it.Next() {
			sp := it.Value().(sizePrice)
			if !fn(Entry{ID: it.Key().(uint64), Price: sp.price, Size: sp.size}) {
				return
			}
		}
		return
	}

	for it.End(); it.Prev(); {
		sp := it.Value().(sizePrice)
		if !fn(Entry{ID: it.Key().(uint64), Price: sp.price, Size: sp.size}) {
			return
		}
	}
}

// Top returns at most limit entries from best to worst. limit <= 0 means all.
func (s *BookSide) Top(limit int) []Entry {
	n := s.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	s.Walk(func(e Entry) bool {
		out = append(out, e)
		return len(out) < n
	})
	return out
}
