package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// LevelRecord is one row of the leveled depth-chart view.
type LevelRecord struct {
	Price float64 `json:"price"`
	Size  uint64  `json:"size"`
	Side  Side    `json:"side"`
}

func (s *Snapshot) BestBid() (float64, bool) {
	if s == nil || len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

func (s *Snapshot) BestAsk() (float64, bool) {
	if s == nil || len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

func (s *Snapshot) MidPrice() (float64, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return 0, false
	}
	ask, _ := s.BestAsk()
	return 0.5*bid + 0.5*ask, true
}

// BBOVolumes returns the resting size at the best bid and best ask.
func (s *Snapshot) BBOVolumes() (bid uint64, ask uint64, ok bool) {
	if s == nil || len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, 0, false
	}
	return s.Bids[0].Size, s.Asks[0].Size, true
}

func (s *Snapshot) checkDepth(depth int) error {
	if s == nil || s.Depth() == 0 {
		return ErrNotReady
	}
	if depth < 1 || depth > s.Depth() {
		return fmt.Errorf("%w: depth=%d available=%d", ErrInvalidDepth, depth, s.Depth())
	}
	return nil
}

// CumulativeVolumes returns running size sums of the first depth levels per side.
func (s *Snapshot) CumulativeVolumes(depth int) (bids []uint64, asks []uint64, err error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, nil, err
	}
	return s.BidCumVolumes[:depth:depth], s.AskCumVolumes[:depth:depth], nil
}

// Ratio is ln(cumulative bid volume) - ln(cumulative ask volume) at depth.
// Positive values mean the bid side dominates.
func (s *Snapshot) Ratio(depth int) (float64, error) {
	if err := s.checkDepth(depth); err != nil {
		return 0, err
	}
	bid := float64(s.BidCumVolumes[depth-1])
	ask := float64(s.AskCumVolumes[depth-1])
	return math.Log(bid) - math.Log(ask), nil
}

// LeveledView lists asks from worst to best followed by bids from best to worst,
// the usual depth-chart order. Size is the cumulative volume from the best level.
func (s *Snapshot) LeveledView(depth int) ([]LevelRecord, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}

	out := make([]LevelRecord, 0, 2*depth)
	for i := depth - 1; i >= 0; i-- {
		out = append(out, LevelRecord{Price: s.Asks[i].Price, Size: s.AskCumVolumes[i], Side: Side_Sell})
	}
	for i := 0; i < depth; i++ {
		out = append(out, LevelRecord{Price: s.Bids[i].Price, Size: s.BidCumVolumes[i], Side: Side_Buy})
	}
	return out, nil
}

// LeveledViewJSON renders LeveledView as a flat list of records.
func (s *Snapshot) LeveledViewJSON(depth int) (string, error) {
	records, err := s.LeveledView(depth)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
