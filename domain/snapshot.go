package domain

import "time"

// Snapshot is an immutable depth-limited view of the book. Levels are ordered from
// best to worst and the cumulative volumes are computed from the same levels, so a
// reader holding one Snapshot always sees a self-consistent picture.
type Snapshot struct {
	Bids          []Entry
	Asks          []Entry
	BidCumVolumes []uint64
	AskCumVolumes []uint64

	Version    uint64
	UpdateRate float64
	TakenAt    time.Time
}

func NewSnapshot(bids, asks []Entry, version uint64, rate float64, takenAt time.Time) *Snapshot {
	return &Snapshot{
		Bids:          bids,
		Asks:          asks,
		BidCumVolumes: cumsum(bids),
		AskCumVolumes: cumsum(asks),
		Version:       version,
		UpdateRate:    rate,
		TakenAt:       takenAt,
	}
}

func cumsum(levels []Entry) []uint64 {
	out := make([]uint64, len(levels))
	var total uint64
	for i, l := range levels {
		total += l.Size
		out[i] = total
	}
	return out
}

// Depth is the number of levels available on both sides.
func (s *Snapshot) Depth() int {
	if len(s.Bids) < len(s.Asks) {
		return len(s.Bids)
	}
	return len(s.Asks)
}
