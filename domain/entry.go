package domain

import "fmt"

type Side string

const (
	Side_Buy  Side = "Buy"
	Side_Sell Side = "Sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Side_Buy, Side_Sell:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Entry is a single resting order level of an L2 book side.
type Entry struct {
	ID    uint64
	Price float64
	Size  uint64
}
