package domain

import (
	"fmt"
	"strings"
)

// MarketSymbol is a BitMEX instrument code such as XBTUSD or XBTU20.
type MarketSymbol struct {
	Code string
}

func NewMarketSymbol(code string) (*MarketSymbol, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("symbol must not be empty")
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return nil, fmt.Errorf("invalid symbol %q", code)
		}
	}
	return &MarketSymbol{Code: code}, nil
}

// Topic scopes a table subscription to this instrument, e.g. orderBookL2:XBTUSD.
func (ms *MarketSymbol) Topic(table string) string {
	return fmt.Sprintf("%s:%s", table, ms.Code)
}

func (ms *MarketSymbol) String() string {
	return ms.Code
}

func (ms *MarketSymbol) Equal(other *MarketSymbol) bool {
	return other != nil && ms.Code == other.Code
}
