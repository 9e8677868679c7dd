package domain_test

import (
	"testing"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewMarketSymbol(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		expectError bool
	}{
		{"ValidSymbol", "XBTUSD", false},
		{"ValidFuture", "XBTU20", false},
		{"Lowercase", "ethusd", false},
		{"EmptyCode", "", true},
		{"Blank", "   ", true},
		{"Separator", "XBT-USD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewMarketSymbol(tt.code)

			if tt.expectError {
				assert.Error(t, err, "NewMarketSymbol() should return an error")
			} else {
				assert.NoError(t, err, "NewMarketSymbol() should not return an error")
			}
		})
	}
}

func TestMarketSymbol_Topic(t *testing.T) {
	ms := domain.MarketSymbol{Code: "XBTUSD"}

	assert.Equal(t, "orderBookL2:XBTUSD", ms.Topic("orderBookL2"), "Topic() result should be equal to expected")
}

func TestMarketSymbol_Equal(t *testing.T) {
	ms1 := domain.MarketSymbol{Code: "XBTUSD"}
	ms2 := domain.MarketSymbol{Code: "XBTUSD"}
	ms3 := domain.MarketSymbol{Code: "ETHUSD"}

	assert.True(t, ms1.Equal(&ms2), "Equal() should return true for equal symbols")
	assert.False(t, ms1.Equal(&ms3), "Equal() should return false for different symbols")
	assert.False(t, ms1.Equal(nil), "Equal() should return false for nil")
}

func TestMarketSymbol_UppercaseConvertion(t *testing.T) {
	ms, err := domain.NewMarketSymbol("xbtusd")
	if err != nil {
		t.Errorf("NewMarketSymbol() should not return an error")
	}

	assert.Equal(t, "XBTUSD", ms.String(), "String() result should be equal to expected")
}
