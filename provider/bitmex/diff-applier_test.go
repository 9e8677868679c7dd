package bitmex

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookPartial = `{"table":"orderBookL2","action":"partial","keys":["symbol","id","side"],"data":[
	{"symbol":"XBTUSD","id":17999992000,"side":"Sell","size":100,"price":80},
	{"symbol":"XBTUSD","id":17999993000,"side":"Sell","size":20,"price":70},
	{"symbol":"XBTUSD","id":17999994000,"side":"Sell","size":10,"price":60},
	{"symbol":"XBTUSD","id":17999995000,"side":"Buy","size":10,"price":50},
	{"symbol":"XBTUSD","id":17999996000,"side":"Buy","size":20,"price":40},
	{"symbol":"XBTUSD","id":17999997000,"side":"Buy","size":100,"price":30}]}`

func newTestApplier(t *testing.T) *DiffApplier {
	symbol, err := domain.NewMarketSymbol("XBTUSD")
	require.NoError(t, err)
	return NewDiffApplier(symbol)
}

func mustApply(t *testing.T, a *DiffApplier, frame string) Outcome {
	outcome, err := a.Apply([]byte(frame))
	require.NoError(t, err)
	return outcome
}

func bestPrices(t *testing.T, a *DiffApplier) (float64, float64) {
	bid, ok := a.Book().Bids.Best()
	require.True(t, ok)
	ask, ok := a.Book().Asks.Best()
	require.True(t, ok)
	return bid.Price, ask.Price
}

func TestDiffApplier_WorkedExample(t *testing.T) {
	a := newTestApplier(t)
	assert.Equal(t, Outcome_Applied, mustApply(t, a, bookPartial))
	assert.True(t, a.Synced())

	bid, ask := bestPrices(t, a)
	assert.Equal(t, 60.0, ask)
	assert.Equal(t, 50.0, bid)

	mustApply(t, a, `{"table":"orderBookL2","action":"update","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Buy","size":5}]}`)
	bid, _ = bestPrices(t, a)
	assert.Equal(t, 50.0, bid)
	e, _ := a.Book().Bids.Get(17999995000)
	assert.Equal(t, uint64(5), e.Size)
	assert.Equal(t, 50.0, e.Price, "price is kept when the update omits it")

	mustApply(t, a, `{"table":"orderBookL2","action":"delete","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Buy"}]}`)
	bid, _ = bestPrices(t, a)
	assert.Equal(t, 40.0, bid)

	mustApply(t, a, `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":17999995500,"side":"Buy","size":10,"price":45}]}`)
	bid, _ = bestPrices(t, a)
	assert.Equal(t, 45.0, bid)

	assert.Equal(t, uint64(4), a.Book().Version())
}

func TestDiffApplier_Cardinality(t *testing.T) {
	a := newTestApplier(t)
	mustApply(t, a, bookPartial)
	require.Equal(t, 3, a.Book().Bids.Len())

	for i := 0; i < 5; i++ {
		mustApply(t, a, fmt.Sprintf(`{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":%d,"side":"Buy","size":1,"price":%d}]}`, 17999998000+i, 29-i))
		assert.Equal(t, 4+i, a.Book().Bids.Len(), "insert grows the side by one")
	}
	for i := 0; i < 5; i++ {
		mustApply(t, a, fmt.Sprintf(`{"table":"orderBookL2","action":"delete","data":[{"symbol":"XBTUSD","id":%d,"side":"Buy"}]}`, 17999998000+i))
		assert.Equal(t, 7-i, a.Book().Bids.Len(), "delete shrinks the side by one")
	}
	mustApply(t, a, `{"table":"orderBookL2","action":"update","data":[{"symbol":"XBTUSD","id":17999996000,"side":"Buy","size":1}]}`)
	assert.Equal(t, 3, a.Book().Bids.Len(), "update keeps the size of the side")
}

func TestDiffApplier_Ordering(t *testing.T) {
	a := newTestApplier(t)
	mustApply(t, a, bookPartial)

	last := 0.0
	a.Book().Bids.Walk(func(e domain.Entry) bool {
		if last != 0 {
			assert.Less(t, e.Price, last, "bids go down in price")
		}
		last = e.Price
		return true
	})

	last = 0
	a.Book().Asks.Walk(func(e domain.Entry) bool {
		if last != 0 {
			assert.Greater(t, e.Price, last, "asks go up in price")
		}
		last = e.Price
		return true
	})
}

func TestDiffApplier_ProtocolViolations(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"DuplicateInsert", `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Buy","size":1,"price":50}]}`},
		{"UpdateMissing", `{"table":"orderBookL2","action":"update","data":[{"symbol":"XBTUSD","id":1,"side":"Buy","size":1}]}`},
		{"UpdateWrongSide", `{"table":"orderBookL2","action":"update","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Sell","size":1}]}`},
		{"DeleteMissing", `{"table":"orderBookL2","action":"delete","data":[{"symbol":"XBTUSD","id":1,"side":"Sell"}]}`},
		{"UnknownAction", `{"table":"orderBookL2","action":"replace","data":[]}`},
		{"GenericDeleteMissing", `{"table":"trade","action":"delete","data":[{"id":42}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApplier(t)
			mustApply(t, a, bookPartial)
			mustApply(t, a, `{"table":"trade","action":"partial","keys":[],"data":[]}`)

			_, err := a.Apply([]byte(tt.frame))
			assert.ErrorIs(t, err, domain.ErrProtocolViolation)
			assert.True(t, domain.IsProtocolViolation(err))
		})
	}
}

func TestDiffApplier_ParseErrorsLeaveBookUntouched(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"NotJSON", `{"table":`},
		{"BadSide", `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":1,"side":"Both","size":1,"price":1}]}`},
		{"InsertWithoutPrice", `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":1,"side":"Buy","size":1}]}`},
		{"UpdateWithoutSize", `{"table":"orderBookL2","action":"update","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Buy"}]}`},
		{"SecondRowBroken", `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":2,"side":"Buy","size":1,"price":1},{"id":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApplier(t)
			mustApply(t, a, bookPartial)
			version := a.Book().Version()

			_, err := a.Apply([]byte(tt.frame))
			assert.ErrorIs(t, err, domain.ErrMessageParse)
			assert.Equal(t, version, a.Book().Version())
			assert.Equal(t, 3, a.Book().Bids.Len())
		})
	}
}

func TestDiffApplier_ParseErrorsLeaveTablesUntouched(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"UpdateSecondRowWithoutKey", `{"table":"order","action":"update","data":[{"orderID":"a","leavesQty":0},{"leavesQty":3}]}`},
		{"DeleteSecondRowWithoutKey", `{"table":"order","action":"delete","data":[{"orderID":"a"},{"clOrdID":"bot-2"}]}`},
		{"SecondRowNotAnObject", `{"table":"order","action":"update","data":[{"orderID":"a","leavesQty":0},[1]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApplier(t)
			mustApply(t, a, `{"table":"order","action":"partial","keys":["orderID"],"data":[
				{"orderID":"a","clOrdID":"bot-1","leavesQty":10},
				{"orderID":"b","clOrdID":"bot-2","leavesQty":5}]}`)

			_, err := a.Apply([]byte(tt.frame))
			assert.ErrorIs(t, err, domain.ErrMessageParse)

			orders, err := a.Tables().OpenOrders("bot-")
			require.NoError(t, err)
			assert.Len(t, orders, 2)
		})
	}
}

func TestDiffApplier_CountsEveryMessage(t *testing.T) {
	a := newTestApplier(t)

	frames := []string{
		`{"info":"Welcome"}`,
		`{"table":"trade","action":"insert","data":[{"price":1}]}`,
		bookPartial,
		`{"table":"trade","action":"partial","keys":[],"data":[]}`,
		`{"table":`,
		`{"table":"orderBookL2","action":"delete","data":[{"symbol":"XBTUSD","id":17999995000,"side":"Buy"}]}`,
	}
	for _, f := range frames {
		_, _ = a.Apply([]byte(f))
	}

	assert.Equal(t, uint64(len(frames)), a.Book().Messages())
	assert.Equal(t, uint64(2), a.Book().Version(), "only book frames bump the version")
}

func TestDiffApplier_DropsBeforePartial(t *testing.T) {
	a := newTestApplier(t)

	outcome := mustApply(t, a, `{"table":"orderBookL2","action":"insert","data":[{"symbol":"XBTUSD","id":1,"side":"Buy","size":1,"price":1}]}`)
	assert.Equal(t, Outcome_Dropped, outcome)
	assert.False(t, a.Synced())
	assert.Equal(t, 0, a.Book().Bids.Len())

	outcome = mustApply(t, a, `{"table":"quote","action":"insert","data":[{"symbol":"XBTUSD","bidPrice":1}]}`)
	assert.Equal(t, Outcome_Dropped, outcome)
}

func TestDiffApplier_PartialReplacesBook(t *testing.T) {
	a := newTestApplier(t)
	mustApply(t, a, bookPartial)
	mustApply(t, a, `{"table":"orderBookL2","action":"partial","data":[{"symbol":"XBTUSD","id":5,"side":"Buy","size":3,"price":10}]}`)

	assert.Equal(t, 1, a.Book().Bids.Len())
	assert.Equal(t, 0, a.Book().Asks.Len())
}

func TestDiffApplier_ControlFrames(t *testing.T) {
	a := newTestApplier(t)

	assert.Equal(t, Outcome_Control, mustApply(t, a, `{"info":"Welcome to the BitMEX Realtime API.","version":"2.0"}`))
	assert.Equal(t, Outcome_Control, mustApply(t, a, `{"success":true,"subscribe":"orderBookL2:XBTUSD","request":{"op":"subscribe","args":["orderBookL2:XBTUSD"]}}`))

	outcome, err := a.Apply([]byte(`{"status":400,"error":"Unknown table: nope","request":{"op":"subscribe","args":["nope"]}}`))
	assert.Equal(t, Outcome_Control, outcome)
	assert.ErrorIs(t, err, domain.ErrMessageParse)
}

func TestDiffApplier_GenericTables(t *testing.T) {
	a := newTestApplier(t)

	mustApply(t, a, `{"table":"instrument","action":"partial","keys":["symbol"],"data":[{"symbol":"XBTUSD","tickSize":0.5,"lastPrice":100}]}`)
	mustApply(t, a, `{"table":"instrument","action":"update","data":[{"symbol":"XBTUSD","lastPrice":101}]}`)
	mustApply(t, a, `{"table":"instrument","action":"update","data":[{"symbol":"ETHUSD","lastPrice":5}]}`)

	instrument, err := a.Tables().Instrument()
	require.NoError(t, err)
	last, _ := instrument.Number("lastPrice")
	assert.Equal(t, 101.0, last)
	assert.Equal(t, 0, instrument["tickLog"])

	mustApply(t, a, `{"table":"trade","action":"partial","keys":[],"data":[]}`)
	for i := 0; i < domain.MaxTableLen+1; i++ {
		mustApply(t, a, fmt.Sprintf(`{"table":"trade","action":"insert","data":[{"symbol":"XBTUSD","price":%d}]}`, i))
	}
	err = a.Tables().View("trade", func(tbl *domain.GenericTable) error {
		assert.LessOrEqual(t, tbl.Len(), domain.MaxTableLen)
		return nil
	})
	require.NoError(t, err)
}

func TestDiffApplier_OrderTable(t *testing.T) {
	a := newTestApplier(t)

	mustApply(t, a, `{"table":"order","action":"partial","keys":["orderID"],"data":[
		{"orderID":"a","clOrdID":"bot-1","leavesQty":10},
		{"orderID":"b","clOrdID":"bot-2","leavesQty":5}]}`)
	mustApply(t, a, `{"table":"order","action":"update","data":[{"orderID":"a","leavesQty":0}]}`)

	orders, err := a.Tables().OpenOrders("bot-")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "bot-2", orders[0]["clOrdID"])
}

func TestDiffApplier_LargeBookStaysConsistent(t *testing.T) {
	a := newTestApplier(t)

	var rows []string
	for i := 0; i < 100; i++ {
		rows = append(rows, fmt.Sprintf(`{"symbol":"XBTUSD","id":%d,"side":"Sell","size":%d,"price":%d}`, 1000+i, i+1, 1200-i))
		rows = append(rows, fmt.Sprintf(`{"symbol":"XBTUSD","id":%d,"side":"Buy","size":%d,"price":%d}`, 2000+i, i+1, 1000-i))
	}
	raw, err := json.Marshal(map[string]interface{}{
		"table":  "orderBookL2",
		"action": "partial",
		"data":   json.RawMessage("[" + strings.Join(rows, ",") + "]"),
	})
	require.NoError(t, err)
	mustApply(t, a, string(raw))

	bid, ask := bestPrices(t, a)
	assert.Equal(t, 1000.0, bid)
	assert.Equal(t, 1101.0, ask)
	assert.Less(t, bid, ask)
}
