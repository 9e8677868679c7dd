package bitmex

import "github.com/spooky-finn/go-bitmex-orderbook/domain"

const (
	DefaultEndpoint = "wss://www.bitmex.com/realtime"
	BookTable       = "orderBookL2"
)

// Topics builds the subscribe args: symbol scoped tables get ":SYMBOL",
// account wide tables such as margin are sent as is.
func Topics(symbol *domain.MarketSymbol, symbolTables, genericTables []string) []string {
	topics := make([]string, 0, len(symbolTables)+len(genericTables)+1)
	seen := map[string]bool{}
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}

	add(symbol.Topic(BookTable))
	for _, table := range symbolTables {
		add(symbol.Topic(table))
	}
	for _, table := range genericTables {
		add(table)
	}
	return topics
}
