package bitmex

import (
	"fmt"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
)

var logger = logging.New("bitmex")

type Outcome int

const (
	Outcome_Applied Outcome = iota
	// the frame was valid but came before its table partial
	Outcome_Dropped
	Outcome_Control
)

// DiffApplier folds feed frames of one connection into an OrderBook and the
// generic tables. It must be driven from a single goroutine.
type DiffApplier struct {
	book   *domain.OrderBook
	tables *domain.TableStorage
	synced bool
}

func NewDiffApplier(symbol *domain.MarketSymbol) *DiffApplier {
	return &DiffApplier{
		book:   domain.NewOrderBook(symbol),
		tables: domain.NewTableStorage(),
	}
}

func (a *DiffApplier) Book() *domain.OrderBook { return a.book }

func (a *DiffApplier) Tables() *domain.TableStorage { return a.tables }

// Synced reports whether the book partial has been received.
func (a *DiffApplier) Synced() bool { return a.synced }

// Apply decodes one raw frame and applies it. Parse errors leave all state
// untouched; a ProtocolViolation means the mirror can no longer be trusted.
func (a *DiffApplier) Apply(raw []byte) (Outcome, error) {
	a.book.CountMessage()

	frame, err := domain.ParseFrame(raw)
	if err != nil {
		return Outcome_Dropped, err
	}

	if frame.Control != nil {
		return Outcome_Control, a.handleControl(frame.Control)
	}

	msg := frame.Table
	if !knownAction(msg.Action) {
		return Outcome_Dropped, domain.NewProtocolViolation(msg.Table, msg.Action, "unknown action")
	}

	if domain.KindOfTable(msg.Table) == domain.TableKind_L2Book {
		return a.applyBook(msg)
	}
	return a.applyTable(msg)
}

func (a *DiffApplier) handleControl(ctrl *domain.ControlMessage) error {
	switch {
	case ctrl.Error != "":
		logger.Warn().Str("error", ctrl.Error).RawJSON("request", nonEmptyJSON(ctrl.Request)).Msg("feed reported an error")
		return fmt.Errorf("%w: feed error: %s", domain.ErrMessageParse, ctrl.Error)
	case ctrl.Subscribe != "":
		if ctrl.Success != nil && !*ctrl.Success {
			logger.Warn().Str("topic", ctrl.Subscribe).Msg("subscription rejected")
			return nil
		}
		logger.Info().Str("topic", ctrl.Subscribe).Msg("subscribed")
	case ctrl.Info != "":
		logger.Info().Str("info", ctrl.Info).Msg("welcome")
	default:
		logger.Debug().Msg("unrecognized control frame")
	}
	return nil
}

func (a *DiffApplier) applyBook(msg *domain.TableMessage) (Outcome, error) {
	if msg.Action != domain.Action_Partial && !a.synced {
		logger.Debug().Str("table", msg.Table).Str("action", string(msg.Action)).Msg("dropped frame before partial")
		return Outcome_Dropped, nil
	}

	rows := make([]*domain.L2Row, 0, len(msg.Data))
	for _, raw := range msg.Data {
		row, err := domain.ParseL2Row(raw)
		if err != nil {
			return Outcome_Dropped, err
		}
		if err := checkL2Fields(msg.Action, row); err != nil {
			return Outcome_Dropped, err
		}
		rows = append(rows, row)
	}

	err := a.book.Mutate(func() error {
		switch msg.Action {
		case domain.Action_Partial:
			a.book.Reset()
			for _, row := range rows {
				a.book.SideOf(domain.Side(row.Side)).Put(domain.Entry{ID: row.ID, Price: *row.Price, Size: *row.Size})
			}
			a.synced = true
		case domain.Action_Insert:
			for _, row := range rows {
				side := a.book.SideOf(domain.Side(row.Side))
				if side.Has(row.ID) {
					return domain.NewProtocolViolation(msg.Table, msg.Action, "duplicate id %d on %s side", row.ID, row.Side)
				}
				side.Put(domain.Entry{ID: row.ID, Price: *row.Price, Size: *row.Size})
			}
		case domain.Action_Update:
			for _, row := range rows {
				side := a.book.SideOf(domain.Side(row.Side))
				e, ok := side.Get(row.ID)
				if !ok {
					return domain.NewProtocolViolation(msg.Table, msg.Action, "id %d not on %s side", row.ID, row.Side)
				}
				e.Size = *row.Size
				if row.Price != nil {
					e.Price = *row.Price
				}
				side.Put(e)
			}
		case domain.Action_Delete:
			for _, row := range rows {
				if !a.book.SideOf(domain.Side(row.Side)).Remove(row.ID) {
					return domain.NewProtocolViolation(msg.Table, msg.Action, "id %d not on %s side", row.ID, row.Side)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Outcome_Dropped, err
	}
	return Outcome_Applied, nil
}

func (a *DiffApplier) applyTable(msg *domain.TableMessage) (Outcome, error) {
	rows := make([]domain.Row, 0, len(msg.Data))
	for _, raw := range msg.Data {
		row, err := domain.DecodeRow(raw)
		if err != nil {
			return Outcome_Dropped, err
		}
		rows = append(rows, row)
	}

	outcome := Outcome_Applied
	err := a.tables.Apply(msg.Table, func(t *domain.GenericTable) error {
		if msg.Action != domain.Action_Partial && !t.Synced() {
			outcome = Outcome_Dropped
			return nil
		}

		switch msg.Action {
		case domain.Action_Partial:
			t.Partial(rows, msg.Keys)
		case domain.Action_Insert:
			t.Insert(rows)
		case domain.Action_Update:
			return t.Update(rows)
		case domain.Action_Delete:
			return t.Delete(rows)
		}
		return nil
	})
	if err != nil {
		return Outcome_Dropped, err
	}

	if outcome == Outcome_Dropped {
		logger.Debug().Str("table", msg.Table).Str("action", string(msg.Action)).Msg("dropped frame before partial")
	}
	return outcome, nil
}

func checkL2Fields(action domain.Action, row *domain.L2Row) error {
	switch action {
	case domain.Action_Partial, domain.Action_Insert:
		if row.Price == nil || row.Size == nil {
			return fmt.Errorf("%w: %s row %d needs price and size", domain.ErrMessageParse, action, row.ID)
		}
	case domain.Action_Update:
		if row.Size == nil {
			return fmt.Errorf("%w: update row %d without size", domain.ErrMessageParse, row.ID)
		}
	}
	return nil
}

func knownAction(a domain.Action) bool {
	switch a {
	case domain.Action_Partial, domain.Action_Insert, domain.Action_Update, domain.Action_Delete:
		return true
	}
	return false
}

func nonEmptyJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
