package domain

import "strings"

// MaxTableLen caps trimmable tables to keep memory bounded.
const MaxTableLen = 200

type TableKind int

const (
	// orderBookL2 style tables, replicated into an OrderBook.
	TableKind_L2Book TableKind = iota
	// orderBook10: full top-of-book images that must never be trimmed.
	TableKind_DepthImage
	// order: open orders, never trimmed, filled rows are removed.
	TableKind_Orders
	// instrument, margin, trade, quote, position and anything unknown.
	TableKind_Generic
)

func (k TableKind) String() string {
	switch k {
	case TableKind_L2Book:
		return "l2book"
	case TableKind_DepthImage:
		return "depth-image"
	case TableKind_Orders:
		return "orders"
	default:
		return "generic"
	}
}

type TrimPolicy int

const (
	TrimPolicy_Never TrimPolicy = iota
	TrimPolicy_OldestHalf
)

func KindOfTable(table string) TableKind {
	switch {
	case strings.HasPrefix(table, "orderBookL2"):
		return TableKind_L2Book
	case table == "orderBook10":
		return TableKind_DepthImage
	case table == "order":
		return TableKind_Orders
	default:
		return TableKind_Generic
	}
}

func (k TableKind) TrimPolicy() TrimPolicy {
	if k == TableKind_Generic {
		return TrimPolicy_OldestHalf
	}
	return TrimPolicy_Never
}

// RemovesFilled reports whether rows leave the table once leavesQty reaches zero.
func (k TableKind) RemovesFilled() bool { return k == TableKind_Orders }

// GenericTable stores the rows of a non-book table in arrival order.
type GenericTable struct {
	Name string
	Kind TableKind

	identity RowIdentity
	rows     []Row
	synced   bool
	maxLen   int
}

func NewGenericTable(name string) *GenericTable {
	return &GenericTable{
		Name:   name,
		Kind:   KindOfTable(name),
		maxLen: MaxTableLen,
	}
}

func (t *GenericTable) Synced() bool { return t.synced }

func (t *GenericTable) Identity() RowIdentity { return t.identity }

func (t *GenericTable) Len() int { return len(t.rows) }

// Rows returns copies of the rows; the writer merges updates into its own maps.
func (t *GenericTable) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = copyRow(r)
	}
	return out
}

// Partial replaces the whole table content and fixes how rows are identified.
func (t *GenericTable) Partial(rows []Row, keys []string) {
	t.rows = append(make([]Row, 0, len(rows)), rows...)
	t.identity = IdentityFor(keys)
	t.synced = true
}

func (t *GenericTable) Insert(rows []Row) {
	t.rows = append(t.rows, rows...)

	if t.Kind.TrimPolicy() != TrimPolicy_OldestHalf {
		return
	}
	for len(t.rows) > t.maxLen {
		t.rows = append(make([]Row, 0, len(t.rows)-t.maxLen/2), t.rows[t.maxLen/2:]...)
	}
}

// Update merges each row into its match. Rows with no match are skipped: the
// insert they refer to may still be in flight.
func (t *GenericTable) Update(rows []Row) error {
	if err := t.validate(rows); err != nil {
		return err
	}
	for _, probe := range rows {
		idx := t.find(probe)
		if idx < 0 {
			continue
		}

		item := t.rows[idx]
		for k, v := range probe {
			item[k] = v
		}

		if t.Kind.RemovesFilled() {
			if leaves, ok := item.Number("leavesQty"); ok && leaves <= 0 {
				t.removeAt(idx)
			}
		}
	}
	return nil
}

func (t *GenericTable) Delete(rows []Row) error {
	if err := t.validate(rows); err != nil {
		return err
	}
	for _, probe := range rows {
		idx := t.find(probe)
		if idx < 0 {
			return NewProtocolViolation(t.Name, Action_Delete, "no row matches keys [%s]", t.identity)
		}
		t.removeAt(idx)
	}
	return nil
}

// validate checks every row before any of them is applied.
func (t *GenericTable) validate(rows []Row) error {
	for _, probe := range rows {
		if err := t.identity.Validate(probe); err != nil {
			return err
		}
	}
	return nil
}

func (t *GenericTable) find(probe Row) int {
	for i, item := range t.rows {
		if t.identity.Match(item, probe) {
			return i
		}
	}
	return -1
}

func (t *GenericTable) removeAt(i int) {
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
}
