// Package domain defines the core retail entities, value types, and
// rule evaluation primitives used by storecore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityMember identifies a member (customer) record.
	EntityMember EntityType = "member"
	// EntityProduct identifies a catalog product record.
	EntityProduct EntityType = "product"
	// EntityOrder identifies an outstanding restock order record.
	EntityOrder EntityType = "order"
	// EntityTransaction identifies a purchase transaction owned by a member.
	EntityTransaction EntityType = "transaction"
)

// OrderReason records why a restock order was placed.
type OrderReason string

const (
	// OrderReasonInitial marks the order pre-staged when a product is added
	// to the catalog. Initial orders never suppress a restock order.
	OrderReasonInitial OrderReason = "initial_stock"
	// OrderReasonRestock marks an order triggered by stock falling to or
	// below the product's reorder level during checkout. At most one restock
	// order per product may be outstanding at a time.
	OrderReasonRestock OrderReason = "restock"
)

// Member represents a member (customer) of the store. The last entry of
// Transactions is the member's current transaction; a settled or discarded
// transaction stays in the history for date-range reporting.
type Member struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Phone        string        `json:"phone"`
	JoinedAt     time.Time     `json:"joined_at"`
	FeePaid      bool          `json:"fee_paid"`
	Fee          float64       `json:"fee"`
	Transactions []Transaction `json:"transactions"`
}

// Match reports whether the member carries the given id.
func (m Member) Match(id string) bool { return m.ID == id }

// CurrentTransaction returns a pointer to the member's current (last opened,
// not yet settled) transaction. Callers holding a Member value obtained from
// a snapshot must not retain the pointer past the enclosing mutation.
func (m *Member) CurrentTransaction() (*Transaction, bool) {
	// Only the tail can be open; settled transactions are history.
	if n := len(m.Transactions); n > 0 && !m.Transactions[n-1].Completed {
		return &m.Transactions[n-1], true
	}
	return nil, false
}

// OpenTransaction appends a fresh transaction dated now and returns it. No
// double-open guard exists: opening twice leaves two open-looking
// transactions and the last-appended one wins as current.
func (m *Member) OpenTransaction(now time.Time) *Transaction {
	m.Transactions = append(m.Transactions, Transaction{CreatedAt: now})
	return &m.Transactions[len(m.Transactions)-1]
}

// RemoveCurrentTransaction drops the current transaction, reporting whether
// one existed.
func (m *Member) RemoveCurrentTransaction() bool {
	if _, ok := m.CurrentTransaction(); !ok {
		return false
	}
	m.Transactions = m.Transactions[:len(m.Transactions)-1]
	return true
}

// TransactionsBetween returns the member's transactions whose creation date
// falls within [start, end], compared at day granularity.
func (m Member) TransactionsBetween(start, end time.Time) []Transaction {
	var out []Transaction
	for _, t := range m.Transactions {
		if t.WithinRange(start, end) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Product represents a product available in the catalog.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Stock        int     `json:"stock"`
	Price        float64 `json:"price"`
	ReorderLevel int     `json:"reorder_level"`
}

// Match reports whether the product carries the given id.
func (p Product) Match(id string) bool { return p.ID == id }

// CheckStock reports whether quantity units can be debited without driving
// stock negative.
func (p Product) CheckStock(quantity int) bool { return p.Stock-quantity >= 0 }

// NeedsReorder reports whether stock has fallen to or below the reorder
// level. Equality counts as "must reorder".
func (p Product) NeedsReorder() bool { return p.Stock <= p.ReorderLevel }

// SetPrice overwrites the price, rejecting negative values.
func (p *Product) SetPrice(price float64) bool {
	if price < 0 {
		return false
	}
	p.Price = price
	return true
}

// Order represents an outstanding restock request for a product. It is
// created alongside a product or when checkout drives stock to the reorder
// level, and destroyed when its shipment is processed.
type Order struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Reason      OrderReason `json:"reason"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Match reports whether the order carries the given id.
func (o Order) Match(id string) bool { return o.ID == id }

// Transaction groups the items a member purchases in one checkout. Appending
// an item accumulates the running total; settling records the payment and
// marks the transaction completed.
type Transaction struct {
	CreatedAt time.Time         `json:"created_at"`
	Items     []TransactionItem `json:"items"`
	Total     float64           `json:"total"`
	Payment   float64           `json:"payment"`
	Completed bool              `json:"completed"`
}

// AddItem appends an item snapshot and accumulates the running total.
func (t *Transaction) AddItem(item TransactionItem) {
	t.Items = append(t.Items, item)
	t.Total += item.Total
}

// Empty reports whether no items have been appended.
func (t Transaction) Empty() bool { return len(t.Items) == 0 }

// WithinRange reports whether the transaction date falls within
// [start, end] inclusive, compared at day granularity.
func (t Transaction) WithinRange(start, end time.Time) bool {
	day := func(ts time.Time) time.Time {
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	created := day(t.CreatedAt)
	return !created.Before(day(start)) && !created.After(day(end))
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	cp := t
	cp.Items = append([]TransactionItem(nil), t.Items...)
	return cp
}

// TransactionItem is an immutable point-in-time snapshot of a purchased
// product line. It is decoupled from later product price changes.
type TransactionItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
}

// NewTransactionItem snapshots a product at its current price for the given
// quantity.
func NewTransactionItem(p Product, quantity int) TransactionItem {
	return TransactionItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		Quantity:    quantity,
		Total:       p.Price * float64(quantity),
	}
}
