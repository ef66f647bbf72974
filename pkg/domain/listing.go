package domain

import (
	"errors"
	"time"
)

// ListingNone is the sentinel held by string fields of a Listing that do not
// apply to the projected entity kind.
const ListingNone = "none"

// ErrListingExhausted is returned by ListingIterator.Next once every
// snapshot has been consumed.
var ErrListingExhausted = errors.New("listing iterator exhausted")

// Listing is a detached read-only projection of a domain entity. One value
// type carries the superset of fields for every listable kind so a single
// adapter can serve all listing consumers; Kind states which fields are
// meaningful and the rest default to zero values or ListingNone. Native
// types are kept throughout, formatting belongs to the boundary.
type Listing struct {
	Kind EntityType `json:"kind"`
	ID   string     `json:"id"`
	Name string     `json:"name"`

	// Member fields. Zero is a legitimate fee, so numeric and boolean
	// fields are always emitted.
	Address  string    `json:"address,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	JoinedAt time.Time `json:"joined_at,omitzero"`
	FeePaid  bool      `json:"fee_paid"`
	Fee      float64   `json:"fee"`

	// Product fields. A sold-out product has stock 0; it must survive
	// serialization.
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	ReorderLevel int     `json:"reorder_level"`

	// Order fields.
	ProductID   string      `json:"product_id,omitempty"`
	ProductName string      `json:"product_name,omitempty"`
	Quantity    int         `json:"quantity"`
	Reason      OrderReason `json:"reason,omitempty"`

	// Transaction fields.
	CreatedAt time.Time         `json:"created_at,omitzero"`
	Items     []TransactionItem `json:"items,omitempty"`
	Total     float64           `json:"total"`
	Payment   float64           `json:"payment"`
	Completed bool              `json:"completed"`
}

// MemberListing projects a member into a detached snapshot. The transaction
// history is not carried; use TransactionListing for per-transaction rows.
func MemberListing(m Member) Listing {
	return Listing{
		Kind:        EntityMember,
		ID:          m.ID,
		Name:        m.Name,
		Address:     m.Address,
		Phone:       m.Phone,
		JoinedAt:    m.JoinedAt,
		FeePaid:     m.FeePaid,
		Fee:         m.Fee,
		ProductID:   ListingNone,
		ProductName: ListingNone,
	}
}

// ProductListing projects a product into a detached snapshot.
func ProductListing(p Product) Listing {
	return Listing{
		Kind:         EntityProduct,
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Stock:        p.Stock,
		ReorderLevel: p.ReorderLevel,
		Address:      ListingNone,
		Phone:        ListingNone,
		ProductID:    p.ID,
		ProductName:  p.Name,
	}
}

// OrderListing projects an order into a detached snapshot.
func OrderListing(o Order) Listing {
	return Listing{
		Kind:        EntityOrder,
		ID:          o.ID,
		Name:        o.ProductName,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		Reason:      o.Reason,
		CreatedAt:   o.CreatedAt,
		Address:     ListingNone,
		Phone:       ListingNone,
	}
}

// TransactionListing projects one of a member's transactions into a detached
// snapshot. Items are deep-copied so the caller cannot reach live state.
func TransactionListing(memberID string, t Transaction) Listing {
	return Listing{
		Kind:        EntityTransaction,
		ID:          memberID,
		Name:        ListingNone,
		Address:     ListingNone,
		Phone:       ListingNone,
		ProductID:   ListingNone,
		ProductName: ListingNone,
		CreatedAt:   t.CreatedAt,
		Items:       append([]TransactionItem(nil), t.Items...),
		Total:       t.Total,
		Payment:     t.Payment,
		Completed:   t.Completed,
	}
}

// SnapshotFunc converts a live entity into a detached Listing.
type SnapshotFunc[T any] func(T) Listing

// ListingIterator walks a fixed sequence of detached snapshots. It is safe
// to hand to external consumers: every element was copied out of live state
// when the iterator was built.
type ListingIterator struct {
	listings []Listing
	pos      int
}

// NewListingIterator snapshots every item through fn and returns an iterator
// over the detached copies.
func NewListingIterator[T any](items []T, fn SnapshotFunc[T]) *ListingIterator {
	listings := make([]Listing, 0, len(items))
	for _, item := range items {
		listings = append(listings, fn(item))
	}
	return &ListingIterator{listings: listings}
}

// ListingsIterator wraps pre-built listings in an iterator.
func ListingsIterator(listings []Listing) *ListingIterator {
	return &ListingIterator{listings: append([]Listing(nil), listings...)}
}

// Next returns the next snapshot, or ErrListingExhausted when none remain.
func (it *ListingIterator) Next() (Listing, error) {
	if it.pos >= len(it.listings) {
		return Listing{}, ErrListingExhausted
	}
	l := it.listings[it.pos]
	it.pos++
	return l, nil
}

// Remaining reports how many snapshots have not yet been consumed.
func (it *ListingIterator) Remaining() int { return len(it.listings) - it.pos }
