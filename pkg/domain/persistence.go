package domain

import (
	"context"
	"time"
)

// Tx exposes the domain operations a persistence implementation must support
// within an atomic scope. Mutations apply to a cloned copy of state; nothing
// reaches committed state until the enclosing transaction returns nil.
type Tx interface {
	Snapshot() TxView
	// Now is the single timestamp shared by every mutation in the scope.
	Now() time.Time

	AddMember(Member) (Member, error)
	UpdateMember(id string, mutator func(*Member) error) (Member, error)
	RemoveMember(id string) error
	FindMember(id string) (Member, bool)

	AddProduct(Product) (Product, error)
	UpdateProduct(id string, mutator func(*Product) error) (Product, error)
	FindProduct(id string) (Product, bool)
	FindProductByName(name string) (Product, bool)

	PlaceOrder(Order) (Order, error)
	RemoveOrder(id string) error
	FindOrder(id string) (Order, bool)
	// OutstandingRestock returns the outstanding restock-reason order for
	// the product, if any. Initial stocking orders are not considered.
	OutstandingRestock(productID string) (Order, bool)
}

// TxView provides read-only access to snapshot data for rules and reports.
type TxView interface {
	ListMembers() []Member
	ListProducts() []Product
	ListOrders() []Order
	FindMember(id string) (Member, bool)
	FindProduct(id string) (Product, bool)
	FindOrder(id string) (Order, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) (Result, error)
	View(ctx context.Context, fn func(TxView) error) error
	GetMember(id string) (Member, bool)
	ListMembers() []Member
	GetProduct(id string) (Product, bool)
	ListProducts() []Product
	GetOrder(id string) (Order, bool)
	ListOrders() []Order
}

// Persister is implemented by durable backends that can force a snapshot
// write outside the per-transaction cycle.
type Persister interface {
	Persist(ctx context.Context) error
}
