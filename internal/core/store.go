// Package core implements the retail store facade orchestrating members,
// catalog, purchase transactions and reorder shipments over a transactional
// persistent store.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storecore/pkg/domain"
)

// Store is the single entry point for every business operation. It owns no
// entity state itself: all state lives in the persistent store and every
// mutation runs inside RunInTransaction, so a failed operation leaves
// committed state untouched.
type Store struct {
	persistent PersistentStore
	logger     *zap.Logger
	metrics    *Metrics
}

// Option customises a Store at construction time.
type Option func(*Store)

// WithLogger injects a structured logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics injects an operation metrics set.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore constructs the facade over the supplied persistent store.
func NewStore(persistent PersistentStore, opts ...Option) *Store {
	s := &Store{
		persistent: persistent,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persistent returns the underlying storage implementation.
func (s *Store) Persistent() PersistentStore { return s.persistent }

// statusError carries a terminal domain status through a transaction abort.
// It is the mechanism that makes "no mutation on failure" structural: the
// transaction clone is discarded and the status surfaces in the result.
type statusError struct {
	status Status
}

func (e statusError) Error() string { return "status: " + string(e.status) }

func failWith(status Status) error { return statusError{status: status} }

// statusOf maps a transaction error to a terminal status. Domain failures
// become statuses; infra failures stay errors.
func statusOf(err error, success Status) (Status, error) {
	if err == nil {
		return success, nil
	}
	var se statusError
	if errors.As(err, &se) {
		return se.status, nil
	}
	var nfe NotFoundError
	if errors.As(err, &nfe) {
		switch nfe.Entity {
		case EntityMember:
			return StatusNoSuchMember, nil
		case EntityProduct:
			return StatusNoSuchProduct, nil
		case EntityOrder:
			return StatusNoOrderFound, nil
		}
		return StatusFailed, nil
	}
	var rve RuleViolationError
	if errors.As(err, &rve) {
		return StatusFailed, nil
	}
	return StatusFailed, err
}

func (s *Store) finish(op string, status Status, err error) {
	s.metrics.ObserveOperation(op, status)
	if err != nil {
		s.logger.Error("operation failed", zap.String("operation", op), zap.Error(err))
		return
	}
	s.logger.Debug("operation finished", zap.String("operation", op), zap.String("status", status.String()))
}

// MemberResult reports the outcome of a member operation.
type MemberResult struct {
	Member Member
	Status Status
}

// ProductResult reports the outcome of a catalog operation. InitialOrder is
// the pre-staged first shipment created alongside the product, when any.
type ProductResult struct {
	Product      Product
	InitialOrder *Order
	Status       Status
}

// PurchaseResult echoes the recorded line item and the transaction running
// total. Order is set when the purchase triggered a restock order.
type PurchaseResult struct {
	Status           Status
	Item             TransactionItem
	TransactionTotal float64
	Order            *Order
}

// TransactionResult reports the running total of a member's current
// transaction.
type TransactionResult struct {
	Status Status
	Total  float64
}

// ChangeResult reports the change returned for a settled transaction.
type ChangeResult struct {
	Status Status
	Change float64
}

// AddMember registers a new member. The id is generated from the store's
// monotonic member sequence.
func (s *Store) AddMember(ctx context.Context, name, address, phone string, feePaid bool, fee float64) (MemberResult, error) {
	var created Member
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		var err error
		created, err = tx.AddMember(Member{Name: name, Address: address, Phone: phone, FeePaid: feePaid, Fee: fee})
		return err
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("add_member", status, err)
	return MemberResult{Member: created, Status: status}, err
}

// RemoveMember deletes a member. In-flight transactions the member still
// holds are discarded with it; callers wanting to block that must settle or
// check the current transaction first.
func (s *Store) RemoveMember(ctx context.Context, id string) (Status, error) {
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		return tx.RemoveMember(id)
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("remove_member", status, err)
	return status, err
}

// SearchMembership looks up a member by id in committed state.
func (s *Store) SearchMembership(id string) MemberResult {
	m, ok := s.persistent.GetMember(id)
	if !ok {
		s.finish("search_membership", StatusNoSuchMember, nil)
		return MemberResult{Status: StatusNoSuchMember}
	}
	s.finish("search_membership", StatusCompleted, nil)
	return MemberResult{Member: m, Status: StatusCompleted}
}

// AddProduct inserts a product into the catalog and pre-stages its first
// shipment as an order sized at twice the reorder level. Name and id must
// both be unused; either collision reports DUPLICATE_ID.
func (s *Store) AddProduct(ctx context.Context, name, id string, stock, reorderLevel int, price float64) (ProductResult, error) {
	var created Product
	var initial *Order
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		if _, exists := tx.FindProductByName(name); exists {
			return failWith(StatusDuplicateID)
		}
		if _, exists := tx.FindProduct(id); exists {
			return failWith(StatusDuplicateID)
		}
		var err error
		created, err = tx.AddProduct(Product{ID: id, Name: name, Stock: stock, ReorderLevel: reorderLevel, Price: price})
		if err != nil {
			return err
		}
		if quantity := 2 * reorderLevel; quantity > 0 {
			order, err := tx.PlaceOrder(Order{
				ProductID:   id,
				ProductName: name,
				Quantity:    quantity,
				Reason:      OrderReasonInitial,
			})
			if err != nil {
				return err
			}
			initial = &order
		}
		return nil
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("add_product", status, err)
	return ProductResult{Product: created, InitialOrder: initial, Status: status}, err
}

// SearchCatalog looks up a product by id in committed state.
func (s *Store) SearchCatalog(id string) ProductResult {
	p, ok := s.persistent.GetProduct(id)
	if !ok {
		s.finish("search_catalog", StatusNoSuchProduct, nil)
		return ProductResult{Status: StatusNoSuchProduct}
	}
	s.finish("search_catalog", StatusCompleted, nil)
	return ProductResult{Product: p, Status: StatusCompleted}
}

// ChangePrice overwrites a product's price. Negative prices are rejected
// with OPERATION_FAILED and no mutation.
func (s *Store) ChangePrice(ctx context.Context, id string, price float64) (Status, error) {
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		_, err := tx.UpdateProduct(id, func(p *Product) error {
			if !p.SetPrice(price) {
				return failWith(StatusFailed)
			}
			return nil
		})
		return err
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("change_price", status, err)
	return status, err
}

// CreateTransaction opens a new transaction for the member. There is no
// double-open guard: opening again appends a second transaction and the
// last-appended one becomes current, so callers must settle or delete the
// current transaction before opening another.
func (s *Store) CreateTransaction(ctx context.Context, memberID string) (Status, error) {
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		_, err := tx.UpdateMember(memberID, func(m *Member) error {
			m.OpenTransaction(tx.Now())
			return nil
		})
		return err
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("create_transaction", status, err)
	return status, err
}

// PurchaseProducts records a line in the member's current transaction: the
// product is snapshotted at its current price, stock is debited, and the
// reorder level is evaluated. When the debit drives stock to or below the
// reorder level and no restock order is outstanding for the product, a new
// order at twice the reorder level is placed and ORDER_PLACED is reported.
func (s *Store) PurchaseProducts(ctx context.Context, memberID, productID string, quantity int) (PurchaseResult, error) {
	result := PurchaseResult{Status: StatusCompleted}
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		member, ok := tx.FindMember(memberID)
		if !ok {
			return failWith(StatusNoSuchMember)
		}
		product, ok := tx.FindProduct(productID)
		if !ok {
			return failWith(StatusNoSuchProduct)
		}
		if _, ok := member.CurrentTransaction(); !ok {
			return failWith(StatusFailed)
		}
		if quantity <= 0 || !product.CheckStock(quantity) {
			return failWith(StatusFailed)
		}

		item := domain.NewTransactionItem(product, quantity)
		if _, err := tx.UpdateMember(memberID, func(m *Member) error {
			current, ok := m.CurrentTransaction()
			if !ok {
				return failWith(StatusFailed)
			}
			current.AddItem(item)
			result.TransactionTotal = current.Total
			return nil
		}); err != nil {
			return err
		}
		result.Item = item

		debited, err := tx.UpdateProduct(productID, func(p *Product) error {
			p.Stock -= quantity
			return nil
		})
		if err != nil {
			return err
		}

		if debited.NeedsReorder() {
			if _, outstanding := tx.OutstandingRestock(productID); !outstanding {
				if reorderQty := 2 * debited.ReorderLevel; reorderQty > 0 {
					order, err := tx.PlaceOrder(Order{
						ProductID:   productID,
						ProductName: debited.Name,
						Quantity:    reorderQty,
						Reason:      OrderReasonRestock,
					})
					if err != nil {
						return err
					}
					result.Order = &order
					result.Status = StatusOrderPlaced
				}
			}
		}
		return nil
	})
	status, err := statusOf(err, result.Status)
	result.Status = status
	if status != StatusOrderPlaced {
		result.Order = nil
	}
	s.finish("purchase_products", status, err)
	return result, err
}

// CheckTransaction reports the running total of the member's current
// transaction. A transaction with no items is discarded on the spot and
// TRANSACTION_EMPTY is reported; this cleanup for aborted checkouts is
// load-bearing and must run before settlement.
func (s *Store) CheckTransaction(ctx context.Context, memberID string) (TransactionResult, error) {
	result := TransactionResult{Status: StatusCompleted}
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		member, ok := tx.FindMember(memberID)
		if !ok {
			return failWith(StatusNoSuchMember)
		}
		current, ok := member.CurrentTransaction()
		if !ok {
			return failWith(StatusFailed)
		}
		if current.Empty() {
			if _, err := tx.UpdateMember(memberID, func(m *Member) error {
				m.RemoveCurrentTransaction()
				return nil
			}); err != nil {
				return err
			}
			result.Status = StatusTransactionEmpty
			return nil
		}
		result.Total = current.Total
		return nil
	})
	status, err := statusOf(err, result.Status)
	result.Status = status
	s.finish("check_transaction", status, err)
	return result, err
}

// DeleteTransaction drops the member's current transaction.
func (s *Store) DeleteTransaction(ctx context.Context, memberID string) (Status, error) {
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		_, err := tx.UpdateMember(memberID, func(m *Member) error {
			if !m.RemoveCurrentTransaction() {
				return failWith(StatusFailed)
			}
			return nil
		})
		return err
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("delete_transaction", status, err)
	return status, err
}

// GetChange settles the member's current transaction. A payment below the
// running total is rejected with INSUFFICIENT_FUNDS and no mutation; an
// adequate payment is recorded, the transaction is marked completed, and the
// difference is returned as change.
func (s *Store) GetChange(ctx context.Context, memberID string, payment float64) (ChangeResult, error) {
	result := ChangeResult{Status: StatusTransactionComplete}
	var settledTotal float64
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		member, ok := tx.FindMember(memberID)
		if !ok {
			return failWith(StatusNoSuchMember)
		}
		current, ok := member.CurrentTransaction()
		if !ok {
			return failWith(StatusFailed)
		}
		if payment < current.Total {
			return failWith(StatusInsufficientFunds)
		}
		settledTotal = current.Total
		result.Change = payment - current.Total
		_, err := tx.UpdateMember(memberID, func(m *Member) error {
			cur, ok := m.CurrentTransaction()
			if !ok {
				return failWith(StatusFailed)
			}
			cur.Payment = payment
			cur.Completed = true
			return nil
		})
		return err
	})
	status, err := statusOf(err, result.Status)
	result.Status = status
	if status != StatusTransactionComplete {
		result.Change = 0
	} else {
		s.metrics.ObserveSettled(settledTotal)
	}
	s.finish("get_change", status, err)
	return result, err
}

// ProcessShipments credits the referenced product's stock by the order
// quantity and removes the order. An order referencing a product no longer
// in the catalog is a state inconsistency and surfaces as an error rather
// than being silently dropped.
func (s *Store) ProcessShipments(ctx context.Context, orderID string) (Status, error) {
	_, err := s.persistent.RunInTransaction(ctx, func(tx Tx) error {
		order, ok := tx.FindOrder(orderID)
		if !ok {
			return failWith(StatusNoOrderFound)
		}
		if _, ok := tx.FindProduct(order.ProductID); !ok {
			return fmt.Errorf("order %s references missing product %s", orderID, order.ProductID)
		}
		if _, err := tx.UpdateProduct(order.ProductID, func(p *Product) error {
			p.Stock += order.Quantity
			return nil
		}); err != nil {
			return err
		}
		return tx.RemoveOrder(orderID)
	})
	status, err := statusOf(err, StatusCompleted)
	s.finish("process_shipments", status, err)
	return status, err
}

// GetMembers returns a safe iterator over detached member snapshots.
func (s *Store) GetMembers() *ListingIterator {
	return domain.NewListingIterator(s.persistent.ListMembers(), domain.MemberListing)
}

// GetProducts returns a safe iterator over detached product snapshots.
func (s *Store) GetProducts() *ListingIterator {
	return domain.NewListingIterator(s.persistent.ListProducts(), domain.ProductListing)
}

// GetOrders returns a safe iterator over detached order snapshots.
func (s *Store) GetOrders() *ListingIterator {
	return domain.NewListingIterator(s.persistent.ListOrders(), domain.OrderListing)
}

// GetTransactions returns a safe iterator over the member's transactions
// whose creation date falls within [start, end], compared at day
// granularity.
func (s *Store) GetTransactions(memberID string, start, end time.Time) (*ListingIterator, Status) {
	member, ok := s.persistent.GetMember(memberID)
	if !ok {
		return domain.ListingsIterator(nil), StatusNoSuchMember
	}
	transactions := member.TransactionsBetween(start, end)
	listings := make([]Listing, 0, len(transactions))
	for _, t := range transactions {
		listings = append(listings, domain.TransactionListing(memberID, t))
	}
	return domain.ListingsIterator(listings), StatusCompleted
}

// Save forces a snapshot write on backends that support it. The in-memory
// backend has nothing to flush and reports success.
func (s *Store) Save(ctx context.Context) error {
	persister, ok := s.persistent.(domain.Persister)
	if !ok {
		return nil
	}
	if err := persister.Persist(ctx); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		return err
	}
	s.logger.Debug("state saved")
	return nil
}
