// Package memory provides the in-memory transactional store used as the
// engine for every persistence backend and for tests and ephemeral
// environments directly.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storecore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Member aliases domain.Member for in-memory persistence operations.
	Member = domain.Member
	// Product aliases domain.Product.
	Product = domain.Product
	// Order aliases domain.Order.
	Order = domain.Order
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

type memoryState struct {
	members domain.Collection[Member, string]
	catalog domain.Collection[Product, string]
	orders  domain.Collection[Order, string]

	// Explicit id sequences, persisted with every snapshot so generated ids
	// continue after a reload instead of restarting at 1.
	memberSeq uint64
	orderSeq  uint64
}

// Snapshot is the serialisable representation of the in-memory state.
type Snapshot struct {
	Members   []Member  `json:"members"`
	Products  []Product `json:"products"`
	Orders    []Order   `json:"orders"`
	MemberSeq uint64    `json:"member_seq"`
	OrderSeq  uint64    `json:"order_seq"`
}

func cloneMember(m Member) Member {
	cp := m
	cp.Transactions = make([]domain.Transaction, 0, len(m.Transactions))
	for _, t := range m.Transactions {
		cp.Transactions = append(cp.Transactions, t.Clone())
	}
	return cp
}

func cloneProduct(p Product) Product { return p }
func cloneOrder(o Order) Order       { return o }

func (s memoryState) clone() memoryState {
	cloned := memoryState{memberSeq: s.memberSeq, orderSeq: s.orderSeq}
	for m := range s.members.All() {
		cloned.members.Insert(cloneMember(m))
	}
	for p := range s.catalog.All() {
		cloned.catalog.Insert(cloneProduct(p))
	}
	for o := range s.orders.All() {
		cloned.orders.Insert(cloneOrder(o))
	}
	return cloned
}

func (s memoryState) snapshot() Snapshot {
	snap := Snapshot{MemberSeq: s.memberSeq, OrderSeq: s.orderSeq}
	for m := range s.members.All() {
		snap.Members = append(snap.Members, cloneMember(m))
	}
	for p := range s.catalog.All() {
		snap.Products = append(snap.Products, cloneProduct(p))
	}
	for o := range s.orders.All() {
		snap.Orders = append(snap.Orders, cloneOrder(o))
	}
	return snap
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := memoryState{memberSeq: snap.MemberSeq, orderSeq: snap.OrderSeq}
	for _, m := range snap.Members {
		state.members.Insert(cloneMember(m))
	}
	for _, p := range snap.Products {
		state.catalog.Insert(cloneProduct(p))
	}
	for _, o := range snap.Orders {
		state.orders.Insert(cloneOrder(o))
	}
	return state
}

// Store provides an in-memory transactional store for the retail domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// ExportState returns a detached snapshot of committed state including the
// id sequences.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

// ImportState replaces committed state with the snapshot contents.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snap)
}

// Tx represents a mutation set applied to a cloned copy of the store state.
type Tx struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ domain.Tx = (*Tx)(nil)

// txView exposes a read-only snapshot of the transactional state.
type txView struct {
	state *memoryState
}

var _ domain.TxView = txView{}

func (v txView) ListMembers() []Member {
	out := make([]Member, 0, v.state.members.Len())
	for m := range v.state.members.All() {
		out = append(out, cloneMember(m))
	}
	return out
}

func (v txView) ListProducts() []Product {
	out := make([]Product, 0, v.state.catalog.Len())
	for p := range v.state.catalog.All() {
		out = append(out, cloneProduct(p))
	}
	return out
}

func (v txView) ListOrders() []Order {
	out := make([]Order, 0, v.state.orders.Len())
	for o := range v.state.orders.All() {
		out = append(out, cloneOrder(o))
	}
	return out
}

func (v txView) FindMember(id string) (Member, bool) {
	m, ok := v.state.members.Search(id)
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

func (v txView) FindProduct(id string) (Product, bool) {
	return v.state.catalog.Search(id)
}

func (v txView) FindOrder(id string) (Order, bool) {
	return v.state.orders.Search(id)
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The clone is committed only when fn and every registered blocking
// rule pass, so a failed operation leaves committed state untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Tx) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := txView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TxView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(txView{state: &snapshot})
}

// Snapshot exposes a read-only view of the transactional state to rules and
// facade logic running inside the transaction.
func (tx *Tx) Snapshot() domain.TxView { return txView{state: &tx.state} }

// Now is the single timestamp shared by every mutation in this scope.
func (tx *Tx) Now() time.Time { return tx.now }

func (tx *Tx) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// AddMember stores a new member, generating the next "M"-prefixed id and
// stamping the join date.
func (tx *Tx) AddMember(m Member) (Member, error) {
	tx.state.memberSeq++
	m.ID = fmt.Sprintf("M%d", tx.state.memberSeq)
	m.JoinedAt = tx.now
	tx.state.members.Insert(cloneMember(m))
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionCreate, After: cloneMember(m)})
	return cloneMember(m), nil
}

// UpdateMember mutates a member using the provided mutator function.
func (tx *Tx) UpdateMember(id string, mutator func(*Member) error) (Member, error) {
	current, ok := tx.state.members.Search(id)
	if !ok {
		return Member{}, domain.NotFoundError{Entity: domain.EntityMember, ID: id}
	}
	before := cloneMember(current)
	if err := mutator(&current); err != nil {
		return Member{}, err
	}
	current.ID = id
	tx.state.members.Replace(id, cloneMember(current))
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionUpdate, Before: before, After: cloneMember(current)})
	return cloneMember(current), nil
}

// RemoveMember removes a member from the transaction state. Any in-flight
// transactions the member holds are discarded with it.
func (tx *Tx) RemoveMember(id string) error {
	current, ok := tx.state.members.Search(id)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityMember, ID: id}
	}
	tx.state.members.Remove(id)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionDelete, Before: cloneMember(current)})
	return nil
}

// FindMember retrieves a member by id from the transaction state.
func (tx *Tx) FindMember(id string) (Member, bool) {
	m, ok := tx.state.members.Search(id)
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

// AddProduct stores a new product. The id is caller-supplied; inserting an
// id already present is rejected because keyed lookup requires unique ids.
func (tx *Tx) AddProduct(p Product) (Product, error) {
	if _, exists := tx.state.catalog.Search(p.ID); exists {
		return Product{}, fmt.Errorf("product %q already exists", p.ID)
	}
	tx.state.catalog.Insert(cloneProduct(p))
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: cloneProduct(p)})
	return cloneProduct(p), nil
}

// UpdateProduct mutates a product using the provided mutator function.
func (tx *Tx) UpdateProduct(id string, mutator func(*Product) error) (Product, error) {
	current, ok := tx.state.catalog.Search(id)
	if !ok {
		return Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return Product{}, err
	}
	current.ID = id
	tx.state.catalog.Replace(id, cloneProduct(current))
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionUpdate, Before: before, After: cloneProduct(current)})
	return cloneProduct(current), nil
}

// FindProduct retrieves a product by id from the transaction state.
func (tx *Tx) FindProduct(id string) (Product, bool) {
	return tx.state.catalog.Search(id)
}

// FindProductByName scans the catalog for a product with the given name.
func (tx *Tx) FindProductByName(name string) (Product, bool) {
	for p := range tx.state.catalog.All() {
		if p.Name == name {
			return cloneProduct(p), true
		}
	}
	return Product{}, false
}

// PlaceOrder stores a new restock order, generating the next "O"-prefixed id
// and stamping the creation date.
func (tx *Tx) PlaceOrder(o Order) (Order, error) {
	tx.state.orderSeq++
	o.ID = fmt.Sprintf("O%d", tx.state.orderSeq)
	o.CreatedAt = tx.now
	if o.Quantity <= 0 {
		return Order{}, errors.New("order quantity must be positive")
	}
	tx.state.orders.Insert(cloneOrder(o))
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionCreate, After: cloneOrder(o)})
	return cloneOrder(o), nil
}

// RemoveOrder removes an order from the transaction state.
func (tx *Tx) RemoveOrder(id string) error {
	current, ok := tx.state.orders.Search(id)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityOrder, ID: id}
	}
	tx.state.orders.Remove(id)
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionDelete, Before: cloneOrder(current)})
	return nil
}

// FindOrder retrieves an order by id from the transaction state.
func (tx *Tx) FindOrder(id string) (Order, bool) {
	return tx.state.orders.Search(id)
}

// OutstandingRestock returns the outstanding restock-reason order for the
// product, if any. Initial stocking orders never suppress a restock.
func (tx *Tx) OutstandingRestock(productID string) (Order, bool) {
	for o := range tx.state.orders.All() {
		if o.ProductID == productID && o.Reason == domain.OrderReasonRestock {
			return cloneOrder(o), true
		}
	}
	return Order{}, false
}

// Read helpers ---------------------------------------------------------------

// GetMember retrieves a member by id from committed state.
func (s *Store) GetMember(id string) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.members.Search(id)
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

// ListMembers returns all members from committed state in insertion order.
func (s *Store) ListMembers() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, 0, s.state.members.Len())
	for m := range s.state.members.All() {
		out = append(out, cloneMember(m))
	}
	return out
}

// GetProduct retrieves a product by id from committed state.
func (s *Store) GetProduct(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.catalog.Search(id)
}

// ListProducts returns all products in insertion order.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.catalog.Items()
}

// GetOrder retrieves an order by id from committed state.
func (s *Store) GetOrder(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.orders.Search(id)
}

// ListOrders returns all outstanding orders in insertion order.
func (s *Store) ListOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.orders.Items()
}
