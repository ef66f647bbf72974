package domain

// Status is the terminal outcome reported by every facade operation. Domain
// failures are statuses carried in result values, never panics; callers must
// inspect the status before trusting accompanying fields.
type Status string

const (
	// StatusCompleted reports a successful mutation or query.
	StatusCompleted Status = "operation_completed"
	// StatusFailed reports a validation or structural failure with no mutation.
	StatusFailed Status = "operation_failed"
	// StatusNoSuchMember reports a member lookup miss.
	StatusNoSuchMember Status = "no_such_member"
	// StatusNoSuchProduct reports a product lookup miss.
	StatusNoSuchProduct Status = "no_such_product"
	// StatusNoOrderFound reports an order lookup miss.
	StatusNoOrderFound Status = "no_order_found"
	// StatusOrderPlaced reports a successful purchase that also triggered a
	// restock order.
	StatusOrderPlaced Status = "order_placed"
	// StatusDuplicateID reports an insert rejected because the product name
	// or id is already taken.
	StatusDuplicateID Status = "duplicate_id"
	// StatusTransactionEmpty reports that the current transaction had no
	// items and was discarded.
	StatusTransactionEmpty Status = "transaction_empty"
	// StatusTransactionComplete reports a settled transaction.
	StatusTransactionComplete Status = "transaction_complete"
	// StatusInsufficientFunds reports a payment below the transaction total;
	// the transaction stays open.
	StatusInsufficientFunds Status = "insufficient_funds"
)

// OK reports whether the status is one of the success outcomes.
func (s Status) OK() bool {
	switch s {
	case StatusCompleted, StatusOrderPlaced, StatusTransactionComplete:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
