package core

import "storecore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Member             = domain.Member
	Product            = domain.Product
	Order              = domain.Order
	OrderReason        = domain.OrderReason
	Transaction        = domain.Transaction
	TransactionItem    = domain.TransactionItem
	Listing            = domain.Listing
	ListingIterator    = domain.ListingIterator
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Severity           = domain.Severity
	Status             = domain.Status
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Tx                 = domain.Tx
	TxView             = domain.TxView
	PersistentStore    = domain.PersistentStore
	RuleViolationError = domain.RuleViolationError
	NotFoundError      = domain.NotFoundError
)

const (
	EntityMember      = domain.EntityMember
	EntityProduct     = domain.EntityProduct
	EntityOrder       = domain.EntityOrder
	EntityTransaction = domain.EntityTransaction
)

const (
	OrderReasonInitial = domain.OrderReasonInitial
	OrderReasonRestock = domain.OrderReasonRestock
)

const (
	StatusCompleted           = domain.StatusCompleted
	StatusFailed              = domain.StatusFailed
	StatusNoSuchMember        = domain.StatusNoSuchMember
	StatusNoSuchProduct       = domain.StatusNoSuchProduct
	StatusNoOrderFound        = domain.StatusNoOrderFound
	StatusOrderPlaced         = domain.StatusOrderPlaced
	StatusDuplicateID         = domain.StatusDuplicateID
	StatusTransactionEmpty    = domain.StatusTransactionEmpty
	StatusTransactionComplete = domain.StatusTransactionComplete
	StatusInsufficientFunds   = domain.StatusInsufficientFunds
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
