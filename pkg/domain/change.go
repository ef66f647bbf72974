package domain

import (
	"fmt"
	"strings"
)

// Action identifies the kind of mutation captured in a Change.
type Action string

const (
	// ActionCreate marks an entity insertion.
	ActionCreate Action = "create"
	// ActionUpdate marks an entity mutation.
	ActionUpdate Action = "update"
	// ActionDelete marks an entity removal.
	ActionDelete Action = "delete"
)

// Change records one mutation applied within a transaction, carrying
// detached before/after copies for rule evaluation.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	// SeverityLog records an informational note.
	SeverityLog Severity = "log"
)

// Violation describes a single rule outcome.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates rule violations produced while evaluating a
// transaction's change set.
type Result struct {
	Violations []Violation
}

// Merge appends the violations of other.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks the commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when a transaction is rejected by blocking
// rule violations.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Rule, v.Message))
		}
	}
	return "rule violations: " + strings.Join(msgs, "; ")
}

// NotFoundError is returned when an entity lookup inside a transaction
// misses. The facade maps it to the matching not-found status.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
