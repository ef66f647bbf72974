package domain

import (
	"context"
	"errors"
	"testing"
)

type stubRule struct {
	name string
	res  Result
	err  error
}

func (r stubRule) Name() string { return r.name }
func (r stubRule) Evaluate(context.Context, TxView, []Change) (Result, error) {
	return r.res, r.err
}

func TestRulesEngineAggregatesViolations(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(stubRule{name: "warned", res: Result{Violations: []Violation{{Rule: "warned", Severity: SeverityWarn}}}})
	engine.Register(stubRule{name: "blocked", res: Result{Violations: []Violation{{Rule: "blocked", Severity: SeverityBlock, Message: "nope"}}}})

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected merged violations, got %d", len(res.Violations))
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	verr := RuleViolationError{Result: res}
	if verr.Error() == "" {
		t.Fatalf("violation error should describe blocking rules")
	}
}

func TestRulesEngineStopsOnError(t *testing.T) {
	engine := NewRulesEngine()
	boom := errors.New("boom")
	engine.Register(stubRule{name: "broken", err: boom})
	if _, err := engine.Evaluate(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected rule error, got %v", err)
	}
}
