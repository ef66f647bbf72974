package core

import (
	"context"
	"fmt"

	"storecore/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewStockFloorRule())
	engine.Register(NewPriceFloorRule())
	return engine
}

// NewStockFloorRule returns the in-transaction rule rejecting any commit that
// would leave a product with negative stock.
func NewStockFloorRule() domain.Rule {
	return stockFloorRule{}
}

type stockFloorRule struct{}

func (stockFloorRule) Name() string { return "stock_floor" }

func (stockFloorRule) Evaluate(_ context.Context, view domain.TxView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, product := range view.ListProducts() {
		if product.Stock < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_floor",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("product %s (%s) stock is negative: %d", product.Name, product.ID, product.Stock),
				Entity:   domain.EntityProduct,
				EntityID: product.ID,
			})
		}
	}
	return res, nil
}

// NewPriceFloorRule returns the in-transaction rule rejecting any commit that
// would leave a product with a negative price.
func NewPriceFloorRule() domain.Rule {
	return priceFloorRule{}
}

type priceFloorRule struct{}

func (priceFloorRule) Name() string { return "price_floor" }

func (priceFloorRule) Evaluate(_ context.Context, view domain.TxView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, product := range view.ListProducts() {
		if product.Price < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "price_floor",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("product %s (%s) price is negative: %.2f", product.Name, product.ID, product.Price),
				Entity:   domain.EntityProduct,
				EntityID: product.ID,
			})
		}
	}
	return res, nil
}
