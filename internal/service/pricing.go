package service

import (
	"github.com/shopspring/decimal"

	"storefront-fulfillment-service/internal/model"
)

// PricingPolicy completa envío e impuestos cuando el checkout no los trae.
type PricingPolicy struct {
	FreeShippingThreshold model.Money     // envío gratis por encima de este subtotal
	FlatShipping          model.Money
	TaxRatePercent        decimal.Decimal // 10 = 10%
}

func DefaultPricing() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: 5000,
		FlatShipping:          999,
		TaxRatePercent:        decimal.NewFromInt(10),
	}
}

func (p PricingPolicy) Shipping(itemsPrice model.Money) model.Money {
	if itemsPrice > p.FreeShippingThreshold {
		return 0
	}
	return p.FlatShipping
}

// Tax redondea half-up a centavos.
func (p PricingPolicy) Tax(itemsPrice model.Money) model.Money {
	cents := decimal.NewFromInt(int64(itemsPrice)).Mul(p.TaxRatePercent).Div(decimal.NewFromInt(100))
	return model.Money(cents.Round(0).IntPart())
}
