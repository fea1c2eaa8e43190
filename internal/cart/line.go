package cart

import "github.com/shopspring/decimal"

// Line is one product/quantity pairing in the cart mirror. ID is the
// server-assigned identity; negative ids mark local placeholders that the
// backend has not confirmed yet.
type Line struct {
	ID              int64
	ProductID       int64
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TotalPrice      decimal.Decimal

	// Denormalized product snapshot for display.
	Name          string
	Image         string
	SKU           string
	StockQuantity int
	ProductType   string

	// Note is captured locally and never sent to the server. Reconciliation
	// preserves it for ids the server still reports.
	Note string
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// LineTotal computes unit_price * quantity * (1 - discount_percent/100).
func LineTotal(unitPrice decimal.Decimal, quantity int, discountPercent decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	factor := one.Sub(discountPercent.Div(hundred))
	return unitPrice.Mul(qty).Mul(factor)
}

// Recalculate refreshes TotalPrice from the pricing invariant.
func (l *Line) Recalculate() {
	l.TotalPrice = LineTotal(l.UnitPrice, l.Quantity, l.DiscountPercent)
}

// Placeholder reports whether the line awaits a server-assigned id.
func (l Line) Placeholder() bool {
	return l.ID < 0
}
