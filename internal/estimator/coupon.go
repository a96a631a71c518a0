package estimator

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// DiscountFrom возвращает скидку, подтверждённую бэкендом.
// Законность купона на клиенте не перепроверяется.
func DiscountFrom(v *model.CouponValidation) decimal.Decimal {
	if v == nil || !v.Valid || v.DiscountAmount.IsNegative() {
		return decimal.Zero
	}
	return v.DiscountAmount
}

// CouponOrderAmount возвращает сумму, с которой купон отправляется на проверку:
// подытог плюс доставка (ноль, пока доставка не определена).
func CouponOrderAmount(b model.PricingBreakdown) decimal.Decimal {
	if b.ShippingTotal == nil {
		return b.Subtotal
	}
	return b.Subtotal.Add(*b.ShippingTotal)
}
