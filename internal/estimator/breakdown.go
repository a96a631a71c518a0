package estimator

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// PointsPerKg задаёт число баллов лояльности за каждый сэкономленный кг CO₂.
const PointsPerKg = 10

// PointsFor переводит сэкономленные кг CO₂ в баллы лояльности.
func PointsFor(co2Kg float64) int64 {
	if co2Kg <= 0 {
		return 0
	}
	return int64(math.Round(co2Kg * PointsPerKg))
}

// ComputeBreakdown рассчитывает стоимость заказа и углеродный эффект по снимку корзины.
//
// Пока в адресе не заполнены и город, и штат, стоимость доставки и итоговая экономия CO₂
// не определены (nil), а доставка в итоговой сумме считается нулевой.
// Позиции с неположительным количеством пропускаются, отрицательная скидка считается нулевой.
func ComputeBreakdown(lines []model.CartLine, address model.ShippingAddress, discount decimal.Decimal) model.PricingBreakdown {
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	hasAddress := strings.TrimSpace(address.City) != "" && strings.TrimSpace(address.State) != ""

	var (
		subtotal   = decimal.Zero
		shipping   = decimal.Zero
		baseCO2    float64
		penaltyCO2 float64
		finalCO2   float64
	)

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		qty := float64(line.Quantity)

		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		baseCO2 += line.BaseCO2SavedPerUnit * qty

		if !hasAddress {
			continue
		}

		tier := ClassifyLocality(address.City, address.State, line.SellerCity, line.SellerState)
		penalty := unitPenalty(tier)

		finalCO2 += math.Max(0, line.BaseCO2SavedPerUnit-penalty) * qty
		penaltyCO2 += penalty * qty
		shipping = shipping.Add(lineFee(tier))
	}

	b := model.PricingBreakdown{
		Subtotal:            subtotal,
		BaseCO2Saved:        baseCO2,
		TransportPenaltyCO2: penaltyCO2,
		DiscountAmount:      discount,
	}

	total := subtotal.Sub(discount)
	if hasAddress {
		b.ShippingTotal = &shipping
		b.FinalCO2Saved = &finalCO2
		b.PointsEarned = PointsFor(finalCO2)
		total = total.Add(shipping)
	}
	b.Total = decimal.Max(decimal.Zero, total)

	return b
}
