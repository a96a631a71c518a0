package estimator

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// BreakdownDisplay содержит строки для вывода расчёта покупателю.
type BreakdownDisplay struct {
	Subtotal         string `json:"subtotal"`
	Shipping         string `json:"shipping,omitempty"`
	Discount         string `json:"discount,omitempty"`
	Total            string `json:"total"`
	BaseCO2Saved     string `json:"baseCo2Saved"`
	DeliveryCO2Added string `json:"deliveryCo2Added,omitempty"`
	FinalCO2Saved    string `json:"finalCo2Saved,omitempty"`
	PointsEarned     string `json:"pointsEarned"`
}

// FormatAmount форматирует денежную сумму в рупиях с разделителями разрядов.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return newPrinter().Sprintf("₹%.2f", f)
}

// FormatCO2 форматирует массу CO₂ с одним знаком после запятой.
func FormatCO2(kg float64) string {
	return newPrinter().Sprintf("%.1f kg CO₂", kg)
}

// Describe готовит строки отображения для расчёта заказа.
// Незаполненные показатели остаются пустыми.
func Describe(b model.PricingBreakdown) BreakdownDisplay {
	p := newPrinter()

	d := BreakdownDisplay{
		Subtotal:     FormatAmount(b.Subtotal),
		Total:        FormatAmount(b.Total),
		BaseCO2Saved: FormatCO2(b.BaseCO2Saved),
		PointsEarned: p.Sprintf("%d Carbon Points", b.PointsEarned),
	}
	if b.DiscountAmount.IsPositive() {
		d.Discount = "-" + FormatAmount(b.DiscountAmount)
	}
	if b.ShippingTotal != nil {
		d.Shipping = FormatAmount(*b.ShippingTotal)
	}
	if b.FinalCO2Saved != nil {
		d.DeliveryCO2Added = FormatCO2(b.TransportPenaltyCO2)
		d.FinalCO2Saved = FormatCO2(*b.FinalCO2Saved)
	}

	return d
}

// Printer не потокобезопасен, поэтому создаётся на каждый вызов.
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}
