package estimator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "₹220.00", FormatAmount(decimal.NewFromInt(220)))
	assert.Equal(t, "₹19.99", FormatAmount(decimal.RequireFromString("19.989")))
	assert.Equal(t, "9.6 kg CO₂", FormatCO2(9.6))
	assert.Equal(t, "0.0 kg CO₂", FormatCO2(0))
}

func TestDescribe(t *testing.T) {
	lines := []model.CartLine{line(100, 2, 5, "Pune", "MH")}

	pending := Describe(ComputeBreakdown(lines, model.ShippingAddress{}, decimal.Zero))
	assert.Equal(t, "₹200.00", pending.Total)
	assert.Empty(t, pending.Shipping)
	assert.Empty(t, pending.FinalCO2Saved)
	assert.Empty(t, pending.Discount)
	assert.Equal(t, "0 Carbon Points", pending.PointsEarned)

	full := Describe(ComputeBreakdown(lines, model.ShippingAddress{City: "Pune", State: "MH"}, decimal.NewFromInt(20)))
	assert.Equal(t, "₹20.00", full.Shipping)
	assert.Equal(t, "-₹20.00", full.Discount)
	assert.Equal(t, "₹200.00", full.Total)
	assert.Equal(t, "10.0 kg CO₂", full.BaseCO2Saved)
	assert.Equal(t, "0.4 kg CO₂", full.DeliveryCO2Added)
	assert.Equal(t, "9.6 kg CO₂", full.FinalCO2Saved)
	assert.Equal(t, "96 Carbon Points", full.PointsEarned)
}
