package estimator

import "github.com/shopspring/decimal"

// Стоимость доставки одной позиции корзины.
var (
	FeeSameCity   = decimal.NewFromInt(20)
	FeeSameState  = decimal.NewFromInt(50)
	FeeOtherState = decimal.NewFromInt(80)
)

// EstimateLineFee возвращает стоимость доставки позиции корзины.
// Стоимость берётся один раз на позицию и не зависит от количества.
func EstimateLineFee(buyerCity, buyerState, sellerCity, sellerState string) decimal.Decimal {
	return lineFee(ClassifyLocality(buyerCity, buyerState, sellerCity, sellerState))
}

func lineFee(tier LocalityTier) decimal.Decimal {
	switch tier {
	case TierSameCity:
		return FeeSameCity
	case TierSameState:
		return FeeSameState
	default:
		return FeeOtherState
	}
}
