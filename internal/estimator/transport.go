package estimator

// Штраф за доставку в кг CO₂ на единицу товара.
const (
	PenaltySameCity   = 0.2
	PenaltySameState  = 0.6
	PenaltyOtherState = 1.2
)

// EstimateUnitPenalty возвращает выбросы доставки одной единицы товара в кг CO₂.
func EstimateUnitPenalty(buyerCity, buyerState, sellerCity, sellerState string) float64 {
	return unitPenalty(ClassifyLocality(buyerCity, buyerState, sellerCity, sellerState))
}

func unitPenalty(tier LocalityTier) float64 {
	switch tier {
	case TierSameCity:
		return PenaltySameCity
	case TierSameState:
		return PenaltySameState
	default:
		return PenaltyOtherState
	}
}
