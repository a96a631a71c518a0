package estimator

import (
	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

var materialFactors = []model.EmissionFactor{
	{Name: "Raw Cotton", Factor: 5.92},
	{Name: "Polyester", Factor: 5.5},
	{Name: "Organic Cotton", Factor: 3.8},
	{Name: "Recycled Polyester", Factor: 2.1},
	{Name: "Nylon", Factor: 7.3},
	{Name: "Wool", Factor: 20.0},
	{Name: "Silk", Factor: 25.0},
	{Name: "Leather", Factor: 30.0},
	{Name: "Denim", Factor: 6.0},
	{Name: "Linen", Factor: 4.5},
	{Name: "Hemp", Factor: 3.5},
	{Name: "Bamboo", Factor: 3.0},
	{Name: "Viscose", Factor: 4.2},
	{Name: "Tencel", Factor: 3.8},
	{Name: "Other – Textile", Factor: 6.5},
	{Name: "Other – Plastic", Factor: 7.0},
	{Name: "Other – Natural Material", Factor: 4.5},
	{Name: "Other – Synthetic Material", Factor: 6.8},
}

var manufacturingFactors = []model.EmissionFactor{
	{Name: "Yarn Spinning", Factor: 3.0},
	{Name: "Weaving", Factor: 4.0},
	{Name: "Knitting", Factor: 3.5},
	{Name: "Dyeing", Factor: 4.0},
	{Name: "Printing", Factor: 2.5},
	{Name: "Cut & Sew", Factor: 1.0},
	{Name: "Finishing", Factor: 1.5},
	{Name: "Washing", Factor: 0.8},
	{Name: "Embroidery", Factor: 1.2},
	{Name: "Assembly", Factor: 0.5},
	{Name: "Other – Generic Manufacturing", Factor: 3.0},
}

var packagingFactors = []model.EmissionFactor{
	{Name: "Plastic Bag", Factor: 2.0},
	{Name: "Cardboard Box", Factor: 0.9},
	{Name: "Paper Wrap", Factor: 0.5},
	{Name: "Jute Bag", Factor: 0.3},
	{Name: "Biodegradable Plastic", Factor: 1.2},
	{Name: "Recycled Paper", Factor: 0.6},
	{Name: "Bubble Wrap", Factor: 2.5},
	{Name: "Other – Generic Packaging", Factor: 1.5},
}

// DefaultCategoryBaseline используется для категорий без собственного базового значения.
const DefaultCategoryBaseline = 5.0

var categoryBaselines = map[string]float64{
	"Eco-Friendly Groceries":       3.0,
	"Personal Care (Eco-Friendly)": 2.0,
	"Eco Kitchenware":              4.0,
	"Green Electronics":            8.0,
	"Eco-Home & Living":            6.0,
	"Sustainable Fashion":          5.0,
}

func factorTable(kind model.FactorKind) []model.EmissionFactor {
	switch kind {
	case model.FactorKindMaterial:
		return materialFactors
	case model.FactorKindManufacturing:
		return manufacturingFactors
	case model.FactorKindPackaging:
		return packagingFactors
	default:
		return nil
	}
}

// Options возвращает копию таблицы коэффициентов в порядке отображения в форме.
func Options(kind model.FactorKind) []model.EmissionFactor {
	table := factorTable(kind)
	out := make([]model.EmissionFactor, len(table))
	copy(out, table)
	return out
}

// Factor ищет коэффициент по точному названию.
func Factor(kind model.FactorKind, name string) (float64, bool) {
	for _, f := range factorTable(kind) {
		if f.Name == name {
			return f.Factor, true
		}
	}
	return 0, false
}

// Footprint возвращает углеродный след товара в кг CO₂e.
// Неизвестные названия и неположительные веса не учитываются.
func Footprint(inputs model.EcoInputs) float64 {
	return sectionFootprint(model.FactorKindMaterial, inputs.Materials) +
		sectionFootprint(model.FactorKindManufacturing, inputs.Manufacturing) +
		sectionFootprint(model.FactorKindPackaging, inputs.Packaging)
}

func sectionFootprint(kind model.FactorKind, items []model.EcoInputItem) float64 {
	var total float64
	for _, item := range items {
		if item.Weight <= 0 {
			continue
		}
		if f, ok := Factor(kind, item.Name); ok {
			total += item.Weight * f
		}
	}
	return total
}

// CategoryBaseline возвращает базовый углеродный след категории товаров в кг CO₂.
func CategoryBaseline(category string) float64 {
	if v, ok := categoryBaselines[category]; ok {
		return v
	}
	return DefaultCategoryBaseline
}
