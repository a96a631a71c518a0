// Package model содержит доменные сущности сервиса оценки заказа эко-маркетплейса.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine описывает одну позицию активной корзины покупателя.
type CartLine struct {
	ProductID           int64           `json:"productId,omitempty"`
	ProductName         string          `json:"productName,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	BaseCO2SavedPerUnit float64         `json:"baseCo2SavedPerUnit"`
	SellerCity          string          `json:"sellerCity"`
	SellerState         string          `json:"sellerState"`
}

// ShippingAddress содержит адрес доставки, введённый покупателем.
// Для оценки используются только City и State, остальные поля передаются в бэкенд как есть.
type ShippingAddress struct {
	FullName     string `json:"fullName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// PricingBreakdown содержит производные показатели заказа.
// ShippingTotal и FinalCO2Saved равны nil, пока у покупателя не заполнены город и штат.
type PricingBreakdown struct {
	Subtotal            decimal.Decimal  `json:"subtotal"`
	ShippingTotal       *decimal.Decimal `json:"shippingTotal"`
	BaseCO2Saved        float64          `json:"baseCo2Saved"`
	TransportPenaltyCO2 float64          `json:"transportPenaltyCo2"`
	FinalCO2Saved       *float64         `json:"finalCo2Saved"`
	DiscountAmount      decimal.Decimal  `json:"discountAmount"`
	Total               decimal.Decimal  `json:"total"`
	PointsEarned        int64            `json:"pointsEarned"`
}

// DiscountType описывает способ расчёта скидки по купону.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "PERCENT"
	DiscountTypeFixed   DiscountType = "FIXED"
)

// Coupon описывает купон покупателя.
type Coupon struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
}

// CouponValidation повторяет ответ бэкенда на проверку купона.
type CouponValidation struct {
	Valid          bool            `json:"valid"`
	CouponCode     string          `json:"couponCode,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountType   DiscountType    `json:"discountType,omitempty"`
	DiscountValue  float64         `json:"discountValue,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// LoyaltyLevel задаёт уровень программы лояльности и минимальное число баллов для него.
type LoyaltyLevel struct {
	Name      string `json:"name"`
	MinPoints int64  `json:"minPoints"`
}

// LoyaltyStanding описывает положение пользователя в программе лояльности.
type LoyaltyStanding struct {
	Points          float64 `json:"points"`
	Level           string  `json:"level"`
	NextLevelName   *string `json:"nextLevelName"`
	NextLevelPoints *int64  `json:"nextLevelPoints"`
	PointsToNext    float64 `json:"pointsToNext"`
	Progress        float64 `json:"progress"`
}

// Session содержит данные аутентификации пользователя, разрешённые один раз на запрос.
type Session struct {
	UserID int64
	Token  string
}

// Authenticated сообщает, содержит ли сессия данные пользователя.
func (s Session) Authenticated() bool {
	return s.UserID > 0 && s.Token != ""
}

// OrderResult описывает заказ в том виде, в котором его вернул бэкенд.
type OrderResult struct {
	ID                 int64           `json:"id"`
	Status             string          `json:"status"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalCarbonSaved   float64         `json:"totalCarbonSaved"`
	CarbonPointsEarned *int64          `json:"carbonPointsEarned,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	CreatedAt          time.Time       `json:"timestamp"`
}

// EstimateStatus описывает состояние сверки оценки с данными бэкенда.
type EstimateStatus string

const (
	EstimateStatusPending    EstimateStatus = "PENDING"
	EstimateStatusReconciled EstimateStatus = "RECONCILED"
)

// EstimateRecord хранит клиентскую оценку заказа рядом с итоговыми цифрами бэкенда.
type EstimateRecord struct {
	ID                    string
	UserID                int64
	OrderID               int64
	EstimatedTotal        decimal.Decimal
	EstimatedCO2Saved     float64
	EstimatedPoints       int64
	AuthoritativeTotal    *decimal.Decimal
	AuthoritativeCO2Saved *float64
	AuthoritativePoints   *int64
	Status                EstimateStatus
	CreatedAt             time.Time
	ReconciledAt          *time.Time
}

// FactorKind обозначает таблицу коэффициентов выбросов.
type FactorKind string

const (
	FactorKindMaterial      FactorKind = "materials"
	FactorKindManufacturing FactorKind = "manufacturing"
	FactorKindPackaging     FactorKind = "packaging"
)

// EmissionFactor задаёт выбросы в кг CO₂e на кг материала или обработки.
type EmissionFactor struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// EcoInputItem описывает одну строку формы ввода экологических данных товара.
type EcoInputItem struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// EcoInputs содержит состав товара для расчёта его углеродного следа.
type EcoInputs struct {
	Materials     []EcoInputItem `json:"materials"`
	Manufacturing []EcoInputItem `json:"manufacturing"`
	Packaging     []EcoInputItem `json:"packaging"`
}

// CheckoutSummary содержит снимок корзины, расчёт заказа и результат проверки купона.
type CheckoutSummary struct {
	Lines     []CartLine        `json:"lines"`
	Breakdown PricingBreakdown  `json:"breakdown"`
	Coupon    *CouponValidation `json:"coupon,omitempty"`
}

// PlacedOrder содержит заказ, оформленный бэкендом, и клиентскую оценку, показанную покупателю.
type PlacedOrder struct {
	Order      OrderResult       `json:"order"`
	Estimate   PricingBreakdown  `json:"estimate"`
	Coupon     *CouponValidation `json:"coupon,omitempty"`
	EstimateID string            `json:"estimateId,omitempty"`
}
