package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

type cartItemResponse struct {
	ProductID          int64           `json:"productId"`
	ProductName        string          `json:"productName"`
	ProductPrice       decimal.Decimal `json:"productPrice"`
	Quantity           int             `json:"quantity"`
	CarbonSavedPerItem *float64        `json:"carbonSavedPerItem"`
	ProductCity        string          `json:"productCity"`
	ProductState       string          `json:"productState"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
}

// GetCart запрашивает текущую корзину пользователя и возвращает её позиции.
func (c *Client) GetCart(ctx context.Context, s model.Session) ([]model.CartLine, error) {
	code, body, err := c.call(ctx, s, http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, err
	}
	if err := statusError(code, body); err != nil {
		return nil, err
	}

	var cart cartResponse
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	lines := make([]model.CartLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		var saved float64
		if it.CarbonSavedPerItem != nil {
			saved = *it.CarbonSavedPerItem
		}
		lines = append(lines, model.CartLine{
			ProductID:           it.ProductID,
			ProductName:         it.ProductName,
			Quantity:            it.Quantity,
			UnitPrice:           it.ProductPrice,
			BaseCO2SavedPerUnit: saved,
			SellerCity:          it.ProductCity,
			SellerState:         it.ProductState,
		})
	}

	return lines, nil
}

type couponRequest struct {
	UserID     int64   `json:"userId"`
	CouponCode string  `json:"couponCode"`
	Subtotal   float64 `json:"subtotal"`
}

type couponResponse struct {
	Valid          bool             `json:"valid"`
	CouponCode     string           `json:"couponCode"`
	DiscountAmount *decimal.Decimal `json:"discountAmount"`
	DiscountType   string           `json:"discountType"`
	DiscountValue  float64          `json:"discountValue"`
	Message        string           `json:"message"`
}

// ValidateCoupon проверяет купон на стороне бэкенда для указанной суммы заказа.
// Отказ в купоне возвращается как результат с Valid == false, а не как ошибка.
func (c *Client) ValidateCoupon(ctx context.Context, s model.Session, code string, amount decimal.Decimal) (*model.CouponValidation, error) {
	req := couponRequest{
		UserID:     s.UserID,
		CouponCode: code,
		Subtotal:   amount.InexactFloat64(),
	}

	status, body, err := c.call(ctx, s, http.MethodPost, "/coupons/apply", req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusBadRequest {
		msg := errorMessage(body)
		if msg == "" {
			msg = "coupon rejected"
		}
		return &model.CouponValidation{Valid: false, CouponCode: code, Message: msg}, nil
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var resp couponResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode coupon: %w", err)
	}

	v := &model.CouponValidation{
		Valid:         resp.Valid,
		CouponCode:    resp.CouponCode,
		DiscountType:  model.DiscountType(strings.ToUpper(resp.DiscountType)),
		DiscountValue: resp.DiscountValue,
		Message:       resp.Message,
	}
	if v.CouponCode == "" {
		v.CouponCode = code
	}
	if resp.DiscountAmount != nil {
		v.DiscountAmount = *resp.DiscountAmount
	}

	return v, nil
}

type checkoutRequest struct {
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	CouponCode      string                `json:"couponCode,omitempty"`
}

type orderResponse struct {
	ID                 int64            `json:"id"`
	Status             string           `json:"status"`
	TotalAmount        *decimal.Decimal `json:"totalAmount"`
	TotalCarbonSaved   *float64         `json:"totalCarbonSaved"`
	CarbonPointsEarned *int64           `json:"carbonPointsEarned"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount"`
	Timestamp          string           `json:"timestamp"`
}

// SubmitOrder оформляет заказ из текущей корзины. Итоговые суммы и баллы рассчитывает бэкенд.
func (c *Client) SubmitOrder(ctx context.Context, s model.Session, address model.ShippingAddress, couponCode string) (*model.OrderResult, error) {
	code, body, err := c.call(ctx, s, http.MethodPost, "/cart/checkout", checkoutRequest{
		ShippingAddress: address,
		CouponCode:      couponCode,
	})
	if err != nil {
		return nil, err
	}
	if err := statusError(code, body); err != nil {
		return nil, err
	}

	return decodeOrder(body)
}

// GetOrder запрашивает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, s model.Session, id int64) (*model.OrderResult, error) {
	code, body, err := c.call(ctx, s, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	if err := statusError(code, body); err != nil {
		return nil, err
	}

	return decodeOrder(body)
}

func decodeOrder(body []byte) (*model.OrderResult, error) {
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}

	o := &model.OrderResult{
		ID:                 resp.ID,
		Status:             resp.Status,
		CarbonPointsEarned: resp.CarbonPointsEarned,
		CreatedAt:          parseTimestamp(resp.Timestamp),
	}
	if resp.TotalAmount != nil {
		o.TotalAmount = *resp.TotalAmount
	}
	if resp.TotalCarbonSaved != nil {
		o.TotalCarbonSaved = *resp.TotalCarbonSaved
	}
	if resp.DiscountAmount != nil {
		o.DiscountAmount = *resp.DiscountAmount
	}

	return o, nil
}

// parseTimestamp разбирает время заказа; бэкенд отдаёт его как с часовым поясом, так и без.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
