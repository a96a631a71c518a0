// Package handler содержит HTTP-обработчики API сервиса оценки заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/ecobazaar-estimator/internal/backend"
	"github.com/mmeshcher/ecobazaar-estimator/internal/estimator"
	"github.com/mmeshcher/ecobazaar-estimator/internal/middleware"
	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
	"github.com/mmeshcher/ecobazaar-estimator/internal/service"
	"github.com/mmeshcher/ecobazaar-estimator/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Estimate(lines []model.CartLine, address model.ShippingAddress, discount decimal.Decimal) model.PricingBreakdown
	Standing(points float64) model.LoyaltyStanding
	Footprint(inputs model.EcoInputs) float64
	CategoryBaseline(category string) float64
	EmissionFactors() map[model.FactorKind][]model.EmissionFactor
	CheckoutSummary(ctx context.Context, s model.Session, address model.ShippingAddress, couponCode string) (*model.CheckoutSummary, error)
	PlaceOrder(ctx context.Context, s model.Session, address model.ShippingAddress, couponCode string) (*model.PlacedOrder, error)
	ListEstimates(ctx context.Context, userID int64) ([]model.EstimateRecord, error)
}

// Handler реализует HTTP-обработчики API сервиса оценки заказов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeJSON кодирует ответ целиком до отправки заголовков, чтобы ошибка
// кодирования не превращалась в пустой ответ со статусом 200.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode response error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(buf, '\n')); err != nil {
		h.logger.Debug("write response error", zap.Error(err))
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// writeError переводит ошибку сервиса в HTTP-статус.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, validation.ErrInvalidAddress):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, backend.ErrUnauthorized):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, backend.ErrRejected):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, backend.ErrNotConfigured):
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

type sessionRequest struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}

// OpenSession сохраняет данные пользователя и токен бэкенда в подписанном cookie.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sess := model.Session{UserID: req.UserID, Token: strings.TrimSpace(req.Token)}
	if !sess.Authenticated() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.authMiddleware.SetSessionCookie(w, sess)
	w.WriteHeader(http.StatusOK)
}

// CloseSession удаляет cookie сессии.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type estimateRequest struct {
	Lines    []model.CartLine      `json:"lines"`
	Address  model.ShippingAddress `json:"address"`
	Discount decimal.Decimal       `json:"discount"`
}

type breakdownResponse struct {
	model.PricingBreakdown
	Display estimator.BreakdownDisplay `json:"display"`
}

func newBreakdownResponse(b model.PricingBreakdown) breakdownResponse {
	return breakdownResponse{PricingBreakdown: b, Display: estimator.Describe(b)}
}

// Estimate рассчитывает заказ по переданным позициям.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	for _, l := range req.Lines {
		if !isFinite(l.BaseCO2SavedPerUnit) || l.BaseCO2SavedPerUnit < 0 {
			http.Error(w, "invalid baseCo2SavedPerUnit", http.StatusBadRequest)
			return
		}
	}

	b := h.service.Estimate(req.Lines, req.Address, req.Discount)
	h.writeJSON(w, http.StatusOK, newBreakdownResponse(b))
}

// Standing возвращает уровень программы лояльности для числа баллов.
func (h *Handler) Standing(w http.ResponseWriter, r *http.Request) {
	points, err := strconv.ParseFloat(r.URL.Query().Get("points"), 64)
	if err != nil || !isFinite(points) || points < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Standing(points))
}

// EmissionFactors возвращает таблицы коэффициентов выбросов.
func (h *Handler) EmissionFactors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.EmissionFactors())
}

type footprintResponse struct {
	Footprint float64 `json:"footprint"`
	Display   string  `json:"display"`
}

// Footprint рассчитывает углеродный след товара.
func (h *Handler) Footprint(w http.ResponseWriter, r *http.Request) {
	var req model.EcoInputs
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	total := h.service.Footprint(req)
	h.writeJSON(w, http.StatusOK, footprintResponse{Footprint: total, Display: estimator.FormatCO2(total)})
}

type baselineResponse struct {
	Category string  `json:"category"`
	Baseline float64 `json:"baseline"`
}

// Baseline возвращает базовое значение CO₂ для категории.
func (h *Handler) Baseline(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	h.writeJSON(w, http.StatusOK, baselineResponse{
		Category: category,
		Baseline: h.service.CategoryBaseline(category),
	})
}

type checkoutRequest struct {
	Address    model.ShippingAddress `json:"address"`
	CouponCode string                `json:"couponCode"`
}

type summaryResponse struct {
	Lines     []model.CartLine        `json:"lines"`
	Breakdown breakdownResponse       `json:"breakdown"`
	Coupon    *model.CouponValidation `json:"coupon,omitempty"`
}

// CheckoutSummary рассчитывает текущую корзину пользователя.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	summary, err := h.service.CheckoutSummary(r.Context(), sess, req.Address, req.CouponCode)
	if err != nil {
		h.writeError(w, err, "checkout summary error", zap.Int64("userID", sess.UserID))
		return
	}

	h.writeJSON(w, http.StatusOK, summaryResponse{
		Lines:     summary.Lines,
		Breakdown: newBreakdownResponse(summary.Breakdown),
		Coupon:    summary.Coupon,
	})
}

type placedOrderResponse struct {
	Order      model.OrderResult       `json:"order"`
	Estimate   breakdownResponse       `json:"estimate"`
	Coupon     *model.CouponValidation `json:"coupon,omitempty"`
	EstimateID string                  `json:"estimateId,omitempty"`
}

// Checkout оформляет заказ из текущей корзины пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	placed, err := h.service.PlaceOrder(r.Context(), sess, req.Address, req.CouponCode)
	if err != nil {
		h.writeError(w, err, "checkout error", zap.Int64("userID", sess.UserID))
		return
	}

	h.writeJSON(w, http.StatusOK, placedOrderResponse{
		Order:      placed.Order,
		Estimate:   newBreakdownResponse(placed.Estimate),
		Coupon:     placed.Coupon,
		EstimateID: placed.EstimateID,
	})
}

type estimateRecordResponse struct {
	ID                    string           `json:"id"`
	OrderID               int64            `json:"orderId"`
	Status                string           `json:"status"`
	EstimatedTotal        decimal.Decimal  `json:"estimatedTotal"`
	EstimatedCO2Saved     float64          `json:"estimatedCo2Saved"`
	EstimatedPoints       int64            `json:"estimatedPoints"`
	AuthoritativeTotal    *decimal.Decimal `json:"authoritativeTotal,omitempty"`
	AuthoritativeCO2Saved *float64         `json:"authoritativeCo2Saved,omitempty"`
	AuthoritativePoints   *int64           `json:"authoritativePoints,omitempty"`
	TotalDrift            *decimal.Decimal `json:"totalDrift,omitempty"`
	PointsDrift           *int64           `json:"pointsDrift,omitempty"`
	CreatedAt             string           `json:"createdAt"`
	ReconciledAt          string           `json:"reconciledAt,omitempty"`
}

func newEstimateRecordResponse(e model.EstimateRecord) estimateRecordResponse {
	resp := estimateRecordResponse{
		ID:                    e.ID,
		OrderID:               e.OrderID,
		Status:                string(e.Status),
		EstimatedTotal:        e.EstimatedTotal,
		EstimatedCO2Saved:     e.EstimatedCO2Saved,
		EstimatedPoints:       e.EstimatedPoints,
		AuthoritativeTotal:    e.AuthoritativeTotal,
		AuthoritativeCO2Saved: e.AuthoritativeCO2Saved,
		AuthoritativePoints:   e.AuthoritativePoints,
		CreatedAt:             e.CreatedAt.Format(time.RFC3339),
	}
	if e.AuthoritativeTotal != nil {
		drift := e.AuthoritativeTotal.Sub(e.EstimatedTotal)
		resp.TotalDrift = &drift
	}
	if e.AuthoritativePoints != nil {
		drift := *e.AuthoritativePoints - e.EstimatedPoints
		resp.PointsDrift = &drift
	}
	if e.ReconciledAt != nil {
		resp.ReconciledAt = e.ReconciledAt.Format(time.RFC3339)
	}
	return resp
}

// GetEstimates возвращает записанные оценки заказов текущего пользователя.
func (h *Handler) GetEstimates(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	estimates, err := h.service.ListEstimates(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("get estimates error", zap.Error(err), zap.Int64("userID", sess.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(estimates) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]estimateRecordResponse, 0, len(estimates))
	for _, e := range estimates {
		resp = append(resp, newEstimateRecordResponse(e))
	}

	h.writeJSON(w, http.StatusOK, resp)
}
