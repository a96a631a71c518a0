// Package service реализует бизнес-логику сервиса оценки заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/ecobazaar-estimator/internal/estimator"
	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
	"github.com/mmeshcher/ecobazaar-estimator/internal/repository"
	"github.com/mmeshcher/ecobazaar-estimator/internal/validation"
)

// ErrEmptyCart возвращается при попытке оформить пустую корзину.
var ErrEmptyCart = errors.New("cart is empty")

// Repository описывает контракт хранилища оценок, используемый сервисом.
type Repository interface {
	Close() error
	SaveEstimate(ctx context.Context, rec model.EstimateRecord) (string, error)
	GetEstimatesByUser(ctx context.Context, userID int64) ([]model.EstimateRecord, error)
	GetEstimatesForReconcile(ctx context.Context, limit int) ([]repository.EstimateForReconcile, error)
	UpdateAuthoritative(ctx context.Context, id string, order model.OrderResult) error
}

// Backend описывает контракт REST API маркетплейса.
type Backend interface {
	GetCart(ctx context.Context, s model.Session) ([]model.CartLine, error)
	ValidateCoupon(ctx context.Context, s model.Session, code string, amount decimal.Decimal) (*model.CouponValidation, error)
	SubmitOrder(ctx context.Context, s model.Session, address model.ShippingAddress, couponCode string) (*model.OrderResult, error)
	GetOrder(ctx context.Context, s model.Session, id int64) (*model.OrderResult, error)
}

// Service содержит бизнес-логику сервиса оценки заказов.
type Service struct {
	repo    Repository
	backend Backend
	logger  *zap.Logger
}

// NewService создаёт новый сервис. Хранилище может отсутствовать: тогда оценки не записываются.
func NewService(repo Repository, backend Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		backend: backend,
		logger:  logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Estimate рассчитывает заказ по переданным позициям без обращения к бэкенду.
func (s *Service) Estimate(lines []model.CartLine, address model.ShippingAddress, discount decimal.Decimal) model.PricingBreakdown {
	return estimator.ComputeBreakdown(lines, address, discount)
}

// Standing возвращает положение в программе лояльности для указанного числа баллов.
func (s *Service) Standing(points float64) model.LoyaltyStanding {
	return estimator.Standing(points)
}

// Footprint рассчитывает углеродный след товара по его составу.
func (s *Service) Footprint(inputs model.EcoInputs) float64 {
	return estimator.Footprint(inputs)
}

// CategoryBaseline возвращает базовую экономию CO₂ для категории товара.
func (s *Service) CategoryBaseline(category string) float64 {
	return estimator.CategoryBaseline(category)
}

// EmissionFactors возвращает все таблицы коэффициентов выбросов.
func (s *Service) EmissionFactors() map[model.FactorKind][]model.EmissionFactor {
	return map[model.FactorKind][]model.EmissionFactor{
		model.FactorKindMaterial:      estimator.Options(model.FactorKindMaterial),
		model.FactorKindManufacturing: estimator.Options(model.FactorKindManufacturing),
		model.FactorKindPackaging:     estimator.Options(model.FactorKindPackaging),
	}
}

// CheckoutSummary получает корзину пользователя и рассчитывает заказ.
// Купон проверяется бэкендом на сумму подытога с доставкой; отклонённый купон
// возвращается с сообщением и не даёт скидки.
func (s *Service) CheckoutSummary(ctx context.Context, sess model.Session, address model.ShippingAddress, couponCode string) (*model.CheckoutSummary, error) {
	lines, err := s.backend.GetCart(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	summary := &model.CheckoutSummary{
		Lines:     lines,
		Breakdown: estimator.ComputeBreakdown(lines, address, decimal.Zero),
	}

	code := validation.NormalizeCouponCode(couponCode)
	if code == "" {
		return summary, nil
	}

	if !validation.IsValidCouponCode(code) {
		summary.Coupon = &model.CouponValidation{
			Valid:      false,
			CouponCode: strings.TrimSpace(couponCode),
			Message:    "Invalid coupon code",
		}
		return summary, nil
	}

	v, err := s.backend.ValidateCoupon(ctx, sess, code, estimator.CouponOrderAmount(summary.Breakdown))
	if err != nil {
		return nil, fmt.Errorf("validate coupon: %w", err)
	}

	summary.Coupon = v
	summary.Breakdown = estimator.ComputeBreakdown(lines, address, estimator.DiscountFrom(v))

	return summary, nil
}

// PlaceOrder оформляет заказ и сохраняет показанную покупателю оценку рядом с данными бэкенда.
// Недействительный купон не препятствует оформлению: заказ уходит без скидки.
func (s *Service) PlaceOrder(ctx context.Context, sess model.Session, address model.ShippingAddress, couponCode string) (*model.PlacedOrder, error) {
	if err := validation.ValidateShippingAddress(address); err != nil {
		return nil, err
	}

	summary, err := s.CheckoutSummary(ctx, sess, address, couponCode)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	var appliedCode string
	if summary.Coupon != nil && summary.Coupon.Valid {
		appliedCode = summary.Coupon.CouponCode
	}

	order, err := s.backend.SubmitOrder(ctx, sess, address, appliedCode)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	placed := &model.PlacedOrder{
		Order:    *order,
		Estimate: summary.Breakdown,
		Coupon:   summary.Coupon,
	}

	if s.repo == nil {
		return placed, nil
	}

	id, err := s.repo.SaveEstimate(ctx, newEstimateRecord(sess.UserID, summary.Breakdown, *order))
	if err != nil {
		// Оценка носит справочный характер, заказ уже оформлен.
		s.logger.Error("save estimate error", zap.Error(err), zap.Int64("userID", sess.UserID), zap.Int64("orderID", order.ID))
		return placed, nil
	}
	placed.EstimateID = id

	return placed, nil
}

func newEstimateRecord(userID int64, b model.PricingBreakdown, order model.OrderResult) model.EstimateRecord {
	rec := model.EstimateRecord{
		UserID:          userID,
		OrderID:         order.ID,
		EstimatedTotal:  b.Total,
		EstimatedPoints: b.PointsEarned,
		Status:          model.EstimateStatusPending,
	}
	if b.FinalCO2Saved != nil {
		rec.EstimatedCO2Saved = *b.FinalCO2Saved
	}

	if isSettled(order) {
		total, co2 := order.TotalAmount, order.TotalCarbonSaved
		rec.AuthoritativeTotal = &total
		rec.AuthoritativeCO2Saved = &co2
		rec.AuthoritativePoints = order.CarbonPointsEarned
		rec.Status = model.EstimateStatusReconciled
		now := time.Now()
		rec.ReconciledAt = &now
	}

	return rec
}

// ListEstimates возвращает записанные оценки пользователя.
func (s *Service) ListEstimates(ctx context.Context, userID int64) ([]model.EstimateRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetEstimatesByUser(ctx, userID)
}
