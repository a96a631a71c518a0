package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecobazaar-estimator/internal/backend"
	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
	"github.com/mmeshcher/ecobazaar-estimator/internal/repository"
	"github.com/mmeshcher/ecobazaar-estimator/internal/validation"
)

type stubRepo struct {
	saved   []model.EstimateRecord
	saveErr error

	estimates []model.EstimateRecord

	pending []repository.EstimateForReconcile
	updated map[string]model.OrderResult
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) SaveEstimate(ctx context.Context, rec model.EstimateRecord) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, rec)
	return "est-1", nil
}

func (s *stubRepo) GetEstimatesByUser(ctx context.Context, userID int64) ([]model.EstimateRecord, error) {
	return s.estimates, nil
}

func (s *stubRepo) GetEstimatesForReconcile(ctx context.Context, limit int) ([]repository.EstimateForReconcile, error) {
	return s.pending, nil
}

func (s *stubRepo) UpdateAuthoritative(ctx context.Context, id string, order model.OrderResult) error {
	if s.updated == nil {
		s.updated = make(map[string]model.OrderResult)
	}
	s.updated[id] = order
	return nil
}

type stubBackend struct {
	lines   []model.CartLine
	cartErr error

	coupon       *model.CouponValidation
	couponAmount decimal.Decimal
	couponCalls  int

	order          *model.OrderResult
	submitErr      error
	submittedCode  string
	submitCalls    int
	orders         map[int64]*model.OrderResult
	orderLookupErr error
}

func (s *stubBackend) GetCart(ctx context.Context, sess model.Session) ([]model.CartLine, error) {
	return s.lines, s.cartErr
}

func (s *stubBackend) ValidateCoupon(ctx context.Context, sess model.Session, code string, amount decimal.Decimal) (*model.CouponValidation, error) {
	s.couponCalls++
	s.couponAmount = amount
	return s.coupon, nil
}

func (s *stubBackend) SubmitOrder(ctx context.Context, sess model.Session, address model.ShippingAddress, couponCode string) (*model.OrderResult, error) {
	s.submitCalls++
	s.submittedCode = couponCode
	return s.order, s.submitErr
}

func (s *stubBackend) GetOrder(ctx context.Context, sess model.Session, id int64) (*model.OrderResult, error) {
	if s.orderLookupErr != nil {
		return nil, s.orderLookupErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return o, nil
}

var (
	testSession = model.Session{UserID: 7, Token: "jwt"}
	testAddress = model.ShippingAddress{
		FullName:     "Asha Rao",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Pune",
		State:        "MH",
		PostalCode:   "411001",
	}
)

func testCart() []model.CartLine {
	return []model.CartLine{{
		Quantity:            2,
		UnitPrice:           decimal.NewFromInt(100),
		BaseCO2SavedPerUnit: 5,
		SellerCity:          "Pune",
		SellerState:         "MH",
	}}
}

func TestCheckoutSummary_NoCoupon(t *testing.T) {
	be := &stubBackend{lines: testCart()}
	svc := NewService(nil, be, nil)

	sum, err := svc.CheckoutSummary(context.Background(), testSession, testAddress, "")
	if err != nil {
		t.Fatalf("CheckoutSummary error: %v", err)
	}
	if !sum.Breakdown.Total.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("Total = %s, want 220", sum.Breakdown.Total)
	}
	if sum.Coupon != nil {
		t.Fatalf("unexpected coupon result: %+v", sum.Coupon)
	}
	if be.couponCalls != 0 {
		t.Fatalf("coupon must not be validated without a code")
	}
}

func TestCheckoutSummary_AppliesBackendDiscount(t *testing.T) {
	be := &stubBackend{
		lines: testCart(),
		coupon: &model.CouponValidation{
			Valid:          true,
			CouponCode:     "ECO20-1A2B3C4D",
			DiscountAmount: decimal.NewFromInt(44),
		},
	}
	svc := NewService(nil, be, nil)

	sum, err := svc.CheckoutSummary(context.Background(), testSession, testAddress, " eco20-1a2b3c4d ")
	if err != nil {
		t.Fatalf("CheckoutSummary error: %v", err)
	}
	if !be.couponAmount.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("coupon validated on %s, want subtotal plus shipping 220", be.couponAmount)
	}
	if !sum.Breakdown.DiscountAmount.Equal(decimal.NewFromInt(44)) {
		t.Fatalf("DiscountAmount = %s, want 44", sum.Breakdown.DiscountAmount)
	}
	if !sum.Breakdown.Total.Equal(decimal.NewFromInt(176)) {
		t.Fatalf("Total = %s, want 176", sum.Breakdown.Total)
	}
}

func TestCheckoutSummary_RejectedCouponGivesNoDiscount(t *testing.T) {
	be := &stubBackend{
		lines:  testCart(),
		coupon: &model.CouponValidation{Valid: false, CouponCode: "ECO20-1A2B3C4D", Message: "Coupon expired"},
	}
	svc := NewService(nil, be, nil)

	sum, err := svc.CheckoutSummary(context.Background(), testSession, testAddress, "ECO20-1A2B3C4D")
	if err != nil {
		t.Fatalf("CheckoutSummary error: %v", err)
	}
	if !sum.Breakdown.DiscountAmount.IsZero() {
		t.Fatalf("DiscountAmount = %s, want 0", sum.Breakdown.DiscountAmount)
	}
	if sum.Coupon == nil || sum.Coupon.Message != "Coupon expired" {
		t.Fatalf("unexpected coupon result: %+v", sum.Coupon)
	}
}

func TestCheckoutSummary_MalformedCouponSkipsBackend(t *testing.T) {
	be := &stubBackend{lines: testCart()}
	svc := NewService(nil, be, nil)

	sum, err := svc.CheckoutSummary(context.Background(), testSession, testAddress, "not a coupon!")
	if err != nil {
		t.Fatalf("CheckoutSummary error: %v", err)
	}
	if be.couponCalls != 0 {
		t.Fatalf("malformed coupon must not reach backend")
	}
	if sum.Coupon == nil || sum.Coupon.Valid {
		t.Fatalf("expected invalid coupon result, got %+v", sum.Coupon)
	}
}

func TestCheckoutSummary_PropagatesCartError(t *testing.T) {
	be := &stubBackend{cartErr: backend.ErrUnauthorized}
	svc := NewService(nil, be, nil)

	_, err := svc.CheckoutSummary(context.Background(), testSession, testAddress, "")
	if !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPlaceOrder_InvalidAddress(t *testing.T) {
	be := &stubBackend{lines: testCart()}
	svc := NewService(nil, be, nil)

	_, err := svc.PlaceOrder(context.Background(), testSession, model.ShippingAddress{City: "Pune", State: "MH"}, "")
	if !errors.Is(err, validation.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if be.submitCalls != 0 {
		t.Fatalf("order must not be submitted with invalid address")
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := NewService(nil, &stubBackend{}, nil)

	_, err := svc.PlaceOrder(context.Background(), testSession, testAddress, "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestPlaceOrder_RecordsPendingEstimate(t *testing.T) {
	repo := &stubRepo{}
	be := &stubBackend{
		lines:  testCart(),
		coupon: &model.CouponValidation{Valid: false, Message: "Coupon expired"},
		order:  &model.OrderResult{ID: 42, Status: "PENDING", TotalAmount: decimal.NewFromInt(220)},
	}
	svc := NewService(repo, be, nil)

	placed, err := svc.PlaceOrder(context.Background(), testSession, testAddress, "ECO20-1A2B3C4D")
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if be.submittedCode != "" {
		t.Fatalf("rejected coupon must not be submitted, got %q", be.submittedCode)
	}
	if placed.EstimateID != "est-1" || placed.Order.ID != 42 {
		t.Fatalf("unexpected placed order: %+v", placed)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one saved estimate, got %d", len(repo.saved))
	}

	rec := repo.saved[0]
	if rec.Status != model.EstimateStatusPending || rec.AuthoritativeTotal != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.UserID != 7 || rec.OrderID != 42 || rec.EstimatedPoints != 96 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if math.Abs(rec.EstimatedCO2Saved-9.6) > 1e-9 {
		t.Fatalf("EstimatedCO2Saved = %v, want 9.6", rec.EstimatedCO2Saved)
	}
}

func TestPlaceOrder_SettledOrderIsReconciledImmediately(t *testing.T) {
	points := int64(96)
	repo := &stubRepo{}
	be := &stubBackend{
		lines:  testCart(),
		coupon: &model.CouponValidation{Valid: true, CouponCode: "ECO20-1A2B3C4D", DiscountAmount: decimal.NewFromInt(44)},
		order: &model.OrderResult{
			ID:                 43,
			Status:             "PENDING",
			TotalAmount:        decimal.NewFromInt(176),
			TotalCarbonSaved:   9.6,
			CarbonPointsEarned: &points,
		},
	}
	svc := NewService(repo, be, nil)

	_, err := svc.PlaceOrder(context.Background(), testSession, testAddress, "ECO20-1A2B3C4D")
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if be.submittedCode != "ECO20-1A2B3C4D" {
		t.Fatalf("submitted coupon = %q", be.submittedCode)
	}

	rec := repo.saved[0]
	if rec.Status != model.EstimateStatusReconciled || rec.ReconciledAt == nil {
		t.Fatalf("expected reconciled record, got %+v", rec)
	}
	if rec.AuthoritativeTotal == nil || !rec.AuthoritativeTotal.Equal(decimal.NewFromInt(176)) {
		t.Fatalf("unexpected authoritative total: %v", rec.AuthoritativeTotal)
	}
}

func TestPlaceOrder_SaveErrorDoesNotFailOrder(t *testing.T) {
	repo := &stubRepo{saveErr: repository.ErrEstimateExists}
	be := &stubBackend{
		lines: testCart(),
		order: &model.OrderResult{ID: 44, Status: "PENDING"},
	}
	svc := NewService(repo, be, nil)

	placed, err := svc.PlaceOrder(context.Background(), testSession, testAddress, "")
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if placed.EstimateID != "" {
		t.Fatalf("EstimateID = %q, want empty", placed.EstimateID)
	}
}

func TestPlaceOrder_PropagatesSubmitError(t *testing.T) {
	be := &stubBackend{lines: testCart(), submitErr: backend.ErrRejected}
	svc := NewService(nil, be, nil)

	_, err := svc.PlaceOrder(context.Background(), testSession, testAddress, "")
	if !errors.Is(err, backend.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestListEstimates_WithoutRepository(t *testing.T) {
	svc := NewService(nil, &stubBackend{}, nil)

	res, err := svc.ListEstimates(context.Background(), 1)
	if err != nil || res != nil {
		t.Fatalf("expected nil result, got %v, %v", res, err)
	}
}

func TestProcessReconcileBatch(t *testing.T) {
	points := int64(50)
	repo := &stubRepo{
		pending: []repository.EstimateForReconcile{
			{ID: "a", UserID: 1, OrderID: 1},
			{ID: "b", UserID: 1, OrderID: 2},
			{ID: "c", UserID: 2, OrderID: 3},
			{ID: "d", UserID: 2, OrderID: 4},
		},
	}
	be := &stubBackend{
		orders: map[int64]*model.OrderResult{
			1: {ID: 1, Status: "DELIVERED", CarbonPointsEarned: &points},
			2: {ID: 2, Status: "PENDING"},
			4: {ID: 4, Status: "CANCELLED"},
		},
	}
	svc := NewService(repo, be, nil)

	svc.processReconcileBatch(context.Background(), "service-token")

	if len(repo.updated) != 2 {
		t.Fatalf("expected 2 reconciled estimates, got %d", len(repo.updated))
	}
	if _, ok := repo.updated["a"]; !ok {
		t.Fatalf("estimate a must be reconciled")
	}
	if _, ok := repo.updated["d"]; !ok {
		t.Fatalf("estimate d must be reconciled")
	}
}

func TestProcessReconcileBatch_StopsOnRejectedToken(t *testing.T) {
	repo := &stubRepo{
		pending: []repository.EstimateForReconcile{{ID: "a", UserID: 1, OrderID: 1}},
	}
	be := &stubBackend{orderLookupErr: backend.ErrUnauthorized}
	svc := NewService(repo, be, nil)

	svc.processReconcileBatch(context.Background(), "bad-token")

	if len(repo.updated) != 0 {
		t.Fatalf("nothing must be reconciled, got %d", len(repo.updated))
	}
}

func TestStartReconciliation_NoToken(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubBackend{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartReconciliation(ctx, "", time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartReconciliation did not return without token")
	}
}
