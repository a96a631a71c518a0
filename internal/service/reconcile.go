package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/ecobazaar-estimator/internal/backend"
	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

const reconcileBatchSize = 100

// isSettled сообщает, зафиксировал ли бэкенд итоговые баллы заказа.
func isSettled(order model.OrderResult) bool {
	return order.CarbonPointsEarned != nil || order.Status == "CANCELLED"
}

// StartReconciliation запускает фоновую сверку записанных оценок с заказами бэкенда.
// Без хранилища или сервисного токена сверка не запускается.
func (s *Service) StartReconciliation(ctx context.Context, token string, interval time.Duration) {
	if s.repo == nil || s.backend == nil || token == "" {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processReconcileBatch(ctx, token)
			}
		}
	}()
}

func (s *Service) processReconcileBatch(ctx context.Context, token string) {
	pending, err := s.repo.GetEstimatesForReconcile(ctx, reconcileBatchSize)
	if err != nil {
		s.logger.Error("load pending estimates error", zap.Error(err))
		return
	}

	for _, e := range pending {
		if ctx.Err() != nil {
			return
		}

		order, err := s.backend.GetOrder(ctx, model.Session{UserID: e.UserID, Token: token}, e.OrderID)
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				s.logger.Error("service token rejected by backend", zap.Error(err))
				return
			}
			s.logger.Warn("get order error", zap.Error(err), zap.Int64("orderID", e.OrderID))
			continue
		}

		if !isSettled(*order) {
			continue
		}

		if err := s.repo.UpdateAuthoritative(ctx, e.ID, *order); err != nil {
			s.logger.Error("update estimate error", zap.Error(err), zap.String("estimateID", e.ID))
			continue
		}

		s.logger.Debug("estimate reconciled",
			zap.String("estimateID", e.ID),
			zap.Int64("orderID", e.OrderID),
			zap.String("status", order.Status),
		)
	}
}
