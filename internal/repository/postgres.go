// Package repository содержит реализацию хранилища оценок заказов в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrEstimateExists возвращается при повторной записи оценки для того же заказа.
var (
	ErrEstimateExists = errors.New("estimate already recorded for order")
	// ErrEstimateNotFound возвращается, если оценка не найдена.
	ErrEstimateNotFound = errors.New("estimate not found")
)

const (
	maxRetries = 3
	retryBase  = 500 * time.Millisecond
)

// PostgresRepository предоставляет доступ к оценкам заказов в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при сбоях сериализации, взаимоблокировках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveEstimate сохраняет клиентскую оценку оформленного заказа.
// Если идентификатор не задан, он генерируется.
func (r *PostgresRepository) SaveEstimate(ctx context.Context, rec model.EstimateRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = model.EstimateStatusPending
	}

	err := r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO checkout_estimates
			   (id, user_id, order_id, estimated_total, estimated_co2_saved, estimated_points,
			    authoritative_total, authoritative_co2_saved, authoritative_points, status, reconciled_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			rec.ID, rec.UserID, rec.OrderID,
			toPaise(rec.EstimatedTotal), toGrams(rec.EstimatedCO2Saved), rec.EstimatedPoints,
			optionalPaise(rec.AuthoritativeTotal), optionalGrams(rec.AuthoritativeCO2Saved), rec.AuthoritativePoints,
			string(rec.Status), rec.ReconciledAt,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: order %d", ErrEstimateExists, rec.OrderID)
		}
		return "", fmt.Errorf("insert estimate: %w", err)
	}

	return rec.ID, nil
}

// GetEstimatesByUser возвращает оценки заказов пользователя, новые первыми.
func (r *PostgresRepository) GetEstimatesByUser(ctx context.Context, userID int64) ([]model.EstimateRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, user_id, order_id, estimated_total, estimated_co2_saved, estimated_points,
		        authoritative_total, authoritative_co2_saved, authoritative_points,
		        status, created_at, reconciled_at
		 FROM checkout_estimates
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select estimates: %w", err)
	}
	defer rows.Close()

	var res []model.EstimateRecord
	for rows.Next() {
		rec, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanEstimate(row pgx.Row) (model.EstimateRecord, error) {
	var (
		rec                            model.EstimateRecord
		estTotal, estCO2               int64
		authTotal, authCO2, authPoints *int64
		status                         string
	)

	err := row.Scan(&rec.ID, &rec.UserID, &rec.OrderID, &estTotal, &estCO2, &rec.EstimatedPoints,
		&authTotal, &authCO2, &authPoints, &status, &rec.CreatedAt, &rec.ReconciledAt)
	if err != nil {
		return model.EstimateRecord{}, fmt.Errorf("scan estimate: %w", err)
	}

	rec.Status = model.EstimateStatus(status)
	rec.EstimatedTotal = fromPaise(estTotal)
	rec.EstimatedCO2Saved = fromGrams(estCO2)
	rec.AuthoritativePoints = authPoints
	if authTotal != nil {
		v := fromPaise(*authTotal)
		rec.AuthoritativeTotal = &v
	}
	if authCO2 != nil {
		v := fromGrams(*authCO2)
		rec.AuthoritativeCO2Saved = &v
	}

	return rec, nil
}

// EstimateForReconcile описывает оценку, ожидающую итоговых цифр бэкенда.
type EstimateForReconcile struct {
	ID      string
	UserID  int64
	OrderID int64
}

// GetEstimatesForReconcile возвращает самые старые несверенные оценки.
func (r *PostgresRepository) GetEstimatesForReconcile(ctx context.Context, limit int) ([]EstimateForReconcile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, user_id, order_id
		 FROM checkout_estimates
		 WHERE status = $1
		 ORDER BY created_at
		 LIMIT $2`,
		string(model.EstimateStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select estimates for reconcile: %w", err)
	}
	defer rows.Close()

	var res []EstimateForReconcile
	for rows.Next() {
		var e EstimateForReconcile
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrderID); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateAuthoritative сохраняет итоговые цифры заказа от бэкенда и помечает оценку сверенной.
func (r *PostgresRepository) UpdateAuthoritative(ctx context.Context, id string, order model.OrderResult) error {
	var affected int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE checkout_estimates
			 SET authoritative_total = $2,
			     authoritative_co2_saved = $3,
			     authoritative_points = $4,
			     status = $5,
			     reconciled_at = now()
			 WHERE id = $1`,
			id, toPaise(order.TotalAmount), toGrams(order.TotalCarbonSaved), order.CarbonPointsEarned,
			string(model.EstimateStatusReconciled),
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update estimate: %w", err)
	}

	if affected == 0 {
		return ErrEstimateNotFound
	}

	return nil
}

// Суммы хранятся в пайсах, масса CO₂ в граммах.
func toPaise(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromPaise(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func optionalPaise(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	v := toPaise(*d)
	return &v
}

func toGrams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

func fromGrams(g int64) float64 {
	return float64(g) / 1000
}

func optionalGrams(kg *float64) *int64 {
	if kg == nil {
		return nil
	}
	v := toGrams(*kg)
	return &v
}
