package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ExchangeRateRepo implements ports.ExchangeRateRepository.
type ExchangeRateRepo struct {
	pool Pool
}

// NewExchangeRateRepo creates a new ExchangeRateRepo.
func NewExchangeRateRepo(pool Pool) *ExchangeRateRepo {
	return &ExchangeRateRepo{pool: pool}
}

// Get returns the rate for an ordered pair, or nil if none is stored.
func (r *ExchangeRateRepo) Get(ctx context.Context, from, to string) (*domain.ExchangeRate, error) {
	query := `SELECT from_currency, to_currency, rate, updated_at
		FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2`

	rate := &domain.ExchangeRate{}
	err := r.pool.QueryRow(ctx, query, from, to).Scan(&rate.From, &rate.To, &rate.Rate, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	return rate, nil
}

// Upsert stores a rate, replacing the previous value for the pair.
func (r *ExchangeRateRepo) Upsert(ctx context.Context, rate *domain.ExchangeRate) error {
	query := `INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_currency, to_currency) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, rate.From, rate.To, rate.Rate, rate.UpdatedAt); err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

// List returns every stored rate ordered by pair.
func (r *ExchangeRateRepo) List(ctx context.Context) ([]domain.ExchangeRate, error) {
	query := `SELECT from_currency, to_currency, rate, updated_at
		FROM exchange_rates ORDER BY from_currency, to_currency`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.ExchangeRate
	for rows.Next() {
		var rate domain.ExchangeRate
		if err := rows.Scan(&rate.From, &rate.To, &rate.Rate, &rate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange rate row: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rate rows: %w", err)
	}
	return rates, nil
}
