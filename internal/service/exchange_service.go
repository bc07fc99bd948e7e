package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExchangeService implements ports.ExchangeRateService.
type ExchangeService struct {
	rateRepo ports.ExchangeRateRepository
	cache    ports.RateCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewExchangeService creates a new ExchangeService. cache may be nil.
func NewExchangeService(rateRepo ports.ExchangeRateRepository, cache ports.RateCache, cacheTTL time.Duration, log zerolog.Logger) *ExchangeService {
	return &ExchangeService{
		rateRepo: rateRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Rate returns the conversion factor from one currency to another.
// Same-currency pairs are 1 and never hit storage.
func (s *ExchangeService) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = domain.NormalizeCurrency(from), domain.NormalizeCurrency(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, from, to)
		if err != nil {
			s.log.Warn().Err(err).Str("pair", from+"/"+to).Msg("rate cache read failed, falling through to DB")
		} else if cached != nil {
			return *cached, nil
		}
	}

	rate, err := s.rateRepo.Get(ctx, from, to)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get rate: %w", err))
	}
	if rate == nil {
		return decimal.Zero, apperror.ErrRateNotFound(from, to)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, from, to, rate.Rate, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("pair", from+"/"+to).Msg("rate cache write failed")
		}
	}
	return rate.Rate, nil
}

// Convert returns amount expressed in the target currency, rounded half-to-even
// to the ledger's amount scale.
func (s *ExchangeService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if domain.NormalizeCurrency(from) == domain.NormalizeCurrency(to) {
		return amount, nil
	}
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).RoundBank(domain.AmountScale), nil
}

// UpsertRate stores a rate for an ordered pair and evicts the cached value.
func (s *ExchangeService) UpsertRate(ctx context.Context, from, to string, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	from, to = domain.NormalizeCurrency(from), domain.NormalizeCurrency(to)
	if !domain.IsCurrencyCode(from) || !domain.IsCurrencyCode(to) {
		return nil, apperror.Validation("currency codes must be 3 letters")
	}
	if from == to {
		return nil, apperror.Validation("same-currency rates are fixed at 1")
	}
	if !rate.IsPositive() {
		return nil, apperror.Validation("rate must be positive")
	}

	er := &domain.ExchangeRate{
		From:      from,
		To:        to,
		Rate:      rate.Round(domain.RateScale),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.rateRepo.Upsert(ctx, er); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert rate: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, from, to); err != nil {
			s.log.Warn().Err(err).Str("pair", from+"/"+to).Msg("rate cache eviction failed")
		}
	}

	s.log.Info().Str("pair", from+"/"+to).Str("rate", er.Rate.String()).Msg("exchange rate updated")
	return er, nil
}

// ListRates returns every stored rate.
func (s *ExchangeService) ListRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	rates, err := s.rateRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rates: %w", err))
	}
	return rates, nil
}

// SeedRates stores each given pair that has no rate yet. Existing rates win.
func (s *ExchangeService) SeedRates(ctx context.Context, seeds []domain.ExchangeRate) error {
	for _, seed := range seeds {
		existing, err := s.rateRepo.Get(ctx, seed.From, seed.To)
		if err != nil {
			return fmt.Errorf("seed rate %s/%s: %w", seed.From, seed.To, err)
		}
		if existing != nil {
			continue
		}
		if _, err := s.UpsertRate(ctx, seed.From, seed.To, seed.Rate); err != nil {
			return fmt.Errorf("seed rate %s/%s: %w", seed.From, seed.To, err)
		}
	}
	return nil
}
