package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementConfig drives the simulated interbank gateway.
type SettlementConfig struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64 // fraction of calls rejected, within [0,1]
	Timeout     time.Duration
}

// SimulatedSettlementGateway implements ports.SettlementGateway with random
// latency and a random rejection rate.
type SimulatedSettlementGateway struct {
	cfg    SettlementConfig
	log    zerolog.Logger
	rand   func() float64
	forced *bool
}

// GatewayOption tweaks a SimulatedSettlementGateway.
type GatewayOption func(*SimulatedSettlementGateway)

// WithForcedOutcome makes every call return ok instead of a random result.
func WithForcedOutcome(ok bool) GatewayOption {
	return func(g *SimulatedSettlementGateway) { g.forced = &ok }
}

// WithRandom replaces the uniform [0,1) source used for latency and rejection.
func WithRandom(fn func() float64) GatewayOption {
	return func(g *SimulatedSettlementGateway) { g.rand = fn }
}

// NewSimulatedSettlementGateway creates a new gateway.
func NewSimulatedSettlementGateway(cfg SettlementConfig, log zerolog.Logger, opts ...GatewayOption) *SimulatedSettlementGateway {
	g := &SimulatedSettlementGateway{cfg: cfg, log: log, rand: rand.Float64}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Transfer blocks for the simulated network latency and reports whether the
// receiving bank accepted the transfer. It returns an error only when ctx or
// the gateway's own timeout expires first.
func (g *SimulatedSettlementGateway) Transfer(ctx context.Context, destinationAccount, routingCode, receiverName string, amount decimal.Decimal) (bool, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	g.log.Info().
		Str("routing_code", routingCode).
		Str("destination", destinationAccount).
		Str("receiver", receiverName).
		Str("amount", amount.StringFixed(2)).
		Msg("settlement started")

	latency := g.latency()
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			g.log.Error().Err(ctx.Err()).Dur("latency", latency).Msg("settlement timed out")
			return false, fmt.Errorf("settlement: %w", ctx.Err())
		case <-timer.C:
		}
	}

	ok := g.rand() >= g.cfg.FailureRate
	if g.forced != nil {
		ok = *g.forced
	}
	if !ok {
		g.log.Error().Str("routing_code", routingCode).Msg("settlement rejected by receiving bank")
		return false, nil
	}

	g.log.Info().Str("reference", uuid.NewString()).Msg("settlement accepted")
	return true, nil
}

func (g *SimulatedSettlementGateway) latency() time.Duration {
	spread := g.cfg.MaxLatency - g.cfg.MinLatency
	if spread <= 0 {
		return g.cfg.MinLatency
	}
	return g.cfg.MinLatency + time.Duration(g.rand()*float64(spread))
}
