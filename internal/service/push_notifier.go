package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPPushNotifier posts push notifications as signed JSON.
type HTTPPushNotifier struct {
	url        string
	secret     string
	signer     ports.SignatureService
	httpClient HTTPClient
}

// NewHTTPPushNotifier creates a notifier for the given endpoint.
func NewHTTPPushNotifier(url, secret string, signer ports.SignatureService, httpClient HTTPClient) *HTTPPushNotifier {
	return &HTTPPushNotifier{url: url, secret: secret, signer: signer, httpClient: httpClient}
}

// Notify delivers one notification. Any non-2xx reply is an error.
func (p *HTTPPushNotifier) Notify(ctx context.Context, n domain.PushNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", p.signer.Sign(p.secret, string(body)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push request: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogPushNotifier is the degraded-mode notifier: it only records the message.
type LogPushNotifier struct {
	log zerolog.Logger
}

// NewLogPushNotifier creates a new LogPushNotifier.
func NewLogPushNotifier(log zerolog.Logger) *LogPushNotifier {
	return &LogPushNotifier{log: log}
}

// Notify logs the notification and never fails.
func (p *LogPushNotifier) Notify(_ context.Context, n domain.PushNotification) error {
	p.log.Info().
		Str("customer_id", n.CustomerID.String()).
		Str("type", string(n.Type)).
		Str("message", n.Message).
		Msg("push notification (log only)")
	return nil
}

// BreakerSettings configures BreakerPushNotifier.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures that open the breaker
	OpenTimeout time.Duration // time spent open before a trial request
}

// BreakerPushNotifier guards a primary notifier with a circuit breaker and
// routes to a fallback when the primary fails or the breaker is open.
type BreakerPushNotifier struct {
	primary  ports.PushNotifier
	fallback ports.PushNotifier
	cb       *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

// NewBreakerPushNotifier creates a breaker-protected notifier.
func NewBreakerPushNotifier(primary, fallback ports.PushNotifier, settings BreakerSettings, log zerolog.Logger) *BreakerPushNotifier {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "push-notifier",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &BreakerPushNotifier{primary: primary, fallback: fallback, cb: cb, log: log}
}

// Notify tries the primary notifier and falls back on any failure.
func (p *BreakerPushNotifier) Notify(ctx context.Context, n domain.PushNotification) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.primary.Notify(ctx, n)
	})
	if err == nil {
		return nil
	}
	p.log.Warn().Err(err).Str("customer_id", n.CustomerID.String()).Msg("push delivery failed, using fallback")
	return p.fallback.Notify(ctx, n)
}

// State exposes the breaker state.
func (p *BreakerPushNotifier) State() gobreaker.State {
	return p.cb.State()
}

// Name implements ports.HealthChecker.
func (p *BreakerPushNotifier) Name() string { return "push_notifier" }

// Ping fails while the breaker is open; pushes are then going to the fallback.
func (p *BreakerPushNotifier) Ping(_ context.Context) error {
	if state := p.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("push circuit %s", state)
	}
	return nil
}
