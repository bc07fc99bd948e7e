package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func httpReply(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func TestHTTPPushNotifier_SignsBody(t *testing.T) {
	n := domain.PushNotification{CustomerID: uuid.New(), Message: "You received 5.00 EUR", Type: domain.NotificationTransferReceived}
	signer := NewHMACSignatureService()

	var captured *http.Request
	var body []byte
	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		captured = req
		body, _ = io.ReadAll(req.Body)
		return httpReply(http.StatusAccepted), nil
	}}

	p := NewHTTPPushNotifier("https://push.example.com/v1/notify", "push-secret", signer, client)
	require.NoError(t, p.Notify(context.Background(), n))

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.True(t, signer.Verify("push-secret", string(body), captured.Header.Get("X-Signature")))

	var decoded domain.PushNotification
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, n, decoded)
}

func TestHTTPPushNotifier_Non2xxIsError(t *testing.T) {
	client := &mockHTTPClient{doFunc: func(*http.Request) (*http.Response, error) {
		return httpReply(http.StatusServiceUnavailable), nil
	}}
	p := NewHTTPPushNotifier("https://push.example.com", "s", NewHMACSignatureService(), client)

	err := p.Notify(context.Background(), domain.PushNotification{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPPushNotifier_TransportError(t *testing.T) {
	client := &mockHTTPClient{doFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	p := NewHTTPPushNotifier("https://push.example.com", "s", NewHMACSignatureService(), client)
	assert.Error(t, p.Notify(context.Background(), domain.PushNotification{}))
}

func TestBreakerPushNotifier_PrimaryHealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockPushNotifier(ctrl)
	fallback := mocks.NewMockPushNotifier(ctrl)
	p := NewBreakerPushNotifier(primary, fallback, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}, zerolog.Nop())

	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))
	require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestBreakerPushNotifier_OpensAndFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockPushNotifier(ctrl)
	fallback := mocks.NewMockPushNotifier(ctrl)
	p := NewBreakerPushNotifier(primary, fallback, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}, zerolog.Nop())

	// Three failures trip the breaker; the next two never reach the primary.
	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("push down")).Times(3)
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	for range 5 {
		require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())
}

func TestBreakerPushNotifier_HalfOpenRecovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockPushNotifier(ctrl)
	fallback := mocks.NewMockPushNotifier(ctrl)
	p := NewBreakerPushNotifier(primary, fallback, BreakerSettings{MaxFailures: 1, OpenTimeout: 20 * time.Millisecond}, zerolog.Nop())

	gomock.InOrder(
		primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("push down")),
		primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil),
	)
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))
	assert.Equal(t, gobreaker.StateOpen, p.State())

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestLogPushNotifier(t *testing.T) {
	assert.NoError(t, NewLogPushNotifier(zerolog.Nop()).Notify(context.Background(), domain.PushNotification{}))
}

func TestBreakerPushNotifier_PingReflectsBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockPushNotifier(ctrl)
	fallback := mocks.NewMockPushNotifier(ctrl)
	p := NewBreakerPushNotifier(primary, fallback, BreakerSettings{MaxFailures: 1, OpenTimeout: time.Minute}, zerolog.Nop())

	var checker ports.HealthChecker = p
	assert.Equal(t, "push_notifier", checker.Name())
	require.NoError(t, checker.Ping(context.Background()))

	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("push down"))
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, p.Notify(context.Background(), domain.PushNotification{}))

	err := checker.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
