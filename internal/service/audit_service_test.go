package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// syncBuffer lets the audit goroutine write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w *syncBuffer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	done := make(chan *domain.AuditLog, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry *domain.AuditLog) error {
			done <- entry
			return nil
		},
	)

	customerID := uuid.New()
	svc.Log(context.Background(), &domain.AuditLog{
		CustomerID:   &customerID,
		Action:       domain.AuditActionDeposit,
		ResourceType: "transaction",
		ResourceID:   uuid.New().String(),
		IPAddress:    "127.0.0.1",
	})

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionDeposit, entry.Action)
		assert.NotEqual(t, uuid.Nil, entry.ID, "id is assigned")
		assert.False(t, entry.CreatedAt.IsZero(), "timestamp is assigned")
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_SurvivesCancelledRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	done := make(chan error, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.AuditLog) error {
			done <- ctx.Err()
			return nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Log(ctx, &domain.AuditLog{Action: domain.AuditActionLogin, ResourceType: "session"})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	buf := &syncBuffer{}
	svc := NewAuditService(nil, newTestLogger(buf))

	customerID := uuid.New()
	svc.Log(context.Background(), &domain.AuditLog{
		CustomerID:   &customerID,
		Action:       domain.AuditActionLogin,
		ResourceType: "session",
		IPAddress:    "127.0.0.1",
	})

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte(`"action":"LOGIN"`))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, buf.String(), customerID.String())
}
