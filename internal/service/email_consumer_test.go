package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestEmailConsumer_DeliversAndStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEmailQueue(ctrl)
	sender := mocks.NewMockEmailSender(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	msg := &domain.EmailMessage{ID: uuid.New(), To: "alice@example.com"}

	gomock.InOrder(
		queue.EXPECT().Dequeue(gomock.Any(), emailPollTimeout).Return(msg, nil),
		sender.EXPECT().Send(gomock.Any(), msg).DoAndReturn(func(context.Context, *domain.EmailMessage) error {
			cancel()
			return nil
		}),
	)
	queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	done := make(chan struct{})
	go func() {
		NewEmailConsumer(queue, sender, 1, zerolog.Nop()).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestEmailConsumer_SendErrorDoesNotStopWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEmailQueue(ctrl)
	sender := mocks.NewMockEmailSender(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	first := &domain.EmailMessage{ID: uuid.New()}
	second := &domain.EmailMessage{ID: uuid.New()}

	gomock.InOrder(
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(first, nil),
		sender.EXPECT().Send(gomock.Any(), first).Return(errors.New("smtp down")),
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(second, nil),
		sender.EXPECT().Send(gomock.Any(), second).DoAndReturn(func(context.Context, *domain.EmailMessage) error {
			cancel()
			return nil
		}),
	)

	NewEmailConsumer(queue, sender, 1, zerolog.Nop()).Run(ctx)
}

func TestEmailConsumer_DequeueErrorBacksOffUntilCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEmailQueue(ctrl)
	sender := mocks.NewMockEmailSender(ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down")).MinTimes(1)

	start := time.Now()
	NewEmailConsumer(queue, sender, 2, zerolog.Nop()).Run(ctx)
	assert.Less(t, time.Since(start), emailErrorBackoff)
}

func TestLogEmailSender(t *testing.T) {
	s := NewLogEmailSender(zerolog.Nop())
	assert.NoError(t, s.Send(context.Background(), &domain.EmailMessage{ID: uuid.New()}))
}
