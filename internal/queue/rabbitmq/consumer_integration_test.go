//go:build integration

package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notistream/internal/config"
	"notistream/internal/domain"
	"notistream/internal/model"
	"notistream/internal/service/notify"
	"notistream/internal/sse"
)

func TestConsumerIntegration(t *testing.T) {
	ctx := context.Background()
	amqpURL, cleanup := setupRabbitMQContainer(t, ctx)
	defer cleanup()

	cfg := &config.Config{
		RabbitMQURL:       amqpURL,
		RabbitExchange:    "booking-events",
		RabbitQueue:       "booking-events.notifications",
		RabbitRoutingKey:  "booking.*",
		RabbitConsumerTag: "notistream-consumer",
		DispatchPrefix:    "dispatch",
	}

	store := &storeMock{}
	done := make(chan struct{})
	store.On("CreateNotification", mock.Anything, mock.Anything).Return(model.Notification{
		ID:      "n-1",
		UserID:  "user-1",
		Type:    domain.TypeBookingCreated,
		Channel: domain.ChannelInApp,
		Status:  domain.StatusSent,
	}, nil).Run(func(args mock.Arguments) {
		select {
		case <-done:
		default:
			close(done)
		}
	}).Once()

	svc := notify.NewService(cfg, store, sse.NewHub(), &publisherMock{}, zap.NewNop())
	consumer := NewConsumer(cfg, svc, zap.NewNop())

	consumeCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Start(consumeCtx)
	}()

	require.NoError(t, waitForConsumer(ctx, amqpURL, cfg.RabbitQueue, 5*time.Second))

	publishBookingEvent(t, amqpURL, cfg.RabbitExchange, "booking.created", map[string]any{
		"user_id": "user-1",
		"type":    "BOOKING_CREATED",
		"booking": map[string]string{
			"id":           "bk-1",
			"code":         "BRC-1",
			"service_name": "Deep Clean",
			"scheduled_at": "2026-03-02 09:00",
		},
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for consumer")
	}

	cancel()
	select {
	case <-time.After(3 * time.Second):
		t.Fatalf("consumer did not stop")
	case <-errCh:
	}

	store.AssertExpectations(t)
}

// setupRabbitMQContainer is defined in testhelpers_integration.go

func publishBookingEvent(t *testing.T, amqpURL, exchange, routingKey string, payload map[string]any) {
	t.Helper()

	conn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	require.NoError(t, err)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	err = ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	require.NoError(t, err)
}

func waitForConsumer(ctx context.Context, amqpURL, queue string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			conn, err := amqp.Dial(amqpURL)
			if err != nil {
				continue
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				continue
			}
			q, err := ch.QueueInspect(queue)
			_ = ch.Close()
			_ = conn.Close()
			if err != nil {
				continue
			}
			if q.Consumers > 0 {
				return nil
			}
		}
	}
}
