package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
	"github.com/Temutjin2k/droply/pkg/rabbit"
)

const (
	PackageExchange = "package_topic"

	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// PackageBroker publishes the package change feed.
type PackageBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewPackageBroker(client *rabbit.RabbitMQ, exchange string, log logger.Logger) *PackageBroker {
	if exchange == "" {
		exchange = PackageExchange
	}
	return &PackageBroker{
		client:   client,
		exchange: exchange,
		l:        log,
	}
}

// StatusRoutingKey is the routing key of a status change, e.g. "package.status.in_transit".
func StatusRoutingKey(status types.PackageStatus) string {
	return fmt.Sprintf("package.status.%s", status)
}

// PublishStatusChanged sends msg to the package exchange keyed by the new status.
func (b *PackageBroker) PublishStatusChanged(ctx context.Context, msg models.PackageStatusChanged) (err error) {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_package_status")
	defer func() { metrics.RecordRabbitMQPublish(b.exchange, err) }()

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := StatusRoutingKey(msg.NewStatus)

	if err := retry(publishAttempts, publishBackoff, func() error {
		ch, err := b.client.GetChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get channel: %w", err)
		}

		if err := ch.PublishWithContext(
			ctx,
			b.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp091.Persistent,
				CorrelationId: wrap.GetRequestID(ctx),
				Body:          body,
				Timestamp:     time.Now(),
			},
		); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}
		return nil
	}); err != nil {
		return wrap.Error(ctx, err)
	}

	b.l.Debug(ctx, "package status published", "routing_key", key, "package", msg.PackageID)
	return nil
}
