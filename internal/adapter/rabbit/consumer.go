package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
	"github.com/Temutjin2k/droply/pkg/rabbit"
)

const reconnectDelay = 2 * time.Second

var errDecode = errors.New("malformed message")

// StatusChangedHandler reacts to one change feed message.
type StatusChangedHandler func(ctx context.Context, msg models.PackageStatusChanged) error

// consumeChannel is the part of *amqp.Channel the consumer uses.
type consumeChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// PackageConsumer reads the package change feed.
type PackageConsumer struct {
	open       func(ctx context.Context) (consumeChannel, error)
	exchange   string
	queue      string
	retryDelay time.Duration
	l          logger.Logger
}

func NewPackageConsumer(client *rabbit.RabbitMQ, exchange, queue string, l logger.Logger) *PackageConsumer {
	if exchange == "" {
		exchange = PackageExchange
	}
	c := &PackageConsumer{exchange: exchange, queue: queue, retryDelay: reconnectDelay, l: l}
	if client != nil {
		c.open = func(ctx context.Context) (consumeChannel, error) {
			ch, err := client.OpenChannel(ctx)
			if err != nil {
				return nil, err
			}
			return ch, nil
		}
	}
	return c
}

// declareAndBindQueue declares the consumer queue and binds it to every status key.
// The queue is auto-deleted: notifications are hints and the tracker falls back to polling.
func (c *PackageConsumer) declareAndBindQueue(ctx context.Context, ch consumeChannel) (amqp.Queue, error) {
	const op = "PackageConsumer.declareAndBindQueue"

	q, err := ch.QueueDeclare(c.queue, false, true, false, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := ch.QueueBind(q.Name, "package.status.*", c.exchange, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

// ConsumeStatusChanged delivers every status change to fn until ctx is done,
// reopening the channel whenever the broker drops it.
func (c *PackageConsumer) ConsumeStatusChanged(ctx context.Context, fn StatusChangedHandler) error {
	const op = "PackageConsumer.ConsumeStatusChanged"
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_package_status")

	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "consume package status stopped by context")
			return nil
		}

		if err := c.consume(ctx, fn); err != nil {
			c.l.Error(ctx, "package status consumer interrupted", err, "op", op)
		}

		if !sleepCtx(ctx, c.retryDelay) {
			return nil
		}
	}
}

// consume runs one channel session. The channel is closed on return.
func (c *PackageConsumer) consume(ctx context.Context, fn StatusChangedHandler) error {
	const op = "PackageConsumer.consume"

	if c.open == nil {
		return fmt.Errorf("%s: no rabbit client", op)
	}
	ch, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("%s: open channel failed: %w", op, err)
	}
	defer ch.Close()

	q, err := c.declareAndBindQueue(ctx, ch)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume failed: %w", op, err)
	}

	c.l.Info(ctx, "start consuming package status", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			c.l.Info(ctx, "package status consumer shutting down")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				c.l.Warn(ctx, "message channel closed, reconnecting...")
				return nil
			}
			c.handleMessage(ctx, fn, msg)
		}
	}
}

func (c *PackageConsumer) handleMessage(ctx context.Context, fn StatusChangedHandler, d amqp.Delivery) {
	err := c.dispatch(ctx, fn, d)
	metrics.RecordRabbitMQConsume(c.queue, err)

	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.l.Warn(ctx, "ack failed", "error", ackErr.Error())
		}
		return
	}

	c.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle package status", err)
	// redelivered messages are dropped to avoid poison loops
	_ = d.Nack(false, isRecoverableError(err) && !d.Redelivered)
}

func (c *PackageConsumer) dispatch(ctx context.Context, fn StatusChangedHandler, d amqp.Delivery) error {
	var msg models.PackageStatusChanged
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}

	ctx = wrap.WithPackageID(wrap.WithRequestID(ctx, d.CorrelationId), msg.PackageID)
	return fn(ctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
