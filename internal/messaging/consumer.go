package messaging

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskHandler processes one image task. A returned error dead-letters the
// message; nil acks it.
type TaskHandler func(ctx context.Context, task ImageTaskPayload) error

// ImageTaskConsumer reads image tasks off the queue one at a time.
type ImageTaskConsumer struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewImageTaskConsumer declares the topology and returns a consumer.
func NewImageTaskConsumer(conn *amqp.Connection, queueName string, logger *zap.Logger) (*ImageTaskConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := DeclareImageTaskTopology(ch, queueName); err != nil {
		ch.Close()
		return nil, err
	}
	// One unacked message at a time: slide images are generated strictly
	// sequentially with an inter-request delay.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, err
	}
	return &ImageTaskConsumer{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ImageTaskConsumer"),
	}, nil
}

// Run consumes until the context is cancelled or the channel closes.
func (c *ImageTaskConsumer) Run(ctx context.Context, handler TaskHandler) error {
	deliveries, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.logger.Info("Consuming image tasks", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping: context cancelled")
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed")
				return nil
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *ImageTaskConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery, handler TaskHandler) {
	var task ImageTaskPayload
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		c.logger.Error("Failed to unmarshal image task, dead-lettering", zap.Error(err))
		_ = delivery.Nack(false, false)
		return
	}

	log := c.logger.With(zap.String("taskID", task.TaskID), zap.String("slideID", task.SlideID.String()))
	if err := handler(ctx, task); err != nil {
		// Image failures never propagate to the creation flow; the message
		// goes to the DLQ and the presentation stays usable without the image.
		log.Error("Image task failed, dead-lettering", zap.Error(err))
		_ = delivery.Nack(false, false)
		return
	}

	if err := delivery.Ack(false); err != nil {
		log.Error("Failed to ack image task", zap.Error(err))
	}
}

// Close shuts the consumer channel.
func (c *ImageTaskConsumer) Close() error {
	return c.channel.Close()
}
