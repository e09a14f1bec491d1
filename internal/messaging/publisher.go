package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Queue topology for image generation tasks. Failed tasks are dead-lettered
// rather than redelivered forever.
const (
	imageTaskDLX           = "image_tasks_dlx"
	imageTaskDLQSuffix     = "_dlq"
	imageTaskDLQRoutingKey = "dlq"
)

// ImageTaskPublisher enqueues image-generation tasks.
type ImageTaskPublisher interface {
	Publish(ctx context.Context, task ImageTaskPayload) error
	Close() error
}

type rabbitImageTaskPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitImageTaskPublisher declares the task queue (with its DLX/DLQ) and
// returns a publisher bound to it.
func NewRabbitImageTaskPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (ImageTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publisher channel: %w", err)
	}

	if err := DeclareImageTaskTopology(ch, queueName); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitImageTaskPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ImageTaskPublisher"),
	}, nil
}

// DeclareImageTaskTopology declares the durable task queue, its dead-letter
// exchange and the DLQ. Publisher and consumer both call it so either side can
// start first.
func DeclareImageTaskTopology(ch *amqp.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(imageTaskDLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter exchange: %w", err)
	}

	dlqName := queueName + imageTaskDLQSuffix
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue: %w", err)
	}
	if err := ch.QueueBind(dlqName, imageTaskDLQRoutingKey, imageTaskDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead letter queue: %w", err)
	}

	_, err := ch.QueueDeclare(queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    imageTaskDLX,
		"x-dead-letter-routing-key": imageTaskDLQRoutingKey,
	})
	if err != nil {
		return fmt.Errorf("failed to declare task queue: %w", err)
	}
	return nil
}

func (p *rabbitImageTaskPublisher) Publish(ctx context.Context, task ImageTaskPayload) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal image task: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.logger.Error("Failed to publish image task", zap.String("taskID", task.TaskID), zap.Error(err))
		return fmt.Errorf("failed to publish image task: %w", err)
	}

	p.logger.Debug("Image task published",
		zap.String("taskID", task.TaskID),
		zap.String("slideID", task.SlideID.String()))
	return nil
}

func (p *rabbitImageTaskPublisher) Close() error {
	return p.channel.Close()
}
