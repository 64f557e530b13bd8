package rabbitmq

import (
	"context"
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
	"sync"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

var _ Publisher = &QueuePublisher{}

var ErrPublisherClosed = errors.New("Publisher is closed")

//counterfeiter:generate . Publisher
type Publisher interface {
	Publish(ctx context.Context, msg amqp091.Publishing) error
}

type dialFunc func(rabbitMQURL string, queueName string) (*amqp091.Connection, *amqp091.Channel, error)

func NewQueuePublisher(rabbitMQURL string, queueName string) (*QueuePublisher, error) {
	return newQueuePublisher(rabbitMQURL, queueName, dialQueue)
}

func newQueuePublisher(rabbitMQURL string, queueName string, dial dialFunc) (*QueuePublisher, error) {
	publisher := &QueuePublisher{
		rabbitMQURL: rabbitMQURL,
		queueName:   queueName,
		dial:        dial,
	}

	conn, channel, err := dial(rabbitMQURL, queueName)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	publisher.conn = conn
	publisher.channel = channel
	return publisher, nil
}

// QueuePublisher is shared by every detached trigger dispatch. A dropped
// channel is replaced once, however many publishes saw it fail.
type QueuePublisher struct {
	rabbitMQURL string
	queueName   string
	dial        dialFunc

	channelLock sync.Mutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	closed      bool
}

func dialQueue(rabbitMQURL string, queueName string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(rabbitMQURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed to dial rabbitMQURL")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "Failed to create rabbit channel")
	}

	_, err = channel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "Failed to declare the queue")
	}

	return conn, channel, nil
}

func (q *QueuePublisher) currentChannel() *amqp091.Channel {
	q.channelLock.Lock()
	defer q.channelLock.Unlock()
	return q.channel
}

// reconnect replaces failed with a fresh channel. When another caller already
// replaced it, the newer channel is returned and nothing is dialed.
func (q *QueuePublisher) reconnect(failed *amqp091.Channel) (*amqp091.Channel, error) {
	q.channelLock.Lock()
	defer q.channelLock.Unlock()

	if q.closed {
		return nil, ErrPublisherClosed
	}

	if q.channel != failed {
		return q.channel, nil
	}

	conn, channel, err := q.dial(q.rabbitMQURL, q.queueName)
	if err != nil {
		return nil, err
	}

	if q.conn != nil {
		_ = q.conn.Close()
	}

	q.conn = conn
	q.channel = channel
	return channel, nil
}

func (q *QueuePublisher) publishOn(ctx context.Context, channel *amqp091.Channel, msg amqp091.Publishing) error {
	if channel == nil {
		return ErrPublisherClosed
	}

	msg.ContentType = "application/json"
	msg.DeliveryMode = amqp091.Persistent

	return channel.PublishWithContext(
		ctx,
		"",
		q.queueName,
		true,
		false,
		msg,
	)
}

func (q *QueuePublisher) Publish(ctx context.Context, msg amqp091.Publishing) error {
	channel := q.currentChannel()

	err := q.publishOn(ctx, channel, msg)
	if err == nil {
		return nil
	}

	publishErr := errors.Wrap(err, "Failed to publish message to rabbitMQ channel")
	if !errors.Is(err, amqp091.ErrClosed) {
		return publishErr
	}

	channel, err = q.reconnect(channel)
	if err != nil {
		log.WithError(err).
			WithField("queue_name", q.queueName).
			Error("Unable to reconnect to rabbitMQ channel")
		return publishErr
	}

	return q.publishOn(ctx, channel, msg)
}

func (q *QueuePublisher) Close() error {
	q.channelLock.Lock()
	defer q.channelLock.Unlock()

	q.closed = true
	if q.conn == nil {
		return nil
	}

	err := q.conn.Close()
	q.conn = nil
	q.channel = nil
	if err != nil {
		return errors.Wrap(err, "Failed to close rabbitMQ connection")
	}

	return nil
}
