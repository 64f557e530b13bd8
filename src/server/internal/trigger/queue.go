package trigger

import (
	"context"
	"encoding/json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/cerr"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/rabbitmq"
)

var _ Trigger = QueueTrigger{}

// QueueTrigger hands the job to a worker fleet over RabbitMQ instead of a
// webhook.
type QueueTrigger struct {
	publisher rabbitmq.Publisher
}

func NewQueueTrigger(publisher rabbitmq.Publisher) QueueTrigger {
	return QueueTrigger{publisher: publisher}
}

func (q QueueTrigger) Start(ctx context.Context, descriptor Descriptor) error {
	errCtx := cerr.Field("job_id", descriptor.JobID)

	body, err := json.Marshal(descriptor)
	if err != nil {
		err = errCtx.Wrap(err).Error("Failed to marshal start job message")
		return mark.Wrap(err, DispatchMark, "Queue dispatch failed")
	}

	err = q.publisher.Publish(ctx, amqp091.Publishing{
		Type:      StartJobType,
		MessageId: descriptor.JobID,
		Body:      body,
	})

	if err != nil {
		err = errCtx.Wrap(err).Error("Failed to publish start job message")
		return mark.Wrap(err, DispatchMark, "Queue dispatch failed")
	}

	return nil
}
