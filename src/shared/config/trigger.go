package config

import "time"

type Trigger interface {
	TriggerConfig()
}

var _ Trigger = WebhookTrigger{}

type WebhookTrigger struct {
	URL    string
	APIKey string
}

func (w WebhookTrigger) TriggerConfig() {}

var _ Trigger = RabbitMQTrigger{}

type RabbitMQTrigger struct {
	URL       string
	QueueName string
}

func (r RabbitMQTrigger) TriggerConfig() {}

// Dispatch bounds the detached trigger calls. Timeout covers both waiting
// for a free slot and the call itself.
type Dispatch struct {
	Timeout       time.Duration
	MaxConcurrent int64
}
