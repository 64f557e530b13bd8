package dev

import (
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
)

// DynamoDB
const (
	DynamoAccessKeyID     = "local"
	DynamoSecretAccessKey = "local"
	DynamoDBHost          = "http://localhost:8000"
	DynamoDBRegion        = "localhost"
)

var DynamoConfig = config.LocalDynamo{
	AccessKeyID:     DynamoAccessKeyID,
	SecretAccessKey: DynamoSecretAccessKey,
	Region:          DynamoDBRegion,
	Host:            DynamoDBHost,
}

// Storage
const (
	StorageHost = "http://localhost:9000"
	BucketName  = "stem-splitter-dev"
)

var StorageConfig = config.LocalStorage{
	StorageHost: StorageHost,
	BucketName:  BucketName,
}

// RabbitMQ
const (
	RabbitMQHost      = "amqp://localhost:5672"
	RabbitMQQueueName = "stem-splitter-jobs-dev"
)

// Quota
const (
	FreeUseLimit  = 2
	SessionSecret = "dev-session-secret"
)
