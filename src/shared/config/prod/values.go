package prod

import "time"

const (
	GoogleStorageHost  = "https://storage.googleapis.com"
	DynamoDBRegion     = "us-east-1"
	DefaultPort        = "5000"
	DefaultStemVariant = "4stems"
	FreeUseLimit       = 2
	RedisKeyPrefix     = "stem-splitter:quota:"
	FeedbackLogPath    = "feedback.txt"
)

const (
	TriggerTimeout        = 10 * time.Second
	MaxConcurrentTriggers = 16
)
