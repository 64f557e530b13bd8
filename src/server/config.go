package main

import (
	"github.com/apex/log"
	"github.com/joho/godotenv"
	"github.com/veedubyou/stem-splitter-be/src/server/application"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/config/dev"
	"github.com/veedubyou/stem-splitter-be/src/shared/config/envvar"
	"github.com/veedubyou/stem-splitter-be/src/shared/config/local"
	"github.com/veedubyou/stem-splitter-be/src/shared/config/prod"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/env"
	"os"
	"strings"
	"time"
)

const (
	s3Backend       = "s3"
	gcsBackend      = "gcs"
	webhookBackend  = "webhook"
	rabbitMQBackend = "rabbitmq"
)

func loadAppConfig(environment env.Environment) application.Config {
	switch environment {
	case env.Production:
		commaSeparatedOrigins := envvar.MustGet(envvar.ALLOWED_FE_ORIGINS)

		return application.Config{
			StorageConfig:  prodStorageConfig(),
			TriggerConfig:  prodTriggerConfig(),
			DispatchConfig: dispatchConfig(),
			LedgerConfig:   ledgerConfig(),
			KeySource: keySource(config.ProdDynamo{
				AccessKeyID:     envvar.GetOr(envvar.AWS_ACCESS_KEY_ID, ""),
				SecretAccessKey: envvar.GetOr(envvar.AWS_SECRET_ACCESS_KEY, ""),
				Region:          envvar.GetOr(envvar.AWS_REGION, prod.DynamoDBRegion),
			}),
			StemVariant:        jobentity.StemVariant(envvar.GetOr(envvar.STEM_VARIANT, prod.DefaultStemVariant)),
			FreeUseLimit:       envvar.GetIntOr(envvar.FREE_USE_LIMIT, prod.FreeUseLimit),
			SessionSecret:      envvar.GetOr(envvar.SESSION_SECRET, ""),
			FeedbackLogPath:    envvar.GetOr(envvar.FEEDBACK_LOG_PATH, prod.FeedbackLogPath),
			CORSAllowedOrigins: strings.Split(commaSeparatedOrigins, ","),
			Port:               ":" + envvar.GetOr(envvar.PORT, prod.DefaultPort),
			Log:                true,
		}

	case env.Development:
		loadDotEnv()

		triggerConfig := config.Trigger(config.RabbitMQTrigger{
			URL:       dev.RabbitMQHost,
			QueueName: dev.RabbitMQQueueName,
		})
		if webhook := envvar.GetOr(envvar.RUNPOD_WEBHOOK, ""); webhook != "" {
			triggerConfig = config.WebhookTrigger{
				URL:    webhook,
				APIKey: envvar.GetOr(envvar.RUNPOD_API_KEY, ""),
			}
		}

		return application.Config{
			StorageConfig:      dev.StorageConfig,
			TriggerConfig:      triggerConfig,
			DispatchConfig:     dispatchConfig(),
			LedgerConfig:       ledgerConfig(),
			KeySource:          keySource(dev.DynamoConfig),
			StemVariant:        jobentity.StemVariant(envvar.GetOr(envvar.STEM_VARIANT, prod.DefaultStemVariant)),
			FreeUseLimit:       envvar.GetIntOr(envvar.FREE_USE_LIMIT, dev.FreeUseLimit),
			SessionSecret:      envvar.GetOr(envvar.SESSION_SECRET, dev.SessionSecret),
			FeedbackLogPath:    envvar.GetOr(envvar.FEEDBACK_LOG_PATH, local.Path("feedback.txt")),
			CORSAllowedOrigins: []string{"*"},
			Port:               ":" + envvar.GetOr(envvar.PORT, prod.DefaultPort),
			Log:                true,
		}

	default:
		panic("Unexpected environment")
	}
}

// loadDotEnv never overrides variables already set in the shell.
func loadDotEnv() {
	dotEnvPath := local.Path(".env")
	if _, err := os.Stat(dotEnvPath); err != nil {
		return
	}

	if err := godotenv.Load(dotEnvPath); err != nil {
		log.WithError(err).Warn("Failed to load .env file")
	}
}

func prodStorageConfig() config.ArtifactStorage {
	switch backend := envvar.GetOr(envvar.STORAGE_BACKEND, s3Backend); backend {
	case s3Backend:
		return config.S3Storage{
			BucketName:      envvar.MustGet(envvar.S3_BUCKET),
			Region:          envvar.MustGet(envvar.AWS_REGION),
			AccessKeyID:     envvar.GetOr(envvar.AWS_ACCESS_KEY_ID, ""),
			SecretAccessKey: envvar.GetOr(envvar.AWS_SECRET_ACCESS_KEY, ""),
			Endpoint:        envvar.GetOr(envvar.S3_ENDPOINT, ""),
		}

	case gcsBackend:
		return config.GoogleCloudStorage{
			StorageHost: prod.GoogleStorageHost,
			SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
			BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
		}

	default:
		panic("Unrecognized storage backend " + backend)
	}
}

func prodTriggerConfig() config.Trigger {
	switch backend := envvar.GetOr(envvar.TRIGGER_BACKEND, webhookBackend); backend {
	case webhookBackend:
		return config.WebhookTrigger{
			URL:    envvar.MustGet(envvar.RUNPOD_WEBHOOK),
			APIKey: envvar.GetOr(envvar.RUNPOD_API_KEY, ""),
		}

	case rabbitMQBackend:
		return config.RabbitMQTrigger{
			URL:       envvar.MustGet(envvar.RABBITMQ_URL),
			QueueName: envvar.MustGet(envvar.RABBITMQ_QUEUE_NAME),
		}

	default:
		panic("Unrecognized trigger backend " + backend)
	}
}

func dispatchConfig() config.Dispatch {
	timeoutSeconds := envvar.GetIntOr(envvar.TRIGGER_TIMEOUT_SECONDS, int(prod.TriggerTimeout/time.Second))

	return config.Dispatch{
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		MaxConcurrent: int64(envvar.GetIntOr(envvar.MAX_CONCURRENT_TRIGGERS, prod.MaxConcurrentTriggers)),
	}
}

func ledgerConfig() config.Ledger {
	redisURL := envvar.GetOr(envvar.REDIS_URL, "")
	if redisURL == "" {
		return config.MemoryLedger{}
	}

	return config.RedisLedger{
		URL:       redisURL,
		KeyPrefix: prod.RedisKeyPrefix,
	}
}

// keySource prefers a key file over a DynamoDB table when both are set.
func keySource(dynamoConfig config.Dynamo) config.KeySource {
	if path := envvar.GetOr(envvar.UNLOCK_KEYS_FILE, ""); path != "" {
		return config.FileKeySource{Path: path}
	}

	if table := envvar.GetOr(envvar.UNLOCK_KEYS_TABLE, ""); table != "" {
		return config.DynamoKeySource{
			DynamoConfig: dynamoConfig,
			TableName:    table,
		}
	}

	return config.NoKeySource{}
}
