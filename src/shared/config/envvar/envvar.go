package envvar

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	PORT                             = "PORT"
	ALLOWED_FE_ORIGINS               = "ALLOWED_FE_ORIGINS"
	STORAGE_BACKEND                  = "STORAGE_BACKEND"
	S3_BUCKET                        = "S3_BUCKET"
	S3_ENDPOINT                      = "S3_ENDPOINT"
	AWS_REGION                       = "AWS_REGION"
	AWS_ACCESS_KEY_ID                = "AWS_ACCESS_KEY_ID"
	AWS_SECRET_ACCESS_KEY            = "AWS_SECRET_ACCESS_KEY"
	GOOGLE_CLOUD_KEY                 = "GOOGLE_CLOUD_KEY"
	GOOGLE_CLOUD_STORAGE_BUCKET_NAME = "GOOGLE_CLOUD_STORAGE_BUCKET_NAME"
	TRIGGER_BACKEND                  = "TRIGGER_BACKEND"
	RUNPOD_WEBHOOK                   = "RUNPOD_WEBHOOK"
	RUNPOD_API_KEY                   = "RUNPOD_API_KEY"
	RABBITMQ_URL                     = "RABBITMQ_URL"
	RABBITMQ_QUEUE_NAME              = "RABBITMQ_QUEUE_NAME"
	TRIGGER_TIMEOUT_SECONDS          = "TRIGGER_TIMEOUT_SECONDS"
	MAX_CONCURRENT_TRIGGERS          = "MAX_CONCURRENT_TRIGGERS"
	FREE_USE_LIMIT                   = "FREE_USE_LIMIT"
	STEM_VARIANT                     = "STEM_VARIANT"
	UNLOCK_KEYS_FILE                 = "UNLOCK_KEYS_FILE"
	UNLOCK_KEYS_TABLE                = "UNLOCK_KEYS_TABLE"
	REDIS_URL                        = "REDIS_URL"
	SESSION_SECRET                   = "SESSION_SECRET"
	FEEDBACK_LOG_PATH                = "FEEDBACK_LOG_PATH"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func GetOr(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}

	return val
}

// GetIntOr only falls back when the variable is unset, a value that does
// not parse panics.
func GetIntOr(key string, fallback int) int {
	val := GetOr(key, "")
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		panic(fmt.Sprintf("Env variable %s is not an integer: %s", key, val))
	}

	return parsed
}
