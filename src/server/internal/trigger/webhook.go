package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/cerr"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
	"io"
	"net/http"
	"time"
)

const (
	maxWebhookAttempts = 3
	maxErrorBodyBytes  = 512
)

var _ Trigger = WebhookTrigger{}

type webhookPayload struct {
	Input Descriptor `json:"input"`
}

// WebhookTrigger posts the job to a serverless endpoint. Transport errors
// and 5xx responses are retried with backoff until the context runs out,
// 4xx responses are not.
type WebhookTrigger struct {
	url    string
	apiKey string
	client *http.Client

	initialInterval time.Duration
}

func NewWebhookTrigger(triggerConfig config.WebhookTrigger) WebhookTrigger {
	return WebhookTrigger{
		url:             triggerConfig.URL,
		apiKey:          triggerConfig.APIKey,
		client:          &http.Client{},
		initialInterval: 500 * time.Millisecond,
	}
}

func (w WebhookTrigger) WithClient(client *http.Client) WebhookTrigger {
	w.client = client
	return w
}

func (w WebhookTrigger) WithRetryInterval(interval time.Duration) WebhookTrigger {
	w.initialInterval = interval
	return w
}

func (w WebhookTrigger) Start(ctx context.Context, descriptor Descriptor) error {
	body, err := json.Marshal(webhookPayload{Input: descriptor})
	if err != nil {
		return mark.Wrap(err, DispatchMark, "Failed to marshal webhook payload")
	}

	errCtx := cerr.Field("job_id", descriptor.JobID).Field("webhook_url", w.url)

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = w.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exponential, maxWebhookAttempts-1), ctx)

	err = backoff.Retry(func() error {
		return w.post(ctx, body)
	}, policy)

	if err != nil {
		err = errCtx.Wrap(err).Error("Failed to call the processing webhook")
		return mark.Wrap(err, DispatchMark, "Webhook dispatch failed")
	}

	return nil
}

func (w WebhookTrigger) post(ctx context.Context, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "Failed to create webhook request"))
	}

	request.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	response, err := w.client.Do(request)
	if err != nil {
		return errors.Wrap(err, "Webhook request failed")
	}
	defer response.Body.Close()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
	statusErr := errors.Newf("Webhook responded with %d: %s", response.StatusCode, string(snippet))
	if response.StatusCode < 500 {
		return backoff.Permanent(statusErr)
	}

	return statusErr
}

func (w WebhookTrigger) String() string {
	return fmt.Sprintf("webhook(%s)", w.url)
}
