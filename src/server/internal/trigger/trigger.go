package trigger

import (
	"context"
	"github.com/cockroachdb/errors/domains"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

var DispatchMark = domains.New("trigger_dispatch_failed")

const StartJobType = "start_job"

// Descriptor is everything the processing backend needs to find the upload
// and know where to write the stems.
type Descriptor struct {
	JobID    string   `json:"job_id"`
	BaseName string   `json:"base_name"`
	InputKey string   `json:"filename"`
	Bucket   string   `json:"bucket"`
	InputURL string   `json:"input_url"`
	Stems    []string `json:"stems"`
}

//counterfeiter:generate . Trigger
type Trigger interface {
	Start(ctx context.Context, descriptor Descriptor) error
}
