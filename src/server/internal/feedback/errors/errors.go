package feedbackerrors

import (
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
)

const (
	EmptyMessageCode      = api.ErrorCode("empty_feedback")
	FeedbackLogFailedCode = api.ErrorCode("feedback_log_failed")
)
