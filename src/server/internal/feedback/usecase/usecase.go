package feedbackusecase

import (
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/errors"
	"strings"
)

type Log interface {
	Append(message string) error
}

type Usecase struct {
	log Log
}

func NewUsecase(feedbackLog Log) Usecase {
	return Usecase{
		log: feedbackLog,
	}
}

func (u Usecase) Submit(message string) *api.Error {
	if strings.TrimSpace(message) == "" {
		return api.CommitError(errors.New("Empty feedback message"),
			feedbackerrors.EmptyMessageCode,
			"Feedback message is empty")
	}

	if err := u.log.Append(message); err != nil {
		return api.CommitError(errors.Wrap(err, "Failed to record feedback"),
			feedbackerrors.FeedbackLogFailedCode,
			"Feedback could not be saved, please try again later")
	}

	log.WithField("length", len(message)).Info("Feedback received")
	return nil
}
