package jobusecase

import (
	"context"
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/artifact"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/metrics"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/quota"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/trigger"
	"golang.org/x/sync/errgroup"
	"io"
	"time"
)

type KeyChecker interface {
	IsValid(key string) bool
}

type Dispatcher interface {
	Dispatch(descriptor trigger.Descriptor)
}

type Upload struct {
	FileName    string
	Content     io.Reader
	Size        int64
	ContentType string
}

type Submission struct {
	Blocked   bool
	Unlocked  bool
	Remaining int
	Job       jobentity.Job
}

type PollResult struct {
	Status jobentity.Status
	Files  map[string]string
	Detail string
}

type Usecase struct {
	ledger     quota.Ledger
	keys       KeyChecker
	store      artifact.Store
	dispatcher Dispatcher
	stems      jobentity.StemSet
	metrics    *metrics.Recorder
	now        func() time.Time
}

func NewUsecase(ledger quota.Ledger, keys KeyChecker, store artifact.Store, dispatcher Dispatcher, stems jobentity.StemSet, recorder *metrics.Recorder) Usecase {
	return Usecase{
		ledger:     ledger,
		keys:       keys,
		store:      store,
		dispatcher: dispatcher,
		stems:      stems,
		metrics:    recorder,
		now:        time.Now,
	}
}

func (u Usecase) Stems() jobentity.StemSet {
	return u.stems
}

// Submit stores the upload and fires the processing trigger without waiting
// for it. A blocked identity is a normal outcome, not an error. An invalid
// key is ignored here and the upload falls back to the free quota.
func (u Usecase) Submit(ctx context.Context, id identity.Identity, key string, upload Upload) (Submission, *api.Error) {
	if key != "" && u.keys.IsValid(key) {
		if err := u.ledger.Unlock(ctx, id); err != nil {
			u.metrics.Submission(metrics.Failed)
			return Submission{}, api.CommitError(errors.Wrap(err, "Failed to unlock identity on upload"),
				joberrors.QuotaUnavailableCode,
				"Usage tracking is unavailable right now, please try again later")
		}
	}

	decision, err := u.ledger.Consume(ctx, id)
	if err != nil {
		u.metrics.Submission(metrics.Failed)
		return Submission{}, api.CommitError(errors.Wrap(err, "Failed to consume free use"),
			joberrors.QuotaUnavailableCode,
			"Usage tracking is unavailable right now, please try again later")
	}

	if !decision.Allowed {
		u.metrics.Submission(metrics.Blocked)
		return Submission{Blocked: true}, nil
	}

	job := jobentity.NewJob(upload.FileName, u.now())

	started := time.Now()
	err = u.store.Put(ctx, job.InputKey, upload.Content, upload.Size, upload.ContentType)
	u.metrics.ObserveStorage(metrics.PutOperation, started)

	if err != nil {
		if refundErr := u.ledger.Refund(ctx, id); refundErr != nil {
			log.WithError(refundErr).
				WithField("identity", id.String()).
				Warn("Failed to refund free use after storage failure")
		}

		u.metrics.Submission(metrics.Failed)
		return Submission{}, api.CommitError(errors.Wrap(err, "Failed to store upload"),
			joberrors.StorageWriteFailedCode,
			"The upload could not be stored, please try again")
	}

	u.dispatcher.Dispatch(trigger.Descriptor{
		JobID:    job.ID,
		BaseName: job.BaseName,
		InputKey: job.InputKey,
		Bucket:   u.store.Bucket(),
		InputURL: u.store.PublicURL(job.InputKey),
		Stems:    u.stems.Names,
	})

	u.metrics.Submission(metrics.Accepted)
	log.WithField("job_id", job.ID).
		WithField("unlocked", decision.Unlocked).
		Info("Upload accepted")

	return Submission{
		Unlocked:  decision.Unlocked,
		Remaining: decision.Remaining,
		Job:       job,
	}, nil
}

// Poll derives the job status from which stems exist in storage. It never
// changes anything, so calling it repeatedly is safe.
func (u Usecase) Poll(ctx context.Context, handle string) (PollResult, *api.Error) {
	baseName, ok := jobentity.ParseHandle(handle)
	if !ok {
		return PollResult{}, api.CommitError(errors.Newf("Unrecognized job handle %q", handle),
			joberrors.InvalidJobIDCode,
			"The job ID is not valid")
	}

	present := make([]bool, len(u.stems.Names))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, stem := range u.stems.Names {
		i, key := i, u.stems.ResultKey(baseName, stem)
		group.Go(func() error {
			started := time.Now()
			exists, err := u.store.Exists(groupCtx, key)
			u.metrics.ObserveStorage(metrics.HeadOperation, started)

			present[i] = exists
			return err
		})
	}

	if err := group.Wait(); err != nil {
		log.WithError(err).
			WithField("base_name", baseName).
			Error("Failed to check job results")
		u.metrics.Poll(string(jobentity.ErrorStatus))
		return PollResult{Status: jobentity.ErrorStatus, Detail: err.Error()}, nil
	}

	for _, exists := range present {
		if !exists {
			u.metrics.Poll(string(jobentity.PendingStatus))
			return PollResult{Status: jobentity.PendingStatus}, nil
		}
	}

	files := make(map[string]string, len(u.stems.Names))
	for stem, key := range u.stems.ResultKeys(baseName) {
		files[stem] = u.store.PublicURL(key)
	}

	u.metrics.Poll(string(jobentity.DoneStatus))
	return PollResult{Status: jobentity.DoneStatus, Files: files}, nil
}

// UseKey unlocks unlimited uploads for the identity when key is valid.
func (u Usecase) UseKey(ctx context.Context, id identity.Identity, key string) *api.Error {
	if !u.keys.IsValid(key) {
		u.metrics.Unlock(metrics.Invalid)
		return api.CommitError(errors.New("Unlock key rejected"),
			joberrors.InvalidKeyCode,
			"Invalid key")
	}

	if err := u.ledger.Unlock(ctx, id); err != nil {
		u.metrics.Unlock(metrics.Failed)
		return api.CommitError(errors.Wrap(err, "Failed to unlock identity"),
			joberrors.QuotaUnavailableCode,
			"Usage tracking is unavailable right now, please try again later")
	}

	u.metrics.Unlock(metrics.Succeeded)
	log.WithField("identity", id.String()).Info("Identity unlocked")
	return nil
}
