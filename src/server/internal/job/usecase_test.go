package job_test

import (
	"bytes"
	"context"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/artifact"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/usecase"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/keys"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/metrics"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/quota"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/trigger"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/trigger/triggerfakes"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"time"
)

const (
	freeUses  = 2
	unlockKey = "let-me-in"
)

// unavailableLedger fails every call, like a ledger whose backing store is
// down.
type unavailableLedger struct{}

func (unavailableLedger) Consume(context.Context, identity.Identity) (quota.Decision, error) {
	return quota.Decision{}, errors.New("ledger down")
}

func (unavailableLedger) Unlock(context.Context, identity.Identity) error {
	return errors.New("ledger down")
}

func (unavailableLedger) Refund(context.Context, identity.Identity) error {
	return errors.New("ledger down")
}

// flakyStore fails the existence check of one key and serves every other
// call from the wrapped store.
type flakyStore struct {
	*artifact.MemoryStore
	failingKey string
}

func (f flakyStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == f.failingKey {
		return false, errors.Mark(errors.New("connection reset"), artifact.StorageReadMark)
	}

	return f.MemoryStore.Exists(ctx, key)
}

var _ = Describe("Job usecase", func() {
	var (
		ctx        context.Context
		ledger     *quota.MemoryLedger
		store      *artifact.MemoryStore
		fake       *triggerfakes.FakeTrigger
		dispatcher *trigger.Dispatcher
		recorder   *metrics.Recorder
		stems      jobentity.StemSet
		usecase    jobusecase.Usecase
		client     identity.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		ledger = quota.NewMemoryLedger(freeUses)
		store = artifact.NewMemoryStore("https://cdn.example", "stems")
		fake = &triggerfakes.FakeTrigger{}
		recorder = newRecorder()
		dispatcher = trigger.NewDispatcher(fake, config.Dispatch{Timeout: 5 * time.Second}, recorder)
		stems = jobentity.StemSet{Names: []string{"vocals", "drums", "bass", "other"}, Extension: "mp3"}
		client = identity.Identity{Address: "203.0.113.7"}
	})

	JustBeforeEach(func() {
		usecase = jobusecase.NewUsecase(ledger, keys.NewRegistry([]string{unlockKey}), store, dispatcher, stems, recorder)
	})

	AfterEach(func() {
		dispatcher.Wait()
	})

	upload := func(name string) jobusecase.Upload {
		content := []byte("fake audio bytes")
		return jobusecase.Upload{
			FileName:    name,
			Content:     bytes.NewReader(content),
			Size:        int64(len(content)),
			ContentType: "audio/mpeg",
		}
	}

	submit := func(id identity.Identity, key string) jobusecase.Submission {
		submission, apiErr := usecase.Submit(ctx, id, key, upload("My Song.mp3"))
		ExpectWithOffset(1, apiErr).To(BeNil())
		return submission
	}

	submitted := func(outcome string) float64 {
		return testutil.ToFloat64(recorder.Submissions().WithLabelValues(outcome))
	}

	Describe("Submit", func() {
		It("accepts the free uses and then blocks without storing", func() {
			first := submit(client, "")
			Expect(first.Blocked).To(BeFalse())
			Expect(first.Remaining).To(Equal(1))

			second := submit(client, "")
			Expect(second.Blocked).To(BeFalse())

			third := submit(client, "")
			Expect(third.Blocked).To(BeTrue())

			Expect(store.Len()).To(Equal(2))
			dispatcher.Wait()
			Expect(fake.StartCallCount()).To(Equal(2))
			Expect(submitted(metrics.Blocked)).To(Equal(1.0))
		})

		It("stores the upload under a sanitized job ID", func() {
			submission := submit(client, "")

			Expect(submission.Job.ID).To(MatchRegexp(`^[0-9a-f-]{36}_My_Song\.mp3$`))
			Expect(submission.Job.BaseName).To(Equal(submission.Job.ID[:len(submission.Job.ID)-len(".mp3")]))

			obj, ok := store.Get(submission.Job.InputKey)
			Expect(ok).To(BeTrue())
			Expect(string(obj.Content)).To(Equal("fake audio bytes"))
			Expect(obj.ContentType).To(Equal("audio/mpeg"))
		})

		It("hands the backend everything it needs", func() {
			submission := submit(client, "")
			dispatcher.Wait()

			Expect(fake.StartCallCount()).To(Equal(1))
			_, descriptor := fake.StartArgsForCall(0)
			Expect(descriptor).To(Equal(trigger.Descriptor{
				JobID:    submission.Job.ID,
				BaseName: submission.Job.BaseName,
				InputKey: submission.Job.InputKey,
				Bucket:   "stems",
				InputURL: "https://cdn.example/stems/" + submission.Job.InputKey,
				Stems:    stems.Names,
			}))
		})

		It("returns without waiting for a slow backend", func() {
			release := make(chan struct{})
			fake.StartStub = func(ctx context.Context, _ trigger.Descriptor) error {
				select {
				case <-release:
				case <-ctx.Done():
				}
				return nil
			}

			start := time.Now()
			submission := submit(client, "")
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(submission.Blocked).To(BeFalse())

			Eventually(fake.StartCallCount).Should(Equal(1))
			close(release)
		})

		It("accepts the upload even when the backend rejects it", func() {
			fake.StartReturns(errors.New("backend unreachable"))

			submission := submit(client, "")
			Expect(submission.Blocked).To(BeFalse())

			dispatcher.Wait()
			Expect(testutil.ToFloat64(recorder.Dispatches().WithLabelValues(metrics.Failed))).To(Equal(1.0))
		})

		Describe("When storage is down", func() {
			BeforeEach(func() {
				store.WriteUnavailable = true
			})

			It("fails without dispatching", func() {
				_, apiErr := usecase.Submit(ctx, client, "", upload("song.mp3"))

				Expect(apiErr).NotTo(BeNil())
				Expect(apiErr.ErrorCode).To(Equal(joberrors.StorageWriteFailedCode))
				dispatcher.Wait()
				Expect(fake.StartCallCount()).To(Equal(0))
			})

			It("gives the free use back", func() {
				for i := 0; i < 3; i++ {
					_, apiErr := usecase.Submit(ctx, client, "", upload("song.mp3"))
					Expect(apiErr).NotTo(BeNil())
				}

				Expect(ledger.Uses("addr:" + client.Address)).To(Equal(0))

				store.WriteUnavailable = false
				Expect(submit(client, "").Remaining).To(Equal(1))
			})
		})

		Describe("With an unlock key", func() {
			It("unlocks an exhausted identity", func() {
				submit(client, "")
				submit(client, "")
				Expect(submit(client, "").Blocked).To(BeTrue())

				submission := submit(client, unlockKey)
				Expect(submission.Blocked).To(BeFalse())
				Expect(submission.Unlocked).To(BeTrue())

				Expect(submit(client, "").Blocked).To(BeFalse())
			})

			It("ignores an invalid key and counts the upload", func() {
				submission := submit(client, "wrong-key")

				Expect(submission.Blocked).To(BeFalse())
				Expect(submission.Unlocked).To(BeFalse())
				Expect(ledger.Uses("addr:" + client.Address)).To(Equal(1))
			})
		})

		Describe("When the ledger is down", func() {
			JustBeforeEach(func() {
				usecase = jobusecase.NewUsecase(unavailableLedger{}, keys.NewRegistry(nil), store, dispatcher, stems, nil)
			})

			It("refuses the upload", func() {
				_, apiErr := usecase.Submit(ctx, client, "", upload("song.mp3"))

				Expect(apiErr).NotTo(BeNil())
				Expect(apiErr.ErrorCode).To(Equal(joberrors.QuotaUnavailableCode))
				Expect(store.Len()).To(Equal(0))
			})
		})
	})

	Describe("UseKey", func() {
		It("unlocks unlimited uploads with a valid key", func() {
			Expect(usecase.UseKey(ctx, client, unlockKey)).To(BeNil())

			for i := 0; i < 5; i++ {
				Expect(submit(client, "").Blocked).To(BeFalse())
			}
		})

		It("rejects an invalid key", func() {
			apiErr := usecase.UseKey(ctx, client, "wrong-key")

			Expect(apiErr).NotTo(BeNil())
			Expect(apiErr.ErrorCode).To(Equal(joberrors.InvalidKeyCode))
		})

		It("rejects the empty key", func() {
			apiErr := usecase.UseKey(ctx, client, "")

			Expect(apiErr).NotTo(BeNil())
			Expect(apiErr.ErrorCode).To(Equal(joberrors.InvalidKeyCode))
		})
	})

	Describe("Poll", func() {
		var job jobentity.Job

		JustBeforeEach(func() {
			job = submit(client, "").Job
		})

		poll := func(handle string) jobusecase.PollResult {
			result, apiErr := usecase.Poll(ctx, handle)
			ExpectWithOffset(1, apiErr).To(BeNil())
			return result
		}

		seed := func(names ...string) {
			for _, name := range names {
				store.Seed(stems.ResultKey(job.BaseName, name), []byte(name))
			}
		}

		It("is pending before any stem exists", func() {
			Expect(poll(job.ID).Status).To(Equal(jobentity.PendingStatus))
		})

		It("stays pending while some stems are missing", func() {
			seed("vocals", "drums", "bass")

			result := poll(job.ID)
			Expect(result.Status).To(Equal(jobentity.PendingStatus))
			Expect(result.Files).To(BeEmpty())
		})

		It("is done once every stem exists", func() {
			seed(stems.Names...)

			result := poll(job.ID)
			Expect(result.Status).To(Equal(jobentity.DoneStatus))
			Expect(result.Files).To(HaveLen(4))
			Expect(result.Files).To(HaveKeyWithValue("vocals",
				"https://cdn.example/stems/"+job.BaseName+"/vocals.mp3"))
		})

		It("accepts the base name as a handle", func() {
			seed(stems.Names...)

			Expect(poll(job.BaseName).Status).To(Equal(jobentity.DoneStatus))
		})

		It("gives the same answer every time and changes nothing", func() {
			seed("vocals")
			objects := store.Len()
			uses := ledger.Uses("addr:" + client.Address)

			first := poll(job.ID)
			for i := 0; i < 3; i++ {
				Expect(poll(job.ID)).To(Equal(first))
			}

			Expect(store.Len()).To(Equal(objects))
			Expect(ledger.Uses("addr:" + client.Address)).To(Equal(uses))
		})

		It("reports an error when storage cannot be read", func() {
			seed(stems.Names...)
			store.ReadUnavailable = true

			result := poll(job.ID)
			Expect(result.Status).To(Equal(jobentity.ErrorStatus))
			Expect(result.Files).To(BeNil())
			Expect(result.Detail).NotTo(BeEmpty())
		})

		It("reports an error when a single stem check fails", func() {
			seed(stems.Names...)
			flaky := flakyStore{MemoryStore: store, failingKey: stems.ResultKey(job.BaseName, "bass")}
			usecase = jobusecase.NewUsecase(ledger, keys.NewRegistry(nil), flaky, dispatcher, stems, recorder)

			result := poll(job.ID)
			Expect(result.Status).To(Equal(jobentity.ErrorStatus))
			Expect(result.Files).To(BeNil())
			Expect(result.Detail).To(ContainSubstring("connection reset"))
		})

		It("goes back to pending when a finished stem disappears", func() {
			seed(stems.Names...)
			Expect(poll(job.ID).Status).To(Equal(jobentity.DoneStatus))

			store.Delete(stems.ResultKey(job.BaseName, "drums"))

			result := poll(job.ID)
			Expect(result.Status).To(Equal(jobentity.PendingStatus))
			Expect(result.Files).To(BeEmpty())
		})

		It("rejects handles it could not have issued", func() {
			for _, handle := range []string{"", "../etc/passwd", "a/b", "..", ".hidden"} {
				_, apiErr := usecase.Poll(ctx, handle)
				Expect(apiErr).NotTo(BeNil(), handle)
				Expect(apiErr.ErrorCode).To(Equal(joberrors.InvalidJobIDCode))
			}
		})
	})
})

func newRecorder() *metrics.Recorder {
	recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	Expect(err).NotTo(HaveOccurred())
	return recorder
}
