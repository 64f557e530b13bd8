package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

const namespace = "stem_splitter"

// Outcome labels
const (
	Accepted      = "accepted"
	Blocked       = "blocked"
	Failed        = "failed"
	Succeeded     = "succeeded"
	TimedOut      = "timed_out"
	Invalid       = "invalid"
	PutOperation  = "put"
	HeadOperation = "exists"
)

// Recorder counts pipeline outcomes. A nil Recorder records nothing, so
// components can be built without metrics in tests.
type Recorder struct {
	submissions     *prometheus.CounterVec
	polls           *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	unlocks         *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Upload submissions by outcome.",
		}, []string{"outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Status polls by resulting job status.",
		}, []string{"status"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_dispatches_total",
			Help:      "Detached processing trigger calls by outcome.",
		}, []string{"outcome"}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlock_attempts_total",
			Help:      "Unlock key attempts by outcome.",
		}, []string{"outcome"}),
		storageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Latency of artifact store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{r.submissions, r.polls, r.dispatches, r.unlocks, r.storageDuration}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrap(err, "Failed to register pipeline metric")
		}
	}

	return r, nil
}

func (r *Recorder) Submission(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Poll(status string) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(status).Inc()
}

func (r *Recorder) Dispatch(outcome string) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Unlock(outcome string) {
	if r == nil {
		return
	}
	r.unlocks.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveStorage(operation string, started time.Time) {
	if r == nil {
		return
	}
	r.storageDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Collectors are exposed for assertions with prometheus/testutil.
func (r *Recorder) Submissions() *prometheus.CounterVec { return r.submissions }
func (r *Recorder) Polls() *prometheus.CounterVec       { return r.polls }
func (r *Recorder) Dispatches() *prometheus.CounterVec  { return r.dispatches }
func (r *Recorder) Unlocks() *prometheus.CounterVec     { return r.unlocks }
