package trigger

import (
	"context"
	"github.com/apex/log"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/metrics"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/cerr"
	"golang.org/x/sync/semaphore"
	"sync"
	"time"
)

const (
	DefaultDispatchTimeout       = 10 * time.Second
	DefaultMaxConcurrentDispatch = 16
)

// Dispatcher fires triggers without making the caller wait. Each dispatch
// gets one timeout covering the wait for a free slot and the call itself.
// Outcomes are only logged and counted.
type Dispatcher struct {
	trigger Trigger
	timeout time.Duration
	slots   *semaphore.Weighted
	metrics *metrics.Recorder

	inFlight sync.WaitGroup
}

func NewDispatcher(trigger Trigger, dispatchConfig config.Dispatch, recorder *metrics.Recorder) *Dispatcher {
	timeout := dispatchConfig.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	maxConcurrent := dispatchConfig.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentDispatch
	}

	return &Dispatcher{
		trigger: trigger,
		timeout: timeout,
		slots:   semaphore.NewWeighted(maxConcurrent),
		metrics: recorder,
	}
}

func (d *Dispatcher) Dispatch(descriptor Descriptor) {
	d.inFlight.Add(1)
	go func() {
		defer d.inFlight.Done()
		d.run(descriptor)
	}()
}

func (d *Dispatcher) run(descriptor Descriptor) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	errCtx := cerr.Field("job_id", descriptor.JobID)

	if err := d.slots.Acquire(ctx, 1); err != nil {
		d.metrics.Dispatch(metrics.TimedOut)
		cerr.Log(errCtx.Wrap(err).Error("Gave up waiting for a free trigger slot"))
		return
	}
	defer d.slots.Release(1)

	if err := d.trigger.Start(ctx, descriptor); err != nil {
		d.metrics.Dispatch(metrics.Failed)
		cerr.Log(errCtx.Wrap(err).Error("Failed to start processing job"))
		return
	}

	d.metrics.Dispatch(metrics.Succeeded)
	log.WithField("job_id", descriptor.JobID).Info("Processing job started")
}

// Wait blocks until every dispatch so far has finished.
func (d *Dispatcher) Wait() {
	d.inFlight.Wait()
}
