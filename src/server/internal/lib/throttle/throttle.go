package throttle

import (
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"golang.org/x/time/rate"
	"sync"
	"time"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter keeps one token bucket per client address. Session cookies are
// ignored, a fresh cookie gets no extra attempts.
type Limiter struct {
	perSecond rate.Limit
	burst     int

	mutex   sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
	once    sync.Once
}

func NewLimiter(perSecond float64, burst int) *Limiter {
	l := &Limiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		entries:   make(map[string]*entry),
		stop:      make(chan struct{}),
	}

	go l.cleanupLoop()
	return l
}

func (l *Limiter) Allow(address string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	e, ok := l.entries[address]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.entries[address] = e
	}
	e.lastAccess = time.Now()

	return e.limiter.Allow()
}

func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			address := identity.FromContext(c).Address
			if !l.Allow(address) {
				apiErr := api.CommitError(errors.Newf("Attempt limit reached for %s", address),
					api.TooManyRequestsCode,
					"Too many attempts, please wait a moment and try again")
				return gateway.ErrorResponse(c, apiErr)
			}

			return next(c)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now().Add(-entryTTL))
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup(cutoff time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for address, e := range l.entries {
		if e.lastAccess.Before(cutoff) {
			delete(l.entries, address)
		}
	}
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
