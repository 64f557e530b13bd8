package application

import (
	"context"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/artifact"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/gateway"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/storage"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/usecase"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/gateway"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/usecase"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/keys"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/metrics"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/throttle"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/page"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/quota"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/trigger"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/rabbitmq"
	"net/http"
	"time"
)

type HTTPMethod string

const (
	GET  HTTPMethod = "GET"
	POST HTTPMethod = "POST"
)

const (
	DefaultKeyAttemptsPerSecond = 0.2
	DefaultKeyAttemptBurst      = 5
	shutdownTimeout             = 30 * time.Second
)

type App struct {
	echo       *echo.Echo
	port       string
	dispatcher *trigger.Dispatcher
	limiter    *throttle.Limiter
	closers    []func() error
}

type Config struct {
	StorageConfig      config.ArtifactStorage
	TriggerConfig      config.Trigger
	DispatchConfig     config.Dispatch
	LedgerConfig       config.Ledger
	KeySource          config.KeySource
	StemVariant        jobentity.StemVariant
	FreeUseLimit       int
	SessionSecret      string
	FeedbackLogPath    string
	CORSAllowedOrigins []string
	Port               string
	Log                bool

	// Zero values fall back to the defaults above.
	KeyAttemptsPerSecond float64
	KeyAttemptBurst      int
}

// NewApp panics on anything it cannot wire.
func NewApp(config Config) *App {
	app := &App{port: config.Port}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	if config.Log {
		e.Use(middleware.Logger())
	}

	resolver := identity.NewResolver(config.SessionSecret)
	e.Use(resolver.Middleware())

	corsMiddleware := makeCorsMiddleware(config)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc, middlewares ...echo.MiddlewareFunc) {
		middlewares = append([]echo.MiddlewareFunc{corsMiddleware}, middlewares...)

		e.OPTIONS(path, handlerFunc, corsMiddleware)

		switch method {
		case GET:
			e.GET(path, handlerFunc, middlewares...)
		case POST:
			e.POST(path, handlerFunc, middlewares...)
		default:
			panic("unhandled http method!")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := must(metrics.NewRecorder(registry))

	stems := must(jobentity.NewStemSet(config.StemVariant))
	store := app.makeArtifactStore(config)
	ledger := app.makeLedger(config)
	unlockKeys := keys.Load(context.Background(), config.KeySource)

	app.dispatcher = trigger.NewDispatcher(app.makeTrigger(config), config.DispatchConfig, recorder)
	app.limiter = makeKeyAttemptLimiter(config)

	jobGateway := jobgateway.NewGateway(
		jobusecase.NewUsecase(ledger, unlockKeys, store, app.dispatcher, stems, recorder))
	feedbackGateway := feedbackgateway.NewGateway(
		feedbackusecase.NewUsecase(feedbackstorage.NewFileLog(config.FeedbackLogPath)))
	pageGateway := must(page.NewGateway(page.Data{
		BucketName: store.Bucket(),
		Stems:      stems.Names,
	}))

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	handleRoute(GET, "/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// upload page and job routes
	handleRoute(GET, "/", pageGateway.Index)
	handleRoute(POST, "/", jobGateway.Submit)
	handleRoute(GET, "/status", jobGateway.Status)
	handleRoute(POST, "/use_key", jobGateway.UseKey, app.limiter.Middleware())

	handleRoute(POST, "/feedback", feedbackGateway.Submit)

	app.echo = e
	return app
}

func (a *App) Handler() http.Handler {
	return a.echo
}

func (a *App) Start() error {
	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

// Stop lets in-flight requests and trigger dispatches finish before closing
// the connections they use.
func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.echo.Shutdown(ctx)
	if err != nil {
		err = errors.Wrap(err, "Failed to stop echo server")
	}

	a.dispatcher.Wait()
	a.limiter.Stop()

	for _, closer := range a.closers {
		if closeErr := closer(); closeErr != nil {
			err = errors.CombineErrors(err, closeErr)
		}
	}

	return err
}

func (a *App) makeArtifactStore(appConfig Config) artifact.Store {
	switch t := appConfig.StorageConfig.(type) {
	case config.S3Storage:
		return must(artifact.NewS3StoreFromConfig(t))

	case config.GoogleCloudStorage:
		store := must(artifact.NewGCSStoreFromConfig(context.Background(), t))
		a.closers = append(a.closers, store.Close)
		return store

	case config.LocalStorage:
		return artifact.NewMemoryStore(t.StorageHost, t.BucketName)

	default:
		panic("Unexpected artifact storage config type")
	}
}

func (a *App) makeLedger(appConfig Config) quota.Ledger {
	switch t := appConfig.LedgerConfig.(type) {
	case config.RedisLedger:
		ledger := must(quota.NewRedisLedgerFromURL(t.URL, t.KeyPrefix, appConfig.FreeUseLimit))
		a.closers = append(a.closers, ledger.Close)
		return ledger

	case config.MemoryLedger, nil:
		return quota.NewMemoryLedger(appConfig.FreeUseLimit)

	default:
		panic("Unexpected ledger config type")
	}
}

func (a *App) makeTrigger(appConfig Config) trigger.Trigger {
	switch t := appConfig.TriggerConfig.(type) {
	case config.WebhookTrigger:
		return trigger.NewWebhookTrigger(t)

	case config.RabbitMQTrigger:
		publisher, err := rabbitmq.NewQueuePublisher(t.URL, t.QueueName)
		if err != nil {
			panic(errors.Wrap(err, "Failed to create rabbitMQ publisher"))
		}
		a.closers = append(a.closers, publisher.Close)
		return trigger.NewQueueTrigger(publisher)

	default:
		panic("Unexpected trigger config type")
	}
}

func makeKeyAttemptLimiter(config Config) *throttle.Limiter {
	perSecond := config.KeyAttemptsPerSecond
	if perSecond <= 0 {
		perSecond = DefaultKeyAttemptsPerSecond
	}

	burst := config.KeyAttemptBurst
	if burst <= 0 {
		burst = DefaultKeyAttemptBurst
	}

	return throttle.NewLimiter(perSecond, burst)
}

func makeCorsMiddleware(config Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}

	return value
}
