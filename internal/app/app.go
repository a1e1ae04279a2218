package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/nsouzarj/craweb/internal/auth"
	"github.com/nsouzarj/craweb/internal/config"
	"github.com/nsouzarj/craweb/internal/guard"
	"github.com/nsouzarj/craweb/internal/permission"
	"github.com/nsouzarj/craweb/internal/routes"
	"github.com/nsouzarj/craweb/internal/session"
	"github.com/nsouzarj/craweb/internal/token"
	"github.com/nsouzarj/craweb/pkg/health"
	"github.com/nsouzarj/craweb/pkg/httpclient"
	"github.com/nsouzarj/craweb/pkg/tracing"
)

// Version is the console version, set at build time.
var Version = "0.1.0"

const serviceName = "cractl"

// App wires together all dependencies of the console.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *session.Store
	tokens         *token.Codec
	auth           *auth.Client
	router         *routes.Router
	perms          *permission.Resolver
	breaker        *httpclient.CircuitBreakerClient
	registry       *prometheus.Registry
	redis          *redis.Client
	storage        session.Storage
	storageDesc    string
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// nav shows views and notifier shows transient messages; both belong to the
// front end driving the app.
func NewApp(cfg *config.Config, logger *slog.Logger, nav routes.Navigator, notifier httpclient.Notifier) (*App, error) {
	table := routes.Default()
	if err := routes.Validate(table); err != nil {
		return nil, fmt.Errorf("route table: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		registry:       prometheus.NewRegistry(),
		tracerShutdown: tracerShutdown,
	}

	// Session storage and store.
	storage, err := a.openStorage(ctx)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	a.storage = storage
	a.store = session.NewStore(ctx, storage, logger)
	a.tokens = token.NewCodec()

	// HTTP interceptor.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpCfg.MaxRetries = cfg.HTTPMaxRetries
	httpCfg.RetryNonIdempotent = cfg.RetryNonIdempotent
	httpCfg.NotifyDuration = cfg.NotifyDuration

	opts := []httpclient.Option{
		httpclient.WithLogger(logger),
		httpclient.WithMetrics(httpclient.NewMetrics(a.registry)),
		httpclient.WithSessionExpiredHandler(auth.SessionExpiredHandler(a.store, nav, logger)),
	}
	if notifier != nil {
		opts = append(opts, httpclient.WithNotifier(notifier))
	}
	client := httpclient.New(httpCfg, opts...)

	var doer httpclient.Doer = client
	if cfg.BreakerEnabled {
		cbCfg := httpclient.DefaultCircuitBreakerConfig("cra-api")
		cbCfg.Timeout = cfg.BreakerTimeout
		a.breaker = httpclient.NewCircuitBreakerClient(client, cbCfg, logger)
		doer = a.breaker
	}

	// Build the dependency graph.
	a.auth = auth.NewClient(cfg.APIURL, doer, a.store, a.tokens, nav, logger)
	a.router = routes.NewRouter(table, guard.NewChecker(a.tokens), a.store, nav, logger)
	a.perms = permission.NewResolver(a.store)

	logger.Debug("console initialized",
		slog.String("api_url", cfg.APIURL),
		slog.String("session_storage", a.storageDesc),
		slog.Bool("breaker", cfg.BreakerEnabled),
	)
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (session.Storage, error) {
	switch a.cfg.SessionBackend {
	case config.BackendMemory:
		a.storageDesc = "memory"
		return session.NewMemoryStorage(), nil

	case config.BackendRedis:
		rdb, err := session.NewRedisClient(ctx, session.RedisConfig{
			Host:     a.cfg.RedisHost,
			Port:     a.cfg.RedisPort,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = rdb
		a.storageDesc = "redis " + rdb.Options().Addr
		return session.NewRedisStorage(rdb, a.cfg.RedisPrefix, a.cfg.RedisSessionTTL), nil

	default:
		path, err := a.cfg.SessionFilePath()
		if err != nil {
			return nil, err
		}
		a.storageDesc = "file " + path
		return session.NewFileStorage(path), nil
	}
}

// Accessors for the front end.

func (a *App) Store() *session.Store { return a.store }
func (a *App) Tokens() *token.Codec { return a.tokens }
func (a *App) Auth() *auth.Client { return a.auth }
func (a *App) Router() *routes.Router { return a.router }
func (a *App) Permissions() *permission.Resolver { return a.perms }
func (a *App) Registry() *prometheus.Registry { return a.registry }
func (a *App) Breaker() *httpclient.CircuitBreakerClient { return a.breaker }

// StorageDescription names the session backend in use, e.g. "file /path".
func (a *App) StorageDescription() string { return a.storageDesc }

// Health returns the console's dependency checks. The API and the session
// storage are critical; being signed in and a closed breaker are not.
func (a *App) Health() *health.Registry {
	reg := health.NewRegistry(5 * time.Second)

	reg.RegisterCritical("api", func(ctx context.Context) error {
		return probeAPI(ctx, a.cfg.APIURL)
	})
	reg.RegisterCritical("session_storage", func(ctx context.Context) error {
		if a.redis != nil {
			return a.redis.Ping(ctx).Err()
		}
		_, _, err := a.storage.Load(ctx, session.KeyAccessToken)
		return err
	})
	reg.RegisterNonCritical("session", func(context.Context) error {
		if !a.auth.IsAuthenticated() {
			return errors.New("not signed in or token expired")
		}
		return nil
	})
	if a.breaker != nil {
		reg.RegisterNonCritical("circuit_breaker", func(context.Context) error {
			if st := a.breaker.State(); st != gobreaker.StateClosed {
				return fmt.Errorf("circuit %s", st)
			}
			return nil
		})
	}
	return reg
}

// probeAPI reports whether anything answers at the API root. Any HTTP
// response counts; only transport failures are errors. It bypasses the
// interceptor so a probe never notifies.
func probeAPI(ctx context.Context, apiURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, apiURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// Close releases all components in order:
// 1. Tracer (flush pending spans)
// 2. Metrics textfile, when configured
// 3. Redis client
func (a *App) Close() error {
	var errs []error

	// 1. Flush pending spans (3s budget).
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 2. Export interceptor metrics.
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
			a.logger.Error("metrics export error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}

	// 3. Close Redis.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
