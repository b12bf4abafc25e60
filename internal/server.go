package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/liftsync/internal/api"
	"github.com/2beens/liftsync/internal/config"
	"github.com/2beens/liftsync/internal/db"
	"github.com/2beens/liftsync/internal/imagestore"
	"github.com/2beens/liftsync/internal/middleware"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/store"
	"github.com/2beens/liftsync/internal/telemetry/metrics"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config     *config.Config
	dbPool     *pgxpool.Pool
	store      remote.Store
	images     imagestore.Store
	apiKeyHash string

	// optional; rate limiting is off without it
	redisClient *redis.Client

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	APIKeyHash              string
	PostgresPassword        string
	RedisPassword           string
	HoneycombTracingEnabled bool
	// DriveCredentialsJSON is required when images are hosted on google drive
	DriveCredentialsJSON []byte
	Migrate              bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	if params.APIKeyHash == "" {
		return nil, errors.New("api key hash not set")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "liftsync-service")
	if err != nil {
		return nil, err
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.Config.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("liftsync", "service", promRegistry)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	rdb.AddHook(redisotel.NewTracingHook())

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	images, err := newImageStore(ctx, params)
	if err != nil {
		otelShutdown()
		dbPool.Close()
		return nil, multierr.Append(err, rdb.Close())
	}

	repo := store.NewRepo(dbPool, images)
	if params.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			otelShutdown()
			dbPool.Close()
			return nil, multierr.Append(fmt.Errorf("migrate: %w", err), rdb.Close())
		}
		log.Infoln("db schema migrated")
	}

	return &Server{
		config:     params.Config,
		dbPool:     dbPool,
		store:      repo,
		images:     images,
		apiKeyHash: params.APIKeyHash,

		redisClient: rdb,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func newImageStore(ctx context.Context, params NewServerParams) (imagestore.Store, error) {
	cfg := params.Config
	if cfg.ImagesDriveFolder != "" {
		if len(params.DriveCredentialsJSON) == 0 {
			return nil, errors.New("google drive credentials not set")
		}
		driveStore, err := imagestore.NewDriveStore(ctx, params.DriveCredentialsJSON, cfg.ImagesDriveFolder)
		if err != nil {
			return nil, fmt.Errorf("new drive image store: %w", err)
		}
		log.Debugf("images hosted on google drive, folder [%s]", cfg.ImagesDriveFolder)
		return driveStore, nil
	}

	diskStore, err := imagestore.NewDiskStore(cfg.ImagesRootPath, cfg.ImagesBaseURL)
	if err != nil {
		return nil, fmt.Errorf("new disk image store: %w", err)
	}
	log.Debugf("images hosted on disk: %s", cfg.ImagesRootPath)
	return diskStore, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("liftsync-router"))

	// only disk hosted images are served by us, drive serves its own
	var opener api.ImageOpener
	if diskStore, ok := s.images.(*imagestore.DiskStore); ok {
		opener = diskStore
	}

	var rateLimiter middleware.RequestRateLimiter
	if s.redisClient != nil {
		rateLimiter = redis_rate.NewLimiter(s.redisClient)
	}

	handler := api.NewHandler(s.store, opener)
	handler.SetupRoutes(r, rateLimiter, s.metricsManager, s.config.WriteRateLimitPerMin)

	// all the rest - unhandled paths
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins...))
	r.Use(middleware.NewAPIKeyAuth(s.apiKeyHash).AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the backing stores go away
	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	}
	if s.metricsHttpServer != nil {
		err = multierr.Append(err, s.metricsHttpServer.Shutdown(ctx))
	}
	if s.redisClient != nil {
		err = multierr.Append(err, s.redisClient.Close())
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			log.Errorf(" >>> shutdown: %s", e)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
	log.Warnln("server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
