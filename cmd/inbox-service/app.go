package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
	"inboxhook/internal/credentials"
	"inboxhook/internal/eventstore"
	"inboxhook/internal/ingestion"
	"inboxhook/internal/logger"
	"inboxhook/internal/messages"
	"inboxhook/internal/outbound"
	"inboxhook/internal/webhook"
	"inboxhook/pkg/bootstrap"
	"inboxhook/pkg/cel"
	"inboxhook/pkg/health"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/metrics"
	"inboxhook/pkg/middleware"
	"inboxhook/pkg/ratelimit"
	"inboxhook/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	loader      *config.Loader
	dbConnector *bootstrap.DatabaseConnector

	redis       *redis.Client
	db          *sql.DB
	mongoClient *mongo.Client
	mongoDB     *mongo.Database

	store       eventstore.Store
	creds       credentials.Provider
	configCreds *credentials.ConfigStore
	ingest      *ingestion.Service
	messages    *messages.Handler
	limiter     *ratelimit.Limiter

	server *http.Server
}

func NewApp(cfg *config.Config, loader *config.Loader, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		loader:      loader,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(ctx, a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.OnShutdown("tracer provider", tp.Shutdown)

	metrics.Register()

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	if rdb != nil {
		a.OnShutdown("redis", func(context.Context) error { return rdb.Close() })
	}

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	if db != nil {
		a.OnShutdown("postgres", func(context.Context) error { return db.Close() })
	}

	client, mdb, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongoClient = client
	a.mongoDB = mdb
	if client != nil {
		a.OnShutdown("mongodb", client.Disconnect)
	}

	return nil
}

func (a *App) initServices() error {
	store, err := eventstore.New(a.Config.Store, a.Config.CircuitBreaker, eventstore.Backends{
		Redis:    a.redis,
		Postgres: a.db,
		Mongo:    a.mongoDB,
	})
	if err != nil {
		return err
	}
	a.store = store

	creds, configCreds, err := credentials.New(a.Config, a.redis, a.Logger.Named("credentials"))
	if err != nil {
		return err
	}
	a.creds = creds
	a.configCreds = configCreds
	configCreds.Watch(a.loader)

	var opts []ingestion.Option
	if expr := a.Config.Ingestion.SkipExpression; expr != "" {
		expr, err := cel.ExpandPreset(expr)
		if err != nil {
			return fmt.Errorf("invalid ingestion.skip_expression: %w", err)
		}
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("failed to create CEL evaluator: %w", err)
		}
		filter, err := evaluator.CompileFilter(expr)
		if err != nil {
			return fmt.Errorf("invalid ingestion.skip_expression: %w", err)
		}
		opts = append(opts, ingestion.WithSkipFilter(filter))
		a.Logger.Infow("Ingestion skip filter enabled", "expression", expr)
	}
	if a.Producer != nil && a.Config.Broker.Kafka.SinkTopic != "" {
		opts = append(opts, ingestion.WithSink(a.Producer, a.Config.Broker.Kafka.SinkTopic))
	}

	a.ingest = ingestion.NewService(store, creds, a.Logger.Named("ingestion"), opts...)
	a.messages = messages.NewHandler(store, a.ingest, a.Logger.Named("messages"))

	if rl := a.Config.Management.RateLimit; rl.Enabled {
		rlCfg := ratelimit.DefaultConfig()
		if rl.RPS > 0 {
			rlCfg.RPS = rl.RPS
		}
		if rl.Burst > 0 {
			rlCfg.Burst = rl.Burst
		}
		if rl.CleanupInterval > 0 {
			rlCfg.CleanupInterval = rl.CleanupInterval
		}
		if rl.MaxAge > 0 {
			rlCfg.MaxAge = rl.MaxAge
		}
		a.limiter = ratelimit.New(rlCfg)
	}

	return nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(tracing.GinMiddleware(a.Config.Tracing.ServiceName)...)
	router.Use(middleware.Logger(a.Logger))
	router.Use(middleware.Recovery(a.Logger))

	hooks := webhook.NewHandler(a.creds, a.configCreds, a.ingest, a.Config.Ingestion.MaxBodyBytes, a.Logger.Named("webhook"))
	hooks.RegisterRoutes(router)

	api := router.Group("/api")
	if a.limiter != nil {
		api.Use(a.limiter.Middleware())
	}
	a.messages.RegisterRoutes(api)

	client := outbound.NewClient(a.Config, a.creds, a.Logger.Named("outbound"))
	outbound.NewHandler(client, a.ingest, a.Logger.Named("outbound")).RegisterRoutes(api)

	healthRegistry := a.healthRegistry()
	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	a.OnShutdown("http server", func(ctx context.Context) error {
		serverCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(serverCtx)
	})
}

func (a *App) healthRegistry() *health.Registry {
	registry := health.NewRegistry()
	if a.redis != nil {
		registry.Register(health.NewRedisChecker(a.redis))
	}
	if a.db != nil {
		registry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.mongoClient != nil {
		registry.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	registry.Register(health.NewCheckFunc("event_store", func(ctx context.Context) error {
		_, err := a.store.ListByConversation(ctx, "health-check")
		return err
	}))
	return registry
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}

	if topic := a.Config.Broker.Kafka.BackfillTopic; a.Consumer != nil && topic != "" {
		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, serviceName)
			a.Logger.InfowCtx(consumeCtx, "Starting backfill consumer", "topic", topic)
			return a.Consumer.Consume(gCtx, topic, a.messages.Backfill)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(logging.WithServiceName(ctx, serviceName))
}
