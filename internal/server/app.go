// Package server wires configuration, storage, caches and the gRPC endpoint
// into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/dmitrijs2005/coursecache/internal/cache"
	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/invalidation"
	"github.com/dmitrijs2005/coursecache/internal/logging"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/server/config"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecache/internal/server/services"
	"github.com/dmitrijs2005/coursecache/internal/telemetry"
	"github.com/dmitrijs2005/coursecache/internal/txn"

	gs "github.com/dmitrijs2005/coursecache/internal/server/grpc"
)

const serviceName = "coursecache"

type App struct {
	config  *config.Config
	logger  logging.Logger
	syncLog func() error
	db      *sql.DB
	rdb     goredis.UniversalClient
	tracing telemetry.ShutdownFunc

	views  *services.CourseViewService
	writes *services.WriteService
}

type stores struct {
	content *cache.Store[*content.Tree]
	points  *cache.Store[*points.View]
	rdb     goredis.UniversalClient
}

func newLogger(c *config.Config) (logging.Logger, func() error, error) {
	switch c.LogFormat {
	case config.LogFormatZap:
		z, err := logging.NewZap("production")
		if err != nil {
			return nil, nil, fmt.Errorf("zap init error: %w", err)
		}
		return z, z.Sync, nil
	default:
		return logging.NewJSONLogger(os.Stdout, slog.LevelInfo), func() error { return nil }, nil
	}
}

func newStores(ctx context.Context, c *config.Config, log logging.Logger) (*stores, error) {
	meter := otel.Meter("github.com/dmitrijs2005/coursecache/internal/cache")
	opts := []cache.Option{cache.WithLogger(log), cache.WithMeter(meter)}

	switch c.CacheBackend {
	case config.CacheBackendRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		prefix := c.RedisPrefix + ":"
		return &stores{
			content: cache.NewStore[*content.Tree](common.NamespaceContent, cache.NewRedisBackend[*content.Tree](rdb, prefix), opts...),
			points:  cache.NewStore[*points.View](common.NamespacePoints, cache.NewRedisBackend[*points.View](rdb, prefix), opts...),
			rdb:     rdb,
		}, nil
	default:
		return &stores{
			content: cache.NewStore[*content.Tree](common.NamespaceContent, cache.NewMemoryBackend[*content.Tree](c.MemoryShards), opts...),
			points:  cache.NewStore[*points.View](common.NamespacePoints, cache.NewMemoryBackend[*points.View](c.MemoryShards), opts...),
		}, nil
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, syncLog, err := newLogger(c)
	if err != nil {
		return nil, err
	}

	tracing, err := telemetry.Setup(ctx, serviceName, c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st, err := newStores(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	coord := txn.NewCoordinator(db, logger.With("module", "txn"))
	views := services.NewCourseViewService(coord, rm, st.content, st.points,
		services.WithWatermarkCheck(c.ContentWatermarkCheck),
		services.WithLogger(logger.With("module", "course_views")),
	)
	router := invalidation.NewRouter(services.NewResolver(coord, rm), views, logger.With("module", "invalidation"))
	writes := services.NewWriteService(coord, rm, router, logger.With("module", "writes"))

	return &App{
		config:  c,
		logger:  logger,
		syncLog: syncLog,
		db:      db,
		rdb:     st.rdb,
		tracing: tracing,
		views:   views,
		writes:  writes,
	}, nil
}

// Writes exposes the transactional write path to code embedding the server.
func (app *App) Writes() *services.WriteService {
	return app.writes
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.views)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(context.Background(), "shutdown error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	_ = app.syncLog()
}

func (app *App) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.tracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	return errors.Join(errs...)
}
