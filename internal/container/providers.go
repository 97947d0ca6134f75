package container

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/dispatcher"
	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/application/service"
	"github.com/garyjia/erp-requisitions/internal/application/workflow"
	rediscache "github.com/garyjia/erp-requisitions/internal/infrastructure/cache/redis"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/export/xlsx"
	infraLark "github.com/garyjia/erp-requisitions/internal/infrastructure/external/lark"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/repository"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/worker"
	"github.com/garyjia/erp-requisitions/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// CacheBundle holds the optional redis client and the cache built on it.
// Both are nil when redis is not configured.
type CacheBundle struct {
	Client *goredis.Client
	Badges port.BadgeCache
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(conn *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requisition: repository.NewRequisitionRepository(conn.DB, logger),
		Transfer:    repository.NewTransferRepository(conn.DB, logger),
		Catalog:     repository.NewCatalogRepository(conn.DB, logger),
		Member:      repository.NewMemberRepository(conn.DB, logger),
		History:     repository.NewHistoryRepository(conn.DB, logger),
	}, nil
}

// ProvideCache connects to redis when configured. An unreachable server is
// logged and the service runs without the cache.
func ProvideCache(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (*CacheBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if !cfg.Enabled() {
		logger.Info("Redis not configured, badge counts are computed per request")
		return &CacheBundle{}, nil
	}

	client := rediscache.NewClient(rediscache.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, badge cache disabled",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
		_ = client.Close()
		return &CacheBundle{}, nil
	}

	logger.Info("Redis connected", zap.String("addr", cfg.Addr))
	return &CacheBundle{
		Client: client,
		Badges: rediscache.NewBadgeCache(client, cfg.BadgeTTL, logger),
	}, nil
}

// ProvideMessenger returns the Lark messenger, or a logging sender when
// credentials are absent.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) (port.MessageSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	larkCfg := infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}
	if !larkCfg.Enabled() {
		logger.Info("Lark not configured, notifications are logged only")
		return infraLark.NewLogSender(logger), nil
	}

	client := infraLark.NewClient(larkCfg, logger)
	return infraLark.NewMessenger(client, logger), nil
}

// ProvideDispatcher creates the in-process event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// ServiceDeps holds what the application services are built from.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	BadgeCache port.BadgeCache
	Messenger  port.MessageSender
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// notification service to requisition events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	notification := service.NewNotificationService(
		deps.Repos.Requisition,
		deps.Repos.Member,
		deps.Messenger,
		serviceLogger,
	)
	notification.Register(deps.Dispatcher)

	return &ServiceBundle{
		Identity:     service.NewIdentityService(deps.Repos.Member, serviceLogger),
		Badge:        service.NewBadgeService(deps.Repos.Requisition, deps.BadgeCache, serviceLogger),
		Export:       service.NewExportService(deps.Repos.Requisition, xlsx.NewExporter(time.UTC, deps.Logger), serviceLogger),
		Notification: notification,
	}, nil
}

// WorkflowDeps holds what the workflow engines are built from.
type WorkflowDeps struct {
	Repos           *RepositoryBundle
	TxManager       port.TransactionManager
	Dispatcher      dispatcher.Dispatcher
	BadgeCache      port.BadgeCache
	PendingPageSize int
	Logger          *zap.Logger
}

// ProvideWorkflowEngines creates the requisition and transfer engines.
func ProvideWorkflowEngines(deps *WorkflowDeps) (*EngineBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
		workflow.WithPendingPageSize(deps.PendingPageSize),
	}
	if deps.BadgeCache != nil {
		opts = append(opts, workflow.WithBadgeCache(deps.BadgeCache))
	}

	return &EngineBundle{
		Requisition: workflow.NewRequisitionEngine(
			deps.Repos.Requisition,
			deps.Repos.Catalog,
			deps.Repos.History,
			deps.TxManager,
			opts...,
		),
		Transfer: workflow.NewTransferEngine(
			deps.Repos.Transfer,
			deps.Repos.History,
			deps.TxManager,
			opts...,
		),
	}, nil
}

// ProvideWorkers creates the background worker manager. The reminder worker
// is registered only when a reminder interval is configured.
func ProvideWorkers(cfg *WorkflowConfig, repos *RepositoryBundle, notifications service.NotificationService, logger *zap.Logger) (*worker.Manager, error) {
	if cfg == nil || repos == nil || notifications == nil {
		return nil, fmt.Errorf("workflow config, repositories and notifications are required")
	}

	manager := worker.NewManager(logger)
	if cfg.ReminderInterval <= 0 {
		logger.Info("Approval reminders disabled")
		return manager, nil
	}

	manager.Register(worker.NewReminderWorker(
		worker.ReminderConfig{
			Interval:   cfg.ReminderInterval,
			StaleAfter: cfg.ReminderStaleAfter,
		},
		repos.Requisition,
		repos.Member,
		notifications,
		logger.Named("reminders"),
	))
	return manager, nil
}
