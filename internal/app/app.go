// Package app собирает зависимости бэк-офиса по конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/billing-backoffice/internal/api/rest"
	"github.com/Dhoini/billing-backoffice/internal/api/rest/handlers"
	"github.com/Dhoini/billing-backoffice/internal/api/rest/middleware"
	"github.com/Dhoini/billing-backoffice/internal/config"
	"github.com/Dhoini/billing-backoffice/internal/integration/stripe"
	"github.com/Dhoini/billing-backoffice/internal/kafka"
	"github.com/Dhoini/billing-backoffice/internal/lock"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/internal/repository/postgres"
	"github.com/Dhoini/billing-backoffice/internal/service"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config   *config.Config
	Router   *gin.Engine
	Server   *rest.Server
	Registry *prometheus.Registry
	Logger   *logger.Logger

	closers []func() error
}

// New создает и инициализирует приложение. Пустые DSN, адрес Redis и список
// брокеров переключают на хранилище в памяти, блокировки в процессе и
// выключенную публикацию аудита.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, Registry: metrics.NewRegistry()}
	health := map[string]handlers.Pinger{}

	store, err := a.buildStore(ctx, health)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.buildLocker(ctx, &store, health)
	if err != nil {
		a.Close()
		return nil, err
	}

	producer := a.buildProducer(ctx)

	if cfg.Stripe.APIKey == "" {
		log.Warnw("Stripe API key is not set, provider calls will fail")
	}
	provider := stripe.NewStripeClient(cfg.Stripe.APIKey, log)

	if cfg.Auth.JWTSecret == "" {
		log.Warnw("JWT secret is not set, every request will be rejected")
	}

	opts := []service.Option{
		service.WithMetrics(metrics.NewBillingMetrics(a.Registry)),
		service.WithLocker(locker),
	}
	audit := service.NewAuditService(store.Audit, producer, log, opts...)
	// closers идут в обратном порядке: публикации дожидаемся до закрытия продюсера
	a.closers = append(a.closers, func() error { audit.Wait(); return nil })
	aggregator := service.NewDefaultAggregator(store, cfg.Timeline.PageSize, cfg.Timeline.SourceCap, log)

	services := handlers.CustomerServices{
		Customers:  service.NewCustomerService(store, log),
		Suspension: service.NewSuspensionService(store, audit, log, opts...),
		Promos:     service.NewPromoService(store, audit, log, opts...),
		Billing:    service.NewBillingSyncService(store, provider, audit, cfg.Stripe.Currency, log, opts...),
		Timeline:   service.NewTimelineService(store, aggregator, cfg.Timeline.Window, log, opts...),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a.Router = rest.SetupRouter(rest.Dependencies{
		Services:  services,
		Validator: &middleware.HMACTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)},
		Registry:  a.Registry,
		Health:    health,
		Debug:     !cfg.IsProduction(),
		Log:       log,
	})
	a.Server = rest.NewServer(a.Router, cfg, log)

	return a, nil
}

func (a *App) buildStore(ctx context.Context, health map[string]handlers.Pinger) (service.Store, error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warnw("Database DSN is empty, using in-memory store")
		return service.NewInMemoryStore(a.Logger), nil
	}

	pool, err := postgres.NewConnection(ctx, a.Config.Database.DSN, a.Logger)
	if err != nil {
		return service.Store{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	health["postgres"] = pool.Ping

	if err := postgres.Migrate(ctx, pool, a.Logger); err != nil {
		return service.Store{}, fmt.Errorf("migrate database: %w", err)
	}

	eventDB := postgres.NewEventLogDB(pool)
	a.closers = append(a.closers, eventDB.Close)

	repos := postgres.NewRepositories(pool, eventDB, a.Logger)
	return service.Store{
		Customers:   repos.Customers,
		Snapshots:   repos.Snapshots,
		Promos:      repos.Promos,
		Redemptions: repos.Redemptions,
		Audit:       repos.Audit,
		Lockboxes:   repos.Lockboxes,
		Emails:      repos.Emails,
		Tx:          repos.Tx,
	}, nil
}

// buildLocker при наличии Redis включает распределенные блокировки и кэш снимков
func (a *App) buildLocker(ctx context.Context, store *service.Store, health map[string]handlers.Pinger) (lock.Locker, error) {
	redisCfg := a.Config.Redis
	if redisCfg.Addr == "" {
		a.Logger.Warnw("Redis address is empty, using in-process locks without snapshot cache")
		return lock.NewKeyedMutex(), nil
	}

	cache, err := repository.NewRedisCacheRepository(redisCfg.Addr, redisCfg.Password, redisCfg.DB, redisCfg.CacheTTL, a.Logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cache.Close)
	health["redis"] = func(ctx context.Context) error { return cache.Client().Ping(ctx).Err() }

	store.Snapshots = repository.NewCachedSnapshotRepository(store.Snapshots, cache, a.Logger)
	return lock.NewRedisLocker(cache.Client(), redisCfg.LockTTL, redisCfg.LockWait, a.Logger), nil
}

// buildProducer публикация аудита не критична: без брокеров или при ошибке работаем без нее
func (a *App) buildProducer(ctx context.Context) kafka.Producer {
	kafkaCfg := a.Config.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		a.Logger.Infow("Kafka brokers are not configured, audit events are not published")
		return kafka.NoopProducer{}
	}

	if err := kafka.EnsureKafkaTopics(ctx, kafkaCfg.Brokers, a.Logger, kafka.AuditTopicConfig(kafkaCfg.Topic)); err != nil {
		a.Logger.Warnw("Failed to ensure Kafka topics", "error", err)
	}

	producer, err := kafka.NewKafkaProducer(kafkaCfg.Brokers, kafkaCfg.Topic, a.Logger)
	if err != nil {
		a.Logger.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		return kafka.NoopProducer{}
	}
	a.closers = append(a.closers, producer.Close)
	return producer
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
