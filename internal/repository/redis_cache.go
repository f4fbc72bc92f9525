package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей снимков подписки
	snapshotKeyPrefix = "billing_snapshot:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository кэш снимков подписки в Redis
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository подключается к Redis и проверяет соединение
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return NewRedisCacheFromClient(client, ttl, log), nil
}

// NewRedisCacheFromClient оборачивает уже созданный клиент
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCacheRepository{client: client, ttl: ttl, log: log}
}

// Client возвращает клиент Redis (используется распределенной блокировкой)
func (r *RedisCacheRepository) Client() *redis.Client {
	return r.client
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

func snapshotKey(customerID string) string {
	return snapshotKeyPrefix + customerID
}

// CacheSnapshot кэширует снимок подписки
func (r *RedisCacheRepository) CacheSnapshot(ctx context.Context, snapshot domain.BillingSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(snapshot.CustomerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	r.log.Debugw("Snapshot cached", "customerID", snapshot.CustomerID)
	return nil
}

// GetCachedSnapshot возвращает снимок из кэша; (nil, nil) если ключа нет
func (r *RedisCacheRepository) GetCachedSnapshot(ctx context.Context, customerID string) (*domain.BillingSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot from cache: %w", err)
	}

	var snapshot domain.BillingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}

	return &snapshot, nil
}

// InvalidateSnapshot удаляет снимок из кэша
func (r *RedisCacheRepository) InvalidateSnapshot(ctx context.Context, customerID string) error {
	if err := r.client.Del(ctx, snapshotKey(customerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot cache: %w", err)
	}
	return nil
}

// CachedSnapshotRepository добавляет кэш Redis поверх репозитория снимков.
// Ошибки кэша логируются и не прерывают операцию.
type CachedSnapshotRepository struct {
	repo  SnapshotRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedSnapshotRepository создает кэширующий репозиторий снимков
func NewCachedSnapshotRepository(repo SnapshotRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedSnapshotRepository {
	return &CachedSnapshotRepository{repo: repo, cache: cache, log: log}
}

// GetByCustomerID сначала смотрит в кэш, затем в хранилище
func (r *CachedSnapshotRepository) GetByCustomerID(ctx context.Context, customerID string) (domain.BillingSnapshot, error) {
	cached, err := r.cache.GetCachedSnapshot(ctx, customerID)
	if err != nil {
		r.log.Warnw("Snapshot cache read failed", "customerID", customerID, "error", err)
	} else if cached != nil {
		return *cached, nil
	}

	snapshot, err := r.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return domain.BillingSnapshot{}, err
	}

	if err := r.cache.CacheSnapshot(ctx, snapshot); err != nil {
		r.log.Warnw("Snapshot cache write failed", "customerID", customerID, "error", err)
	}

	return snapshot, nil
}

// Upsert пишет в хранилище и сбрасывает кэш
func (r *CachedSnapshotRepository) Upsert(ctx context.Context, snapshot domain.BillingSnapshot) error {
	if err := r.repo.Upsert(ctx, snapshot); err != nil {
		return err
	}
	r.invalidate(ctx, snapshot.CustomerID)
	return nil
}

// SetPeriodEnd пишет в хранилище и сбрасывает кэш
func (r *CachedSnapshotRepository) SetPeriodEnd(ctx context.Context, customerID string, periodEnd *time.Time) error {
	if err := r.repo.SetPeriodEnd(ctx, customerID, periodEnd); err != nil {
		return err
	}
	r.invalidate(ctx, customerID)
	return nil
}

func (r *CachedSnapshotRepository) invalidate(ctx context.Context, customerID string) {
	if err := r.cache.InvalidateSnapshot(context.WithoutCancel(ctx), customerID); err != nil {
		r.log.Warnw("Snapshot cache invalidation failed", "customerID", customerID, "error", err)
	}
}
