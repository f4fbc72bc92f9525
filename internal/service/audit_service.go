package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/kafka"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/google/uuid"
)

// AuditService пишет журнал аудита и публикует записи в поток событий
type AuditService interface {
	// Record сохраняет запись. Внутри транзакции запись коммитится вместе с изменением.
	Record(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	// Publish отправляет сохраненные записи в поток событий в фоне
	Publish(ctx context.Context, entries ...domain.AuditEntry)
	// Wait дожидается завершения начатых публикаций. Вызывается до закрытия продюсера.
	Wait()
}

type auditService struct {
	repo     repository.AuditRepository
	producer kafka.Producer
	now      func() time.Time
	inflight sync.WaitGroup
	log      *logger.Logger
}

// NewAuditService создает сервис аудита. producer может быть nil.
func NewAuditService(repo repository.AuditRepository, producer kafka.Producer, log *logger.Logger, opts ...Option) AuditService {
	if producer == nil {
		producer = kafka.NoopProducer{}
	}
	o := buildOptions(opts)
	return &auditService{
		repo:     repo,
		producer: producer,
		now:      o.now,
		log:      log,
	}
}

func (s *auditService) Record(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Error("Failed to write audit entry %s for customer %s: %v", entry.Action, entry.TargetCustomerID, err)
		return domain.AuditEntry{}, fmt.Errorf("write audit entry: %w", err)
	}

	s.log.Debug("Audit entry %s recorded: %s by %s", entry.ID, entry.Action, entry.ActorEmail)
	return entry, nil
}

func (s *auditService) Publish(ctx context.Context, entries ...domain.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	pubCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, entry := range entries {
			if err := s.producer.PublishAuditEvent(pubCtx, entry); err != nil {
				s.log.Warnw("Failed to publish audit event", "auditID", entry.ID, "action", entry.Action, "error", err)
			}
		}
	}()
}

func (s *auditService) Wait() {
	s.inflight.Wait()
}
