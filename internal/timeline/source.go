package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/repository"
)

// Source один журнал событий. Fetch возвращает до limit уже нормализованных
// событий с timestamp >= since, новые первыми.
type Source interface {
	Name() string
	Fetch(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.TimelineEvent, error)
}

// LockboxSource действия над локбоксами клиента
type LockboxSource struct {
	repo repository.LockboxRepository
}

// NewLockboxSource создает источник действий над локбоксами
func NewLockboxSource(repo repository.LockboxRepository) *LockboxSource {
	return &LockboxSource{repo: repo}
}

func (s *LockboxSource) Name() string { return "lockbox" }

// Fetch пропускает источник, если у клиента нет локбоксов
func (s *LockboxSource) Fetch(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.TimelineEvent, error) {
	ids, err := s.repo.ListIDsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list lockboxes: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	actions, err := s.repo.ListActions(ctx, ids, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list lockbox actions: %w", err)
	}

	events := make([]domain.TimelineEvent, 0, len(actions))
	for _, a := range actions {
		events = append(events, NormalizeLockboxAction(a))
	}
	return events, nil
}

// EmailSource исходящие письма клиенту
type EmailSource struct {
	repo repository.EmailLogRepository
}

// NewEmailSource создает источник журнала писем
func NewEmailSource(repo repository.EmailLogRepository) *EmailSource {
	return &EmailSource{repo: repo}
}

func (s *EmailSource) Name() string { return "email" }

func (s *EmailSource) Fetch(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.TimelineEvent, error) {
	logs, err := s.repo.ListByCustomer(ctx, customerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}

	events := make([]domain.TimelineEvent, 0, len(logs))
	for _, l := range logs {
		events = append(events, NormalizeEmail(l))
	}
	return events, nil
}

// AuditSource действия операторов из журнала аудита
type AuditSource struct {
	repo repository.AuditRepository
}

// NewAuditSource создает источник журнала аудита
func NewAuditSource(repo repository.AuditRepository) *AuditSource {
	return &AuditSource{repo: repo}
}

func (s *AuditSource) Name() string { return "admin" }

func (s *AuditSource) Fetch(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.TimelineEvent, error) {
	entries, err := s.repo.ListByCustomer(ctx, customerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	events := make([]domain.TimelineEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, NormalizeAudit(e))
	}
	return events, nil
}
