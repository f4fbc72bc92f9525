package service

import (
	"context"
	"strings"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/internal/timeline"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// DefaultTimelineWindow глубина ленты, если since не задан
const DefaultTimelineWindow = 90 * 24 * time.Hour

// TimelineInput запрос страницы ленты. Нулевой Since означает последние 90 дней.
type TimelineInput struct {
	CustomerID string
	Since      time.Time
	Page       int
}

// TimelineService лента активности клиента
type TimelineService interface {
	Timeline(ctx context.Context, input TimelineInput) (timeline.Page, error)
}

type timelineService struct {
	store      Store
	aggregator *timeline.Aggregator
	window     time.Duration
	metrics    metrics.BillingMetrics
	now        func() time.Time
	log        *logger.Logger
}

// NewTimelineService создает сервис ленты. window <= 0 означает 90 дней.
func NewTimelineService(store Store, aggregator *timeline.Aggregator, window time.Duration, log *logger.Logger, opts ...Option) TimelineService {
	if window <= 0 {
		window = DefaultTimelineWindow
	}
	o := buildOptions(opts)
	return &timelineService{
		store:      store,
		aggregator: aggregator,
		window:     window,
		metrics:    o.metrics,
		now:        o.now,
		log:        log,
	}
}

// NewDefaultAggregator собирает агрегатор из трех журналов хранилища
func NewDefaultAggregator(store Store, pageSize, sourceCap int, log *logger.Logger) *timeline.Aggregator {
	return timeline.NewAggregator(log, pageSize, sourceCap,
		timeline.NewLockboxSource(store.Lockboxes),
		timeline.NewEmailSource(store.Emails),
		timeline.NewAuditSource(store.Audit),
	)
}

func (s *timelineService) Timeline(ctx context.Context, input TimelineInput) (timeline.Page, error) {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if input.CustomerID == "" {
		return timeline.Page{}, domain.NewValidationError("customer_id", "is required")
	}
	if _, err := loadCustomer(ctx, s.store.Customers, input.CustomerID); err != nil {
		return timeline.Page{}, err
	}

	since := input.Since
	if since.IsZero() {
		since = s.now().Add(-s.window)
	}

	started := time.Now()
	page, err := s.aggregator.Aggregate(ctx, timeline.Query{
		CustomerID: input.CustomerID,
		Since:      since,
		Page:       input.Page,
	})
	if err != nil {
		s.log.Error("Failed to build timeline for customer %s: %v", input.CustomerID, err)
		return timeline.Page{}, err
	}

	s.metrics.ObserveTimeline(time.Since(started), len(page.Events))
	return page, nil
}
