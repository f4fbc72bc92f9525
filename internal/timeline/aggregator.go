// Package timeline собирает ленту активности клиента из нескольких журналов.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize  = 25
	DefaultSourceCap = 150
)

// Query параметры запроса ленты. Page начинается с 1.
type Query struct {
	CustomerID string
	Since      time.Time
	Page       int
}

// Page страница ленты
type Page struct {
	Events  []domain.TimelineEvent `json:"events"`
	HasMore bool                   `json:"has_more"`
	Total   int                    `json:"total"`
}

// Aggregator параллельно читает источники, сливает и режет на страницы.
// Каждый источник ограничен sourceCap до слияния, поэтому при большом
// числе событий одного типа старые события могут не попасть в ленту.
type Aggregator struct {
	sources   []Source
	pageSize  int
	sourceCap int
	log       *logger.Logger
}

// NewAggregator создает агрегатор. Порядок sources задает порядок при равных timestamp.
func NewAggregator(log *logger.Logger, pageSize, sourceCap int, sources ...Source) *Aggregator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if sourceCap <= 0 {
		sourceCap = DefaultSourceCap
	}
	return &Aggregator{
		sources:   sources,
		pageSize:  pageSize,
		sourceCap: sourceCap,
		log:       log,
	}
}

// Aggregate возвращает страницу ленты
func (a *Aggregator) Aggregate(ctx context.Context, q Query) (Page, error) {
	results := make([][]domain.TimelineEvent, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			events, err := src.Fetch(gctx, q.CustomerID, q.Since, a.sourceCap)
			if err != nil {
				return fmt.Errorf("timeline source %s: %w", src.Name(), err)
			}
			if len(events) > a.sourceCap {
				events = events[:a.sourceCap]
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	var merged []domain.TimelineEvent
	for _, events := range results {
		merged = append(merged, events...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	page := q.Page
	if page < 1 {
		page = 1
	}

	// page сравниваем до умножения: большие значения переполняют offset
	total := len(merged)
	offset := total
	if page-1 <= total/a.pageSize {
		offset = (page - 1) * a.pageSize
	}
	end := total
	if total-offset > a.pageSize {
		end = offset + a.pageSize
	}

	a.log.Debugw("Timeline aggregated",
		"customerID", q.CustomerID, "total", total, "page", page)

	return Page{
		Events:  append([]domain.TimelineEvent{}, merged[offset:end]...),
		HasMore: end < total,
		Total:   total,
	}, nil
}
