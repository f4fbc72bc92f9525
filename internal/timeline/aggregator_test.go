package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name   string
	events []domain.TimelineEvent
	err    error
	limits []int
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.TimelineEvent, error) {
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func at(id string, ts time.Time) domain.TimelineEvent {
	return domain.TimelineEvent{ID: id, Timestamp: ts, Title: id}
}

func ids(events []domain.TimelineEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestAggregator_MergesInterleavedSources(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tn := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }

	a := NewAggregator(logger.NewNop(), 25, 150,
		&staticSource{name: "a", events: []domain.TimelineEvent{at("T5", tn(5)), at("T3", tn(3)), at("T1", tn(1))}},
		&staticSource{name: "b", events: []domain.TimelineEvent{at("T2", tn(2))}},
		&staticSource{name: "c", events: []domain.TimelineEvent{at("T4", tn(4))}},
	)

	page, err := a.Aggregate(context.Background(), Query{CustomerID: "c1", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"T5", "T4", "T3", "T2", "T1"}, ids(page.Events))
	assert.Equal(t, 5, page.Total)
	assert.False(t, page.HasMore)
}

func TestAggregator_TiesKeepSourceOrder(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := NewAggregator(logger.NewNop(), 25, 150,
		&staticSource{name: "lockbox", events: []domain.TimelineEvent{at("lockbox:1", ts)}},
		&staticSource{name: "email", events: []domain.TimelineEvent{at("email:1", ts)}},
		&staticSource{name: "admin", events: []domain.TimelineEvent{at("admin:1", ts)}},
	)

	page, err := a.Aggregate(context.Background(), Query{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lockbox:1", "email:1", "admin:1"}, ids(page.Events))
}

func TestAggregator_Pagination(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var events []domain.TimelineEvent
	for i := 0; i < 60; i++ {
		events = append(events, at(fmt.Sprintf("e%02d", i), base.Add(-time.Duration(i)*time.Minute)))
	}
	a := NewAggregator(logger.NewNop(), 25, 150, &staticSource{name: "s", events: events})
	ctx := context.Background()

	p1, err := a.Aggregate(ctx, Query{CustomerID: "c1", Page: 1})
	require.NoError(t, err)
	assert.Len(t, p1.Events, 25)
	assert.True(t, p1.HasMore)
	assert.Equal(t, "e00", p1.Events[0].ID)

	p3, err := a.Aggregate(ctx, Query{CustomerID: "c1", Page: 3})
	require.NoError(t, err)
	assert.Len(t, p3.Events, 10)
	assert.False(t, p3.HasMore)
	assert.Equal(t, "e50", p3.Events[0].ID)
	assert.Equal(t, 60, p3.Total)

	p9, err := a.Aggregate(ctx, Query{CustomerID: "c1", Page: 9})
	require.NoError(t, err)
	assert.Empty(t, p9.Events)
	assert.NotNil(t, p9.Events)
	assert.False(t, p9.HasMore)
}

func TestAggregator_PageBeyondRange(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(logger.NewNop(), 25, 150, &staticSource{name: "s", events: []domain.TimelineEvent{at("e1", base)}})

	for _, page := range []int{2, 400000000000000000, math.MaxInt} {
		t.Run(fmt.Sprint(page), func(t *testing.T) {
			p, err := a.Aggregate(context.Background(), Query{CustomerID: "c1", Page: page})
			require.NoError(t, err)
			assert.Empty(t, p.Events)
			assert.False(t, p.HasMore)
			assert.Equal(t, 1, p.Total)
		})
	}
}

// Каждый источник обрезается до слияния: при 200 письмах и пустых остальных
// источниках total равен лимиту источника, а не числу писем в окне.
func TestAggregator_PerSourceCapApproximation(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	emails := repository.NewInMemoryEmailLogRepository(logger.NewNop())
	for i := 0; i < 200; i++ {
		emails.Add(domain.EmailLog{
			ID:         fmt.Sprintf("m%03d", i),
			CustomerID: "c1",
			Template:   "welcome",
			SentAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	a := NewAggregator(logger.NewNop(), 25, 150,
		NewLockboxSource(repository.NewInMemoryLockboxRepository(logger.NewNop())),
		NewEmailSource(emails),
		NewAuditSource(repository.NewInMemoryAuditRepository(logger.NewNop())),
	)

	page, err := a.Aggregate(context.Background(), Query{CustomerID: "c1", Since: base, Page: 6})
	require.NoError(t, err)
	assert.Equal(t, 150, page.Total)
	require.Len(t, page.Events, 25)
	assert.False(t, page.HasMore)
	// самое старое письмо в ленте m050, письма m000..m049 отброшены лимитом
	assert.Equal(t, "email:m050", page.Events[len(page.Events)-1].ID)
}

func TestAggregator_PassesCapAndPropagatesErrors(t *testing.T) {
	ok := &staticSource{name: "ok"}
	bad := &staticSource{name: "bad", err: errors.New("db down")}

	a := NewAggregator(logger.NewNop(), 0, 0, ok, bad)
	_, err := a.Aggregate(context.Background(), Query{CustomerID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeline source bad")
	assert.Equal(t, []int{DefaultSourceCap}, bad.limits)
}

func TestLockboxSource_SkipsWithoutLockboxes(t *testing.T) {
	repo := repository.NewInMemoryLockboxRepository(logger.NewNop())
	repo.AddAction(domain.LockboxAction{ID: "orphan", LockboxID: "lb1", CreatedAt: time.Now()})

	events, err := NewLockboxSource(repo).Fetch(context.Background(), "c1", time.Time{}, 150)
	require.NoError(t, err)
	assert.Empty(t, events)

	repo.AddLockbox("c1", "lb1")
	events, err = NewLockboxSource(repo).Fetch(context.Background(), "c1", time.Time{}, 150)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "lockbox:orphan", events[0].ID)
}
