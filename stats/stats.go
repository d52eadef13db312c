// Package stats serves the mock traffic figures shown on the admin dashboard.
package stats

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

const DefaultInterval = 10 * time.Second

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriod falls back to daily for anything it does not know.
func ParsePeriod(s string) Period {
	p := Period(s)
	if slices.Contains(Periods, p) {
		return p
	}

	return PeriodDaily
}

// Series holds one metric per period. Labels belong to the daily figures.
type Series struct {
	Daily         []int    `json:"daily"`
	Weekly        []int    `json:"weekly"`
	Monthly       []int    `json:"monthly"`
	Labels        []string `json:"labels"`
	WeeklyLabels  []string `json:"weeklyLabels"`
	MonthlyLabels []string `json:"monthlyLabels"`
}

func (s Series) clone() Series {
	return Series{
		Daily:         slices.Clone(s.Daily),
		Weekly:        slices.Clone(s.Weekly),
		Monthly:       slices.Clone(s.Monthly),
		Labels:        slices.Clone(s.Labels),
		WeeklyLabels:  slices.Clone(s.WeeklyLabels),
		MonthlyLabels: slices.Clone(s.MonthlyLabels),
	}
}

// Points returns the values of the period with their labels.
func (s Series) Points(p Period) ([]int, []string) {
	switch p {
	case PeriodWeekly:
		return s.Weekly, s.WeeklyLabels
	case PeriodMonthly:
		return s.Monthly, s.MonthlyLabels
	default:
		return s.Daily, s.Labels
	}
}

type Statistics struct {
	Views    Series `json:"views"`
	Comments Series `json:"comments"`
}

func (s Statistics) clone() Statistics {
	return Statistics{
		Views:    s.Views.clone(),
		Comments: s.Comments.clone(),
	}
}

var (
	weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	weekLabels    = []string{"Week 1", "Week 2", "Week 3", "Week 4"}
	monthLabels   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
)

func Seed() Statistics {
	return Statistics{
		Views: Series{
			Daily:   []int{120, 145, 132, 160, 178, 95, 88},
			Weekly:  []int{820, 910, 875, 1020},
			Monthly: []int{3200, 3550, 3890, 4100, 3980, 4420},

			Labels:        weekdayLabels,
			WeeklyLabels:  weekLabels,
			MonthlyLabels: monthLabels,
		},
		Comments: Series{
			Daily:   []int{12, 18, 9, 22, 15, 6, 4},
			Weekly:  []int{64, 78, 71, 90},
			Monthly: []int{260, 290, 310, 335, 301, 352},

			Labels:        weekdayLabels,
			WeeklyLabels:  weekLabels,
			MonthlyLabels: monthLabels,
		},
	}
}

type Service struct {
	mu          sync.Mutex
	data        Statistics
	rng         *rand.Rand
	nextID      int
	subscribers map[int]func(Statistics)
}

type Option func(svc *Service)

// WithRand replaces the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(svc *Service) {
		svc.rng = rng
	}
}

func NewService(data Statistics, opts ...Option) *Service {
	svc := &Service{
		data:        data.clone(),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), // nolint:gosec
		subscribers: make(map[int]func(Statistics)),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *Service) Snapshot() Statistics {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.data.clone()
}

// Subscribe registers fn for every tick. The returned func removes it.
func (svc *Service) Subscribe(fn func(Statistics)) func() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	id := svc.nextID
	svc.nextID++
	svc.subscribers[id] = fn

	return func() {
		svc.mu.Lock()
		defer svc.mu.Unlock()

		delete(svc.subscribers, id)
	}
}

// Tick jitters the daily figures and notifies subscribers with the new snapshot.
func (svc *Service) Tick() Statistics {
	svc.mu.Lock()

	for i, v := range svc.data.Views.Daily {
		svc.data.Views.Daily[i] = max(0, v+svc.rng.IntN(20)-10)
	}

	for i, v := range svc.data.Comments.Daily {
		svc.data.Comments.Daily[i] = max(0, v+svc.rng.IntN(5)-2)
	}

	snapshot := svc.data.clone()

	subscribers := make([]func(Statistics), 0, len(svc.subscribers))
	for _, fn := range svc.subscribers {
		subscribers = append(subscribers, fn)
	}

	svc.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot.clone())
	}

	return snapshot
}

// Run ticks every interval until ctx is done.
func (svc *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "statistics ticker stopped")

			return
		case <-ticker.C:
			svc.Tick()
		}
	}
}
