// Package planner fetches the user's schedule and drives schedule generation.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"studyplan/internal/api"
	"studyplan/internal/layout"
	"studyplan/internal/models"
	"studyplan/internal/querycache"
	"studyplan/internal/store"
)

// DefaultRefetchDelay is how long after a successful generation the current week is refetched.
const DefaultRefetchDelay = time.Second

// ErrGenerationInProgress is returned when Generate is called while a previous request is pending.
var ErrGenerationInProgress = errors.New("schedule generation already in progress")

// RefreshFunc receives the result of a delayed refetch.
type RefreshFunc func(week Week, err error)

// Week is the schedule of the seven days containing a reference date.
type Week struct {
	Reference time.Time
	Days      []time.Time // Monday first, local midnight
	Events    []models.ScheduleEvent
	Stale     bool      // Served from the offline snapshot
	FetchedAt time.Time // When the events were last retrieved from the backend
}

// Start returns the Monday of the week.
func (w Week) Start() time.Time {
	if len(w.Days) == 0 {
		return time.Time{}
	}
	return w.Days[0]
}

// Options configures a Planner. Zero values select defaults.
type Options struct {
	Store        *store.Store // Optional offline snapshot store
	Grid         layout.Grid
	RefetchDelay time.Duration
}

// Planner is safe for concurrent use.
type Planner struct {
	logger       *slog.Logger
	client       *api.Client
	cache        *querycache.Cache
	store        *store.Store
	grid         layout.Grid
	refetchDelay time.Duration

	generating atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	reference time.Time
	timer     *time.Timer
	listeners []RefreshFunc
	closed    bool
}

// New creates a Planner. Close must be called to stop any pending refetch.
func New(logger *slog.Logger, client *api.Client, cache *querycache.Cache, opts Options) *Planner {
	grid := opts.Grid
	if grid.HourHeight <= 0 || grid.Location == nil {
		grid = layout.NewGrid(grid.HourHeight, grid.Location)
	}
	delay := opts.RefetchDelay
	if delay <= 0 {
		delay = DefaultRefetchDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Planner{
		logger:       logger,
		client:       client,
		cache:        cache,
		store:        opts.Store,
		grid:         grid,
		refetchDelay: delay,
		ctx:          ctx,
		cancel:       cancel,
		reference:    time.Now(),
	}
}

// Grid returns the layout geometry the planner computes week windows with.
func (p *Planner) Grid() layout.Grid {
	return p.grid
}

// OnRefresh registers fn to receive the results of delayed refetches.
func (p *Planner) OnRefresh(fn RefreshFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Generating reports whether a generation request is pending.
func (p *Planner) Generating() bool {
	return p.generating.Load()
}

// Generate validates params and asks the backend to generate a schedule. On
// success the schedule and statistics caches are invalidated and a refetch of
// the most recently viewed week is scheduled.
func (p *Planner) Generate(ctx context.Context, params models.GenerateScheduleParams) (models.GeneratedScheduleResult, error) {
	if err := params.Validate(); err != nil {
		return models.GeneratedScheduleResult{}, err
	}
	if !p.generating.CompareAndSwap(false, true) {
		return models.GeneratedScheduleResult{}, ErrGenerationInProgress
	}
	defer p.generating.Store(false)

	p.logger.Info("Generating schedule", "short_break", params.ShortBreakMinutes, "medium_break", params.MediumBreakMinutes,
		"long_break", params.LongBreakMinutes, "long_break_after", params.LongBreakAfterMinutes)

	res, err := p.client.GenerateSchedule(ctx, params)
	if err != nil {
		return models.GeneratedScheduleResult{}, fmt.Errorf("failed to generate schedule: %w", err)
	}

	p.logger.Info("Successfully generated schedule", "entries_created", res.EntriesCreated)
	p.cache.Invalidate(querycache.ResourceSchedule, querycache.ResourceStatistics)
	p.scheduleRefetch()
	return res, nil
}

// scheduleRefetch arms the one-shot refetch, replacing a pending one.
func (p *Planner) scheduleRefetch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	ref := p.reference
	p.timer = time.AfterFunc(p.refetchDelay, func() {
		p.refetch(ref)
	})
}

func (p *Planner) refetch(ref time.Time) {
	if p.ctx.Err() != nil {
		return
	}
	week, err := p.FetchWeek(p.ctx, ref)
	if err != nil {
		p.logger.Error("Delayed schedule refetch failed", "error", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	listeners := append([]RefreshFunc(nil), p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(week, err)
	}
}

// FetchWeek returns the events of the week containing ref. On a network error
// the last stored snapshot of that week is returned with Stale set.
func (p *Planner) FetchWeek(ctx context.Context, ref time.Time) (Week, error) {
	ref = ref.In(p.grid.Location)
	p.mu.Lock()
	p.reference = ref
	p.mu.Unlock()

	days := p.grid.WeekWindow(ref)
	week := Week{Reference: ref, Days: days}

	key := querycache.NewKey(querycache.ResourceSchedule, "date", ref.Format(api.DateLayout))
	type fetched struct {
		events []models.ScheduleEvent
		at     time.Time
	}
	res, err := querycache.Fetch(ctx, p.cache, key, func(ctx context.Context) (fetched, error) {
		events, err := p.client.GetSchedule(ctx, ref)
		if err != nil {
			return fetched{}, err
		}
		p.saveSnapshot(ctx, days[0], events)
		return fetched{events: events, at: time.Now()}, nil
	})
	if err == nil {
		week.Events = res.events
		week.FetchedAt = res.at
		return week, nil
	}

	if api.IsNetwork(err) && p.store != nil {
		snap, serr := p.store.LoadWeek(ctx, days[0])
		if serr == nil {
			p.logger.Warn("Backend unreachable, serving stored schedule", "week", days[0].Format(api.DateLayout), "fetched_at", snap.FetchedAt)
			week.Events = snap.Events
			week.FetchedAt = snap.FetchedAt
			week.Stale = true
			return week, nil
		}
		if !errors.Is(serr, store.ErrNotFound) {
			p.logger.Error("Failed to load stored schedule", "error", serr)
		}
	}
	return week, fmt.Errorf("failed to fetch schedule: %w", err)
}

func (p *Planner) saveSnapshot(ctx context.Context, weekStart time.Time, events []models.ScheduleEvent) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveWeek(ctx, weekStart, events); err != nil {
		p.logger.Error("Failed to store schedule snapshot", "error", err)
	}
}

// Close cancels a pending refetch. Listeners are not called afterwards.
func (p *Planner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.cancel()
}
