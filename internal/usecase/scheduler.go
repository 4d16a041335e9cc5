package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// ErrUnknownJob is returned for a job name without a registered body.
var ErrUnknownJob = fmt.Errorf("unknown job: %w", domain.ErrNotFound)

// SchedulerDeps wires the job registry.
type SchedulerDeps struct {
	Driver   ports.Scheduler
	State    ports.JobStateRepository
	Journal  *journal.Journal
	Logger   *slog.Logger
	Location *time.Location
}

type registration struct {
	desc   domain.JobDescriptor
	fireAt time.Time
}

// Scheduler keeps at most one future occurrence per job and dispatches them
// through the driver.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]JobFunc
	pending map[string]registration

	driver  ports.Scheduler
	state   ports.JobStateRepository
	journal *journal.Journal
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewScheduler builds an empty registry.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		jobs:    map[string]JobFunc{},
		pending: map[string]registration{},
		driver:  deps.Driver,
		state:   deps.State,
		journal: deps.Journal,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// Handle binds a job name to its body.
func (s *Scheduler) Handle(name string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = fn
}

// Register adds the next occurrence of d. It is a no-op for disabled jobs and
// for jobs that already hold a future occurrence.
func (s *Scheduler) Register(d domain.JobDescriptor) bool {
	s.mu.Lock()
	ok := s.registerLocked(d, s.now())
	s.mu.Unlock()
	if ok && s.driver != nil {
		s.driver.Wake()
	}
	return ok
}

func (s *Scheduler) registerLocked(d domain.JobDescriptor, now time.Time) bool {
	if !d.Enabled {
		return false
	}
	if cur, ok := s.pending[d.Name]; ok && cur.fireAt.After(now) {
		return false
	}
	s.pending[d.Name] = registration{desc: d, fireAt: NextFire(d, now, s.loc)}
	return true
}

// Refresh applies new descriptors: removed or disabled jobs are dropped,
// changed ones re-registered, unchanged ones kept.
func (s *Scheduler) Refresh(descs []domain.JobDescriptor) {
	s.mu.Lock()
	now := s.now()
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		seen[d.Name] = true
		cur, ok := s.pending[d.Name]
		if !d.Enabled {
			delete(s.pending, d.Name)
			continue
		}
		if ok && !sameSchedule(cur.desc, d) {
			delete(s.pending, d.Name)
		}
		s.registerLocked(d, now)
	}
	for name := range s.pending {
		if !seen[name] {
			delete(s.pending, name)
		}
	}
	s.mu.Unlock()
	if s.driver != nil {
		s.driver.Wake()
	}
}

func sameSchedule(a, b domain.JobDescriptor) bool {
	return a.Recurrence == b.Recurrence && a.At == b.At && a.Weekday == b.Weekday
}

// Occurrences lists registered occurrences, soonest first.
func (s *Scheduler) Occurrences() []domain.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Occurrence, 0, len(s.pending))
	for name, r := range s.pending {
		out = append(out, domain.Occurrence{Job: name, FireAt: r.fireAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].Job < out[j].Job
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Start registers descs and hands the loop to the driver.
func (s *Scheduler) Start(ctx context.Context, descs []domain.JobDescriptor) error {
	s.Refresh(descs)
	if s.driver == nil {
		return nil
	}
	return s.driver.Start(ctx, s.next, func(at time.Time) { s.Fire(ctx, at) })
}

// Stop halts the driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) next() (time.Time, bool) {
	occ := s.Occurrences()
	if len(occ) == 0 {
		return time.Time{}, false
	}
	return occ[0].FireAt, true
}

// Fire dispatches every occurrence due at or before at, then re-registers each job.
func (s *Scheduler) Fire(ctx context.Context, at time.Time) {
	s.mu.Lock()
	var due []registration
	for name, r := range s.pending {
		if !r.fireAt.After(at) {
			due = append(due, r)
			delete(s.pending, name)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	for _, r := range due {
		s.dispatch(ctx, r.desc.Name)
		s.Register(r.desc)
	}
}

// RunNow runs a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownJob, name)
	}
	return s.dispatch(ctx, name)
}

// LastRuns reports the persisted last run of each job.
func (s *Scheduler) LastRuns(ctx context.Context) (map[string]time.Time, error) {
	if s.state == nil {
		return map[string]time.Time{}, nil
	}
	return s.state.LastRuns(ctx)
}

func (s *Scheduler) dispatch(ctx context.Context, name string) (err error) {
	s.mu.Lock()
	fn := s.jobs[name]
	s.mu.Unlock()
	if fn == nil {
		s.logger.WarnContext(ctx, "no body for job", "job", name)
		return fmt.Errorf("%w %q", ErrUnknownJob, name)
	}

	started := s.now()
	if s.state != nil {
		if rErr := s.state.RecordRun(ctx, name, started); rErr != nil {
			s.logger.WarnContext(ctx, "record job run failed", "job", name, "error", rErr)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		took := s.now().Sub(started).Round(time.Millisecond).String()
		if err != nil {
			s.journal.Error(context.WithoutCancel(ctx), "job.failed", name, journal.Fields{"error": err, "took": took})
			return
		}
		s.journal.Info(context.WithoutCancel(ctx), "job.done", name, journal.Fields{"took": took})
	}()

	return fn(ctx)
}

// NextFire returns the first occurrence of d strictly after now, evaluated in loc.
func NextFire(d domain.JobDescriptor, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	at := func(dayOffset int, hourShift int) time.Time {
		return time.Date(local.Year(), local.Month(), local.Day()+dayOffset,
			d.At.Hour+hourShift, d.At.Minute, 0, 0, loc)
	}

	switch d.Recurrence {
	case domain.RecurWeekly:
		offset := (int(d.Weekday) - int(local.Weekday()) + 7) % 7
		t := at(offset, 0)
		if !t.After(now) {
			t = at(offset+7, 0)
		}
		return t
	case domain.RecurTwiceDaily:
		for day := -1; ; day++ {
			for _, shift := range []int{0, 12} {
				if t := at(day, shift); t.After(now) {
					return t
				}
			}
		}
	default:
		t := at(0, 0)
		if !t.After(now) {
			t = at(1, 0)
		}
		return t
	}
}
