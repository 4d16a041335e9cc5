package usecase

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/logging"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func job(name string, r domain.Recurrence, h, m int) domain.JobDescriptor {
	return domain.JobDescriptor{Name: name, Recurrence: r, Enabled: true, At: domain.ClockTime{Hour: h, Minute: m}}
}

func TestNextFire(t *testing.T) {
	t.Parallel()

	loc := berlin(t)
	at := func(y int, mo time.Month, d, h, m int) time.Time { return time.Date(y, mo, d, h, m, 0, 0, loc) }

	daily := job("d", domain.RecurDaily, 7, 0)
	twice := job("t", domain.RecurTwiceDaily, 9, 0)
	weekly := job("w", domain.RecurWeekly, 18, 0)
	weekly.Weekday = time.Friday
	late := job("l", domain.RecurTwiceDaily, 14, 0)

	cases := []struct {
		name string
		desc domain.JobDescriptor
		now  time.Time
		want time.Time
	}{
		{"daily before", daily, at(2026, 1, 10, 6, 59), at(2026, 1, 10, 7, 0)},
		{"daily exactly at", daily, at(2026, 1, 10, 7, 0), at(2026, 1, 11, 7, 0)},
		{"twice morning", twice, at(2026, 1, 10, 8, 0), at(2026, 1, 10, 9, 0)},
		{"twice evening slot", twice, at(2026, 1, 10, 10, 0), at(2026, 1, 10, 21, 0)},
		{"twice next day", twice, at(2026, 1, 10, 22, 0), at(2026, 1, 11, 9, 0)},
		{"twice wraps past midnight", late, at(2026, 1, 10, 1, 0), at(2026, 1, 10, 2, 0)},
		{"weekly later this week", weekly, at(2026, 1, 10, 12, 0), at(2026, 1, 16, 18, 0)},
		{"weekly same day before", weekly, at(2026, 1, 16, 17, 0), at(2026, 1, 16, 18, 0)},
		{"weekly exactly at", weekly, at(2026, 1, 16, 18, 0), at(2026, 1, 23, 18, 0)},
	}
	for _, tc := range cases {
		got := NextFire(tc.desc, tc.now, loc)
		assert.True(t, got.Equal(tc.want), "%s: got %s want %s", tc.name, got, tc.want)
		assert.True(t, got.After(tc.now), tc.name)
	}
}

func TestNextFireAcrossDST(t *testing.T) {
	t.Parallel()

	loc := berlin(t)
	got := NextFire(job("d", domain.RecurDaily, 7, 0), time.Date(2026, 3, 28, 8, 0, 0, 0, loc), loc)
	assert.Equal(t, 7, got.In(loc).Hour())
	assert.Equal(t, 29, got.In(loc).Day())
	assert.Equal(t, 5, got.UTC().Hour())
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T, state *fakeJobState) (*Scheduler, *testClock) {
	t.Helper()
	loc := berlin(t)
	clock := &testClock{t: time.Date(2026, 1, 10, 6, 0, 0, 0, loc)}
	s := NewScheduler(SchedulerDeps{State: state, Logger: logging.Discard(), Location: loc})
	s.now = clock.now
	return s, clock
}

func TestRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, nil)
	d := job(domain.JobDailyRewrite, domain.RecurDaily, 7, 0)

	assert.True(t, s.Register(d))
	assert.False(t, s.Register(d))
	require.Len(t, s.Occurrences(), 1)

	off := job(domain.JobColdDrain, domain.RecurTwiceDaily, 9, 0)
	off.Enabled = false
	assert.False(t, s.Register(off))
	assert.Len(t, s.Occurrences(), 1)
}

func TestRefreshReplacesChangedJobs(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, nil)
	s.Refresh([]domain.JobDescriptor{
		job(domain.JobDailyRewrite, domain.RecurDaily, 7, 0),
		job(domain.JobTopicResearch, domain.RecurDaily, 5, 30),
	})
	require.Len(t, s.Occurrences(), 2)

	s.Refresh([]domain.JobDescriptor{job(domain.JobDailyRewrite, domain.RecurDaily, 8, 15)})
	occ := s.Occurrences()
	require.Len(t, occ, 1)
	assert.Equal(t, domain.JobDailyRewrite, occ[0].Job)
	assert.Equal(t, 8, occ[0].FireAt.Hour())
	assert.Equal(t, 15, occ[0].FireAt.Minute())
}

func TestFireDispatchesAndReregisters(t *testing.T) {
	t.Parallel()

	state := &fakeJobState{}
	s, clock := newTestScheduler(t, state)
	runs := 0
	s.Handle(domain.JobDailyRewrite, func(context.Context) error { runs++; return nil })
	s.Handle(domain.JobColdDrain, func(context.Context) error { panic("drain bug") })
	s.Refresh([]domain.JobDescriptor{
		job(domain.JobDailyRewrite, domain.RecurDaily, 7, 0),
		job(domain.JobColdDrain, domain.RecurTwiceDaily, 9, 0),
	})

	first := s.Occurrences()[0]
	require.Equal(t, domain.JobDailyRewrite, first.Job)
	clock.set(first.FireAt.Add(time.Second))
	s.Fire(context.Background(), first.FireAt)

	assert.Equal(t, 1, runs)
	last, _ := state.LastRuns(context.Background())
	assert.Contains(t, last, domain.JobDailyRewrite)

	occ := s.Occurrences()
	require.Len(t, occ, 2)
	assert.Equal(t, domain.JobColdDrain, occ[0].Job)
	assert.Equal(t, domain.JobDailyRewrite, occ[1].Job)
	assert.Equal(t, 11, occ[1].FireAt.Day())

	drainAt := occ[0].FireAt
	clock.set(drainAt.Add(time.Second))
	assert.NotPanics(t, func() { s.Fire(context.Background(), drainAt) })
	occ = s.Occurrences()
	require.Len(t, occ, 2)
	assert.Equal(t, 21, occ[0].FireAt.Hour())
}

func TestRunNow(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, &fakeJobState{})
	called := false
	s.Handle(domain.JobWeeklySummary, func(context.Context) error { called = true; return nil })

	require.NoError(t, s.RunNow(context.Background(), domain.JobWeeklySummary))
	assert.True(t, called)

	err := s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s.Handle("exploding", func(context.Context) error { panic("x") })
	assert.Error(t, s.RunNow(context.Background(), "exploding"))
}
