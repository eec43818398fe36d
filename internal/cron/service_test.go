package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestScheduleNext(t *testing.T) {
	s := Schedule{Hour: 2, Minute: 30}
	cases := map[string]struct {
		now  time.Time
		want time.Time
	}{
		"before today's slot": {time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)},
		"exactly at slot":     {time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC), time.Date(2025, 3, 2, 2, 30, 0, 0, time.UTC)},
		"after slot":          {time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 2, 2, 30, 0, 0, time.UTC)},
		"non-utc before slot": {time.Date(2025, 3, 1, 7, 0, 0, 0, time.FixedZone("IST", 19800)), time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)},
		"non-utc after slot":  {time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("IST", 19800)), time.Date(2025, 3, 2, 2, 30, 0, 0, time.UTC)},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, s.Next(tc.now), name)
	}
}

func TestNewServiceRejectsBadSchedule(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Schedule: Schedule{Hour: 24}})
	require.Error(t, err)
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", err: errors.New("boom")}
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(bad, ok),
		Lock:     lock,
		Metrics:  cronMetrics,
		Schedule: Schedule{Hour: 2, Minute: 30},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)

	assert.Equal(t, 1.0, counterValue(t, reg, "job_success", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "job_failure", "bad"))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunOnceLockError(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(&testJob{name: "ok"}),
		Lock:     &fakeLock{acquireErr: errors.New("redis down")},
	})
	require.NoError(t, err)
	require.Error(t, svc.RunOnce(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Lock:     &fakeLock{},
		Schedule: Schedule{Hour: 2, Minute: 30},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestRegistryLookup(t *testing.T) {
	a := &testJob{name: "a"}
	registry := NewRegistry(a, nil)
	assert.Len(t, registry.Jobs(), 1)

	got, ok := registry.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "job" && lp.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{job=%q} not found", name, job)
	return 0
}
