package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

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

func newTestService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	svc := newTestService(t, NewRegistry(ok, failing), &fakeLock{})

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", ok.runs, failing.runs)
	}
}

func TestRunCycleHonoursCadence(t *testing.T) {
	frequent := &testJob{name: "cutoff-reminder"}
	daily := &testJob{name: "outbox-retention"}
	registry := NewRegistry()
	registry.Register(frequent, 0)
	registry.Register(daily, 24*time.Hour)

	lock := &fakeLock{}
	svc := newTestService(t, registry, lock)
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := svc.runCycle(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		now = now.Add(5 * time.Minute)
	}
	if frequent.runs != 3 {
		t.Fatalf("expected frequent job to run 3 times, ran %d", frequent.runs)
	}
	if daily.runs != 1 {
		t.Fatalf("expected daily job to run once, ran %d", daily.runs)
	}

	now = now.Add(24 * time.Hour)
	if err := svc.runCycle(ctx); err != nil {
		t.Fatalf("late cycle: %v", err)
	}
	if daily.runs != 2 {
		t.Fatalf("expected daily job to run again after a day, ran %d", daily.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "cutoff-reminder"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, NewRegistry(job), lock)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t, NewRegistry(), &fakeLock{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
