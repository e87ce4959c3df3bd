package mirror

import (
	"context"
	"testing"
	"time"

	"admin-mirror/internal/models"
)

func TestSweepJob_RunDelegates(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", LastBrowserID: "bw1", CreatedAt: old, LastVisit: now},
		&models.Account{ID: "a2", LastBrowserID: "bw1", CreatedAt: old, LastVisit: old},
	)

	job := NewSweepJob(testLogger(), svc, time.Hour)
	kept, err := job.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if kept != "a1" {
		t.Errorf("expected a1 kept, got %q", kept)
	}
	if merger.callCount() != 1 {
		t.Errorf("expected one merge call, got %d", merger.callCount())
	}
}

func TestSweepJob_StartStopIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	job := NewSweepJob(testLogger(), svc, time.Hour)

	job.Start()
	job.Start()
	job.Stop()
	job.Stop()
}
