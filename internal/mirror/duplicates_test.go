package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"admin-mirror/internal/models"
)

func loadAccounts(t *testing.T, svc *AdminService, stores testStores, accounts ...*models.Account) {
	t.Helper()
	base := time.Now()
	for i, a := range accounts {
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = base.Add(time.Duration(i) * time.Second)
		}
		stores.accounts.Put(a)
	}
	if err := svc.Accounts().Update(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestGetDuplicates_BoundedTraversal(t *testing.T) {
	svc, stores, _ := newTestService(t)
	now := time.Now()

	// chain: A and B share ip1, B and C share ip2, C and D share ip3.
	// C is reachable within the depth bound, D is not.
	loadAccounts(t, svc, stores,
		&models.Account{ID: "A", Origins: []models.OriginCite{{IP: "ip1", Last: now}}},
		&models.Account{ID: "B", Origins: []models.OriginCite{{IP: "ip1", Last: now}, {IP: "ip2", Last: now}}},
		&models.Account{ID: "C", Origins: []models.OriginCite{{IP: "ip2", Last: now}, {IP: "ip3", Last: now}}},
		&models.Account{ID: "D", Origins: []models.OriginCite{{IP: "ip3", Last: now}}},
	)

	a, _ := svc.Accounts().Get("A")
	got := map[string]bool{}
	for _, c := range svc.GetDuplicates(a) {
		got[c.ID] = true
	}

	if !got["B"] || !got["C"] {
		t.Errorf("expected B and C as candidates, got %v", got)
	}
	if got["D"] {
		t.Error("D is beyond the traversal depth and must not be a candidate")
	}
	if got["A"] {
		t.Error("the starting account is never its own candidate")
	}
}

func TestGetDuplicates_BrowserFingerprintRanksFirst(t *testing.T) {
	svc, stores, _ := newTestService(t)
	now := time.Now()

	loadAccounts(t, svc, stores,
		&models.Account{ID: "A", LastBrowserID: "bw1", Origins: []models.OriginCite{{IP: "ip1", Last: now}}},
		&models.Account{ID: "ip-only", Origins: []models.OriginCite{{IP: "ip1", Last: now}}},
		&models.Account{ID: "same-browser", LastBrowserID: "bw1"},
	)

	a, _ := svc.Accounts().Get("A")
	got := svc.GetDuplicates(a)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != "same-browser" {
		t.Errorf("browser fingerprint match must rank first, got %s", got[0].ID)
	}
}

func TestMergePotentialDuplicates_KeepsFresherAccount(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", LastBrowserID: "bw1", CreatedAt: old, LastVisit: now},
		&models.Account{ID: "a2", LastBrowserID: "bw1", CreatedAt: old, LastVisit: now.Add(-time.Hour)},
	)

	kept, err := svc.MergePotentialDuplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if kept != "a1" {
		t.Errorf("expected the account with the more recent visit kept, got %q", kept)
	}

	if merger.callCount() != 1 {
		t.Fatalf("expected one merge call, got %d", merger.callCount())
	}
	call := merger.calls[0]
	if call.Keep != "a1" || call.Merge != "a2" {
		t.Errorf("unexpected merge direction: %+v", call)
	}
	if call.Reason != "duplicate account" || call.AllowAdmin || !call.CreatingDuplicates {
		t.Errorf("unexpected merge arguments: %+v", call)
	}
}

func TestMergePotentialDuplicates_TieKeepsTriggeringAccount(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	// a2 was applied last, so it sits on top of the work queue
	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", LastBrowserID: "bw1", CreatedAt: old, LastVisit: old},
		&models.Account{ID: "a2", LastBrowserID: "bw1", CreatedAt: old, LastVisit: old},
	)

	kept, err := svc.MergePotentialDuplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if kept != "a2" {
		t.Errorf("expected the triggering account kept on a tie, got %q", kept)
	}
	if merger.calls[0].Merge != "a1" {
		t.Errorf("expected a1 merged away, got %+v", merger.calls[0])
	}
}

func TestMergePotentialDuplicates_SkipsYoungCandidates(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()

	// both registered just now: a multi-tab signup burst, not duplicates yet
	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", LastBrowserID: "bw1", CreatedAt: now, LastVisit: now},
		&models.Account{ID: "a2", LastBrowserID: "bw1", CreatedAt: now, LastVisit: now},
	)

	kept, err := svc.MergePotentialDuplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if kept != "" {
		t.Errorf("expected no merge, got %q", kept)
	}
	if merger.callCount() != 0 {
		t.Errorf("expected no merge calls, got %d", merger.callCount())
	}
}

func TestMergePotentialDuplicates_DrainsQueueWithoutSignal(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()

	// no browser id, no origins: filtered out before any graph work
	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", CreatedAt: now.Add(-2 * time.Hour)},
		&models.Account{ID: "a2", CreatedAt: now.Add(-2 * time.Hour)},
	)

	kept, err := svc.MergePotentialDuplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if kept != "" || merger.callCount() != 0 {
		t.Errorf("expected drained queue without merges, got %q, %d calls", kept, merger.callCount())
	}

	svc.mu.Lock()
	remaining := len(svc.duplicatesQueue)
	svc.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected empty queue, got %d entries", remaining)
	}
}

func TestMergePotentialDuplicates_MergerErrorPropagates(t *testing.T) {
	svc, stores, merger := newTestService(t)
	now := time.Now()
	old := now.Add(-2 * time.Hour)
	merger.err = errors.New("merge workflow unavailable")

	loadAccounts(t, svc, stores,
		&models.Account{ID: "a1", LastBrowserID: "bw1", CreatedAt: old, LastVisit: now},
		&models.Account{ID: "a2", LastBrowserID: "bw1", CreatedAt: old, LastVisit: old},
	)

	if _, err := svc.MergePotentialDuplicates(context.Background()); err == nil {
		t.Fatal("expected merger error to propagate")
	}
}

func TestQueueDuplicateCheck_SkipsConsecutiveDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)

	svc.mu.Lock()
	svc.queueDuplicateCheck("a1")
	svc.queueDuplicateCheck("a1")
	svc.queueDuplicateCheck("a2")
	svc.queueDuplicateCheck("a1")
	queued := len(svc.duplicatesQueue)
	svc.mu.Unlock()

	if queued != 3 {
		t.Errorf("expected 3 queue entries, got %d", queued)
	}
}
