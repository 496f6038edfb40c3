package store_test

import (
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/store"
)

func TestSyncJobLifecycle(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	start := time.Now().UTC()
	jobID, err := db.StartSyncJob(coll.UID, start)
	if err != nil {
		t.Fatalf("start sync job: %v", err)
	}

	jobs, err := db.ListSyncJobs(coll.UID)
	if err != nil {
		t.Fatalf("list sync jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != store.SyncJobRunning {
		t.Fatalf("expected 1 running job, got %+v", jobs)
	}
	if jobs[0].FinishedAt != nil {
		t.Fatalf("expected no finished_at yet, got %v", jobs[0].FinishedAt)
	}

	finish := start.Add(time.Second)
	if err := db.FinishSyncJob(jobID, store.SyncJobFailed, finish, "walk: permission denied"); err != nil {
		t.Fatalf("finish sync job: %v", err)
	}

	jobs, err = db.ListSyncJobs(coll.UID)
	if err != nil {
		t.Fatalf("list sync jobs after finish: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != store.SyncJobFailed {
		t.Fatalf("expected failed status, got %q", jobs[0].Status)
	}
	if jobs[0].Error != "walk: permission denied" {
		t.Fatalf("expected error message preserved, got %q", jobs[0].Error)
	}
	if jobs[0].FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
}

func TestListSyncJobsMostRecentFirst(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	first, err := db.StartSyncJob(coll.UID, time.Now().UTC())
	if err != nil {
		t.Fatalf("start first job: %v", err)
	}
	second, err := db.StartSyncJob(coll.UID, time.Now().UTC())
	if err != nil {
		t.Fatalf("start second job: %v", err)
	}

	jobs, err := db.ListSyncJobs(coll.UID)
	if err != nil {
		t.Fatalf("list sync jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != second || jobs[1].ID != first {
		t.Fatalf("expected most-recent-first order, got %+v", jobs)
	}
}
