package store

import (
	"database/sql"
	"time"

	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// SyncJobStatus mirrors the sync_job.status column's small state machine.
type SyncJobStatus string

const (
	SyncJobRunning   SyncJobStatus = "running"
	SyncJobCompleted SyncJobStatus = "completed"
	SyncJobFailed    SyncJobStatus = "failed"
)

// SyncJob is one recorded run of the directory synchronizer against a
// collection, kept for a history view ("when did this collection last
// sync, and did it fail?") independent of the in-memory progress Cell,
// which only reflects the run currently in flight.
type SyncJob struct {
	ID         int64
	Status     SyncJobStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Error      string
}

// StartSyncJob inserts a running sync_job row for collectionUID and
// returns its row ID, for the caller to pass to FinishSyncJob once the
// run completes.
func (d *DB) StartSyncJob(collectionUID entityuid.UID, startedAt time.Time) (int64, error) {
	rowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return 0, err
	}
	res, err := d.db.Exec(`
		INSERT INTO sync_job (collection_id, status, created_at, started_at)
		VALUES (?, ?, ?, ?)
	`, rowID, SyncJobRunning, startedAt, startedAt)
	if err != nil {
		return 0, meridianerr.Wrap(meridianerr.Io, "store: start sync job", err)
	}
	return res.LastInsertId()
}

// FinishSyncJob records the terminal status of a sync_job row started by
// StartSyncJob. errMsg is stored only when status is SyncJobFailed.
func (d *DB) FinishSyncJob(jobID int64, status SyncJobStatus, finishedAt time.Time, errMsg string) error {
	if status != SyncJobFailed {
		errMsg = ""
	}
	_, err := d.db.Exec(`
		UPDATE sync_job SET status = ?, finished_at = ?, error = ? WHERE row_id = ?
	`, status, finishedAt, errMsg, jobID)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: finish sync job", err)
	}
	return nil
}

// ListSyncJobs returns every recorded sync_job for collectionUID, most
// recent first.
func (d *DB) ListSyncJobs(collectionUID entityuid.UID) ([]SyncJob, error) {
	rowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT row_id, status, created_at, started_at, finished_at, error
		FROM sync_job WHERE collection_id = ? ORDER BY row_id DESC
	`, rowID)
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: list sync jobs", err)
	}
	defer rows.Close()

	var jobs []SyncJob
	for rows.Next() {
		var j SyncJob
		var status string
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&j.ID, &status, &j.CreatedAt, &startedAt, &finishedAt, &j.Error); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: scan sync job", err)
		}
		j.Status = SyncJobStatus(status)
		if startedAt.Valid {
			j.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			j.FinishedAt = &finishedAt.Time
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: iterate sync jobs", err)
	}
	return jobs, nil
}
