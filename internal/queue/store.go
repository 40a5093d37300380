package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trybuild/internal/jobfile"
)

const jobColumns = `id, spool_name, status, wire_version, bsid, branch, baserev, patchlevel, diff,
	repository, project, who, comment, builders_json, properties_json, error_message, received_at`

// Record stores a decoded job under its spool name. The bool reports whether
// a new row was written; an existing row for name is returned unchanged.
func (s *Store) Record(ctx context.Context, name string, version jobfile.Version, req *jobfile.Request) (*Job, bool, error) {
	if req == nil {
		return nil, false, errors.New("record job: request is nil")
	}
	builders, err := json.Marshal(req.Builders)
	if err != nil {
		return nil, false, fmt.Errorf("encode builders: %w", err)
	}
	var properties []byte
	if len(req.Properties) > 0 {
		if properties, err = json.Marshal(req.Properties); err != nil {
			return nil, false, fmt.Errorf("encode properties: %w", err)
		}
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO try_jobs (spool_name, status, wire_version, bsid, branch, baserev, patchlevel, diff,
			repository, project, who, comment, builders_json, properties_json, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spool_name) DO NOTHING`,
		name, StatusReceived, string(version), req.BuildSetID,
		nullableString(req.Branch), nullableString(req.BaseRevision), req.PatchLevel, req.Diff,
		req.Repository, req.Project, nullableString(req.Who), nullableString(req.Comment),
		string(builders), nullableString(string(properties)), s.timestamp(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("record job %s: %w", name, err)
	}
	return s.afterInsert(ctx, name, res)
}

// Reject stores a spool entry that could not be decoded.
func (s *Store) Reject(ctx context.Context, name, reason string) (*Job, bool, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO try_jobs (spool_name, status, error_message, received_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(spool_name) DO NOTHING`,
		name, StatusRejected, reason, s.timestamp(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("reject job %s: %w", name, err)
	}
	return s.afterInsert(ctx, name, res)
}

func (s *Store) afterInsert(ctx context.Context, name string, res sql.Result) (*Job, bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	job, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if job == nil {
		return nil, false, fmt.Errorf("job %s vanished after insert", name)
	}
	return job, affected > 0, nil
}

// GetByName returns the job recorded for a spool name, or nil.
func (s *Store) GetByName(ctx context.Context, name string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM try_jobs WHERE spool_name = ?`, name)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", name, err)
	}
	return job, nil
}

// List returns jobs filtered by status (or all jobs when none is given),
// oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM try_jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM try_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
