package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trybuild/internal/jobfile"
)

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job                                        Job
		wireVersion, bsid, branch, baserev, diff   sql.NullString
		repository, project, who, comment          sql.NullString
		buildersJSON, propertiesJSON, errorMessage sql.NullString
		receivedAt                                 string
		patchLevel                                 int
	)
	if err := scanner.Scan(
		&job.ID, &job.SpoolName, &job.Status, &wireVersion, &bsid, &branch, &baserev, &patchLevel, &diff,
		&repository, &project, &who, &comment, &buildersJSON, &propertiesJSON, &errorMessage, &receivedAt,
	); err != nil {
		return nil, err
	}

	job.WireVersion = jobfile.Version(wireVersion.String)
	job.ErrorMessage = errorMessage.String
	if ts, err := time.Parse(time.RFC3339Nano, receivedAt); err == nil {
		job.ReceivedAt = ts
	}

	if job.Status == StatusReceived {
		req := &jobfile.Request{
			BuildSetID:   bsid.String,
			Branch:       branch.String,
			BaseRevision: baserev.String,
			PatchLevel:   patchLevel,
			Diff:         diff.String,
			Repository:   repository.String,
			Project:      project.String,
			Who:          who.String,
			Comment:      comment.String,
		}
		if buildersJSON.Valid {
			if err := json.Unmarshal([]byte(buildersJSON.String), &req.Builders); err != nil {
				return nil, fmt.Errorf("decode builders for %s: %w", job.SpoolName, err)
			}
		}
		if propertiesJSON.Valid {
			if err := json.Unmarshal([]byte(propertiesJSON.String), &req.Properties); err != nil {
				return nil, fmt.Errorf("decode properties for %s: %w", job.SpoolName, err)
			}
		}
		job.Request = req
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
