package daemonrun

import (
	"context"
	"fmt"
	"log/slog"

	"trybuild/internal/jobfile"
	"trybuild/internal/logging"
	"trybuild/internal/queue"
	"trybuild/internal/spool"
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Received   int
	Rejected   int
	Duplicates int
}

// Total is the number of entries claimed.
func (r SweepResult) Total() int { return r.Received + r.Rejected + r.Duplicates }

// Ingester moves jobs from a spool into the ledger.
type Ingester struct {
	spool  *spool.Spool
	store  *queue.Store
	logger *slog.Logger
}

// NewIngester builds an Ingester and ensures the spool's claim directory.
func NewIngester(sp *spool.Spool, store *queue.Store, logger *slog.Logger) (*Ingester, error) {
	if err := sp.EnsureClaimDir(); err != nil {
		return nil, err
	}
	return &Ingester{
		spool:  sp,
		store:  store,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}, nil
}

// Sweep records and claims every visible entry. An entry that fails to decode
// is recorded as rejected and still claimed.
func (i *Ingester) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	entries, err := i.spool.Pending()
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, rejected, err := i.ingest(ctx, entry)
		if err != nil {
			return result, err
		}
		if _, err := i.spool.Claim(entry); err != nil {
			return result, err
		}
		switch {
		case !created:
			result.Duplicates++
		case rejected:
			result.Rejected++
		default:
			result.Received++
		}
	}
	return result, nil
}

func (i *Ingester) ingest(ctx context.Context, entry spool.Entry) (created, rejected bool, err error) {
	data, err := i.spool.Read(entry)
	if err != nil {
		return false, false, err
	}

	req, version, decodeErr := jobfile.Decode(data)
	if decodeErr != nil {
		job, created, err := i.store.Reject(ctx, entry.Name, decodeErr.Error())
		if err != nil {
			return false, false, err
		}
		i.logger.Warn("rejected job file",
			logging.String(logging.FieldJob, entry.Name),
			logging.Int64("id", job.ID),
			logging.Error(decodeErr),
			logging.Event("job_rejected"))
		return created, true, nil
	}

	job, created, err := i.store.Record(ctx, entry.Name, version, req)
	if err != nil {
		return false, false, fmt.Errorf("record %s: %w", entry.Name, err)
	}
	if created {
		i.logger.Info("try job received",
			logging.String(logging.FieldJob, entry.Name),
			logging.Int64("id", job.ID),
			logging.String("bsid", req.BuildSetID),
			logging.String("version", string(version)),
			logging.Int("builders", len(req.Builders)),
			logging.Event("job_received"))
	}
	return created, false, nil
}
