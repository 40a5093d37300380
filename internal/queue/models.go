package queue

import (
	"strings"
	"time"

	"trybuild/internal/jobfile"
)

// Status is the ledger state of a spool entry.
type Status string

const (
	StatusReceived Status = "received"
	StatusRejected Status = "rejected"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusReceived, StatusRejected}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	for _, status := range AllStatuses {
		if strings.EqualFold(string(status), strings.TrimSpace(value)) {
			return status, true
		}
	}
	return "", false
}

// Job is one ledger row.
type Job struct {
	ID          int64
	SpoolName   string
	Status      Status
	WireVersion jobfile.Version
	// Request is nil for rejected entries.
	Request      *jobfile.Request
	ErrorMessage string
	ReceivedAt   time.Time
}
