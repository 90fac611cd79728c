// Package jobs runs background maintenance for the inventory service on an
// Asynq queue: nightly ledger integrity scans and report cache warmups.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockIntegrity verifies the ledger's derived columns.
	TaskStockIntegrity = "stock:integrity"
	// TaskReportsWarmup precomputes the cached dashboard reports.
	TaskReportsWarmup = "reports:warmup"
)

// NewStockIntegrityTask constructs the ledger integrity task.
func NewStockIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskStockIntegrity, nil)
}

// NewReportsWarmupTask constructs the report warmup task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil)
}
