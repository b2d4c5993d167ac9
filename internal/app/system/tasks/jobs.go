// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/jobs"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Job names as registered with the scheduler.
const (
	OnCallBackfill   = "oncall-backfill"
	LoginRecordPrune = "login-record-prune"
)

// OnCallBackfillJob repairs roster dates shifted by a time-zone bug.
// Runs that change nothing are not audited.
func OnCallBackfillJob(store *oncallstore.Store, audit *auditlog.Logger, logger *zap.Logger, spec string) jobs.Job {
	return jobs.Job{
		Name:    OnCallBackfill,
		Spec:    spec,
		Timeout: timeouts.Batch(),
		Run: func(ctx context.Context) error {
			res, err := store.Backfill(ctx, nil)
			if err != nil {
				return err
			}
			metrics.ObserveBackfill(res.Fixed, res.Merged)
			if res.Fixed+res.Merged > 0 {
				audit.OnCallBackfill(ctx, nil, nil, res.Scanned, res.Fixed, res.Merged)
				logger.Info("on-call backfill repaired rosters",
					zap.Int("scanned", res.Scanned),
					zap.Int("fixed", res.Fixed),
					zap.Int("merged", res.Merged))
			}
			return nil
		},
	}
}

// LoginRecordPruneJob deletes login records older than retention.
func LoginRecordPruneJob(logins *loginstore.Store, logger *zap.Logger, spec string, retention time.Duration) jobs.Job {
	return jobs.Job{
		Name:    LoginRecordPrune,
		Spec:    spec,
		Timeout: timeouts.Long(),
		Run: func(ctx context.Context) error {
			count, err := logins.DeleteBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("pruned login records",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
