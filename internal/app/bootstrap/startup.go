// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/status"
	"github.com/dalemusser/residencyhub/internal/app/system/tasks"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	if deps.Scheduler == nil {
		return nil
	}
	if err := registerJobs(deps, appCfg, logger); err != nil {
		return err
	}
	deps.Scheduler.Start()
	logger.Info("scheduler started",
		zap.Strings("jobs", deps.Scheduler.Names()),
		zap.Time("next_backfill", deps.Scheduler.Next(tasks.OnCallBackfill)),
	)
	return nil
}

// registerJobs adds the nightly maintenance jobs to the scheduler.
func registerJobs(deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	db := deps.MongoDatabase
	onCall := oncallstore.New(db, appCfg.Location, appCfg.OnCallStations, logger)
	audits := auditlog.New(audit.New(db), logger, appCfg.auditConfig())

	if err := deps.Scheduler.Add(tasks.OnCallBackfillJob(onCall, audits, logger, appCfg.OnCallBackfillSchedule)); err != nil {
		return err
	}
	if appCfg.LoginRetention > 0 {
		job := tasks.LoginRecordPruneJob(loginstore.New(db), logger, appCfg.LoginPruneSchedule, appCfg.LoginRetention)
		if err := deps.Scheduler.Add(job); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin makes sure the configured email belongs to an active admin.
// An existing user is promoted; otherwise a new admin is created, signing in
// with password when one is configured and with Google otherwise.
func ensureAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		method := models.AuthGoogle
		if password != "" {
			method = models.AuthPassword
		}
		created, err := users.Create(ctx, models.User{
			FullName:   adminName(email),
			Email:      email,
			AuthMethod: method,
			Role:       models.RoleAdmin,
			Status:     status.Active,
		})
		if err != nil {
			return err
		}
		if password != "" {
			if err := users.SetPassword(ctx, created.ID, password); err != nil {
				return err
			}
		}
		logger.Info("created admin", zap.String("email", email), zap.String("auth_method", method))
		return nil
	case err != nil:
		return err
	}

	if u.Role == models.RoleAdmin && u.Status == status.Active {
		return nil
	}
	role, st := models.RoleAdmin, status.Active
	if _, err := users.Update(ctx, u.ID, userstore.Update{Role: &role, Status: &st}); err != nil {
		return err
	}
	logger.Info("promoted user to admin", zap.String("email", email), zap.String("previous_role", u.Role))
	return nil
}

// adminName derives a display name from the local part of an email.
func adminName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Administrator"
	}
	return local
}
