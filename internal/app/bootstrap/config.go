// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jobs"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ResidencyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: RESIDENCYHUB_MONGO_URI, RESIDENCYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "residency_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "residencyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 12h, 720h)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL, used for OAuth redirects"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the bootstrap admin (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Initial password for a newly created bootstrap admin"},

	// Program calendar
	{Name: "program_timezone", Default: "Europe/Madrid", Desc: "IANA time zone of the program's calendar days"},
	{Name: "meeting_start", Default: "08:15", Desc: "Local start time of morning meetings (HH:MM)"},
	{Name: "meeting_duration", Default: "45m", Desc: "Length of a morning meeting"},

	// On-call
	{Name: "oncall_stations", Default: "Urgencias,Planta,UCI", Desc: "Comma-separated on-call stations in display order"},
	{Name: "oncall_backfill_schedule", Default: "30 3 * * *", Desc: "Cron spec for the nightly on-call date backfill"},

	{Name: "login_retention", Default: "8760h", Desc: "How long login records are kept (0 keeps them forever)"},
	{Name: "login_prune_schedule", Default: "0 4 * * *", Desc: "Cron spec for pruning old login records"},

	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts allowed per client IP per minute"},
	{Name: "search_synonyms", Default: "", Desc: "Extra search synonym groups, e.g. 'er|emergency room;icu|uci'"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_workflow", Default: "all", Desc: "Workflow event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, RESIDENCYHUB_* for app) and
// flags, merged with precedence flags > env > files > defaults.
//
// Values that need parsing (time zone, meeting start) are checked again in
// ValidateConfig, which aborts startup on a bad value.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RESIDENCYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		AdminEmail:    normalize.Email(appValues.String("admin_email")),
		AdminPassword: appValues.String("admin_password"),

		ProgramTimezone: appValues.String("program_timezone"),
		MeetingDuration: appValues.Duration("meeting_duration", 45*time.Minute),

		OnCallStations:         splitList(appValues.String("oncall_stations")),
		OnCallBackfillSchedule: appValues.String("oncall_backfill_schedule"),

		LoginRetention:     appValues.Duration("login_retention", 365*24*time.Hour),
		LoginPruneSchedule: appValues.String("login_prune_schedule"),
		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),
		SearchSynonyms:     appValues.String("search_synonyms"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogWorkflow: appValues.String("audit_log_workflow"),
	}

	if loc, err := time.LoadLocation(appCfg.ProgramTimezone); err == nil {
		appCfg.Location = loc
	}
	if c, err := dateutil.ParseClock(appValues.String("meeting_start")); err == nil {
		appCfg.MeetingStart = c
	} else {
		logger.Warn("invalid meeting_start, using 08:15", zap.Error(err))
		appCfg.MeetingStart = dateutil.Clock{Hour: 8, Minute: 15}
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.Location == nil {
		return fmt.Errorf("program_timezone %q is not a known IANA time zone", appCfg.ProgramTimezone)
	}
	if appCfg.MeetingDuration <= 0 {
		return fmt.Errorf("meeting_duration must be positive")
	}
	if len(appCfg.OnCallStations) == 0 {
		return fmt.Errorf("oncall_stations must name at least one station")
	}
	if err := jobs.ParseSpec(appCfg.OnCallBackfillSchedule); err != nil {
		return fmt.Errorf("oncall_backfill_schedule: %w", err)
	}
	if appCfg.LoginRetention > 0 {
		if err := jobs.ParseSpec(appCfg.LoginPruneSchedule); err != nil {
			return fmt.Errorf("login_prune_schedule: %w", err)
		}
	}
	for key, v := range map[string]string{
		"audit_log_auth":     appCfg.AuditLogAuth,
		"audit_log_admin":    appCfg.AuditLogAdmin,
		"audit_log_workflow": appCfg.AuditLogWorkflow,
	} {
		switch v {
		case "", auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret == "" {
		return fmt.Errorf("google_client_secret is required when google_client_id is set")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be set in production")
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c AppConfig) auditConfig() auditlog.Config {
	return auditlog.Config{
		Auth:     c.AuditLogAuth,
		Admin:    c.AuditLogAdmin,
		Workflow: c.AuditLogWorkflow,
	}
}
