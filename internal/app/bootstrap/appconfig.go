// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
)

// AppConfig holds service-specific configuration for ResidencyHub.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // secret for signing session cookies (must be strong in production)
	SessionName   string        // cookie name (default: residencyhub-session)
	SessionDomain string        // cookie domain (blank means current host)
	SessionMaxAge time.Duration // cookie lifetime

	// Base URL for OAuth redirects, e.g. "https://residency.example.org"
	BaseURL string

	// Google OAuth. Login with Google is mounted only when ClientID is set.
	GoogleClientID     string
	GoogleClientSecret string

	// Bootstrap admin, created or promoted on startup when set.
	AdminEmail    string
	AdminPassword string

	// Program calendar
	ProgramTimezone string
	Location        *time.Location // loaded from ProgramTimezone
	MeetingStart    dateutil.Clock // local start time of every morning meeting
	MeetingDuration time.Duration

	// On-call roster
	OnCallStations         []string
	OnCallBackfillSchedule string // cron spec, program time zone

	// Login history retention; zero keeps records forever.
	LoginRetention     time.Duration
	LoginPruneSchedule string

	LoginRatePerMinute int
	SearchSynonyms     string // extra synonym groups, "a|b|c;d|e"

	// Audit destinations per category: all, db, log or off
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogWorkflow string
}
