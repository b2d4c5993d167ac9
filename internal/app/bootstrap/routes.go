// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	assignmentsfeature "github.com/dalemusser/residencyhub/internal/app/features/assignments"
	auditlogfeature "github.com/dalemusser/residencyhub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/residencyhub/internal/app/features/authgoogle"
	dashboardfeature "github.com/dalemusser/residencyhub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/residencyhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/residencyhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/residencyhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/residencyhub/internal/app/features/logout"
	meetingsfeature "github.com/dalemusser/residencyhub/internal/app/features/meetings"
	oncallfeature "github.com/dalemusser/residencyhub/internal/app/features/oncall"
	petitionsfeature "github.com/dalemusser/residencyhub/internal/app/features/petitions"
	rotationsfeature "github.com/dalemusser/residencyhub/internal/app/features/rotations"
	tasksfeature "github.com/dalemusser/residencyhub/internal/app/features/tasks"
	userinfofeature "github.com/dalemusser/residencyhub/internal/app/features/userinfo"
	usersfeature "github.com/dalemusser/residencyhub/internal/app/features/users"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	meetingstore "github.com/dalemusser/residencyhub/internal/app/store/meetings"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	rotationnodestore "github.com/dalemusser/residencyhub/internal/app/store/rotationnodes"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/residencyhub/internal/app/system/search"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Version is reported by /health. Release builds set it with
// -ldflags "-X github.com/dalemusser/residencyhub/internal/app/bootstrap.Version=...".
var Version = "dev"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// ResidencyHub is a JSON API: every feature is mounted under /api except
// the session endpoints (/login, /logout, /auth/google) and the operational
// ones (/health, /metrics).
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	loc := appCfg.Location

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so role changes and disabled accounts
	// take effect immediately.
	sessionMgr.SetFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	audits := auditlog.New(audit.New(db), logger, appCfg.auditConfig())
	matcher := search.NewWithExtra(appCfg.SearchSynonyms)

	// Stores
	users := userstore.NewWithMatcher(db, matcher)
	logins := loginstore.New(db)
	rotations := rotationstore.NewWithMatcher(db, matcher)
	nodes := rotationnodestore.New(db, logger)
	assignments := assignmentstore.New(db, logger)
	petitions := petitionstore.New(db, logger)
	tasks := taskstore.New(db, logger)
	meetings := meetingstore.NewWithMatcher(db, loc, matcher, logger)
	onCall := oncallstore.New(db, loc, appCfg.OnCallStations, logger)

	r := chi.NewRouter()

	// Request IDs tie error log lines to the response a client saw.
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(metrics.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Operational endpoints
	r.Handle("/metrics", metrics.Handler())
	healthHandler := healthfeature.NewHandler(deps.MongoClient, Version, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	googleEnabled := appCfg.GoogleClientID != ""
	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute)
	loginHandler := loginfeature.NewHandler(users, logins, sessionMgr, limiter, audits, errLog, coreCfg.Env == "dev", googleEnabled, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, audits, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	if googleEnabled {
		googleHandler := authgooglefeature.NewHandler(users, logins, sessionMgr, errLog, audits,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.SessionKey, secure, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	} else {
		logger.Info("google_client_id not set; Google sign-in disabled")
	}

	// API
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler(users, errLog, logger))

	r.Route("/api", func(api chi.Router) {
		usersHandler := usersfeature.NewHandler(users, audits, errLog, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

		rotationsHandler := rotationsfeature.NewHandler(rotations, nodes, audits, errLog, logger)
		api.Mount("/rotations", rotationsfeature.Routes(rotationsHandler, sessionMgr))

		assignmentsHandler := assignmentsfeature.NewHandler(assignments, users, rotations, loc, audits, errLog, logger)
		api.Mount("/assignments", assignmentsfeature.Routes(assignmentsHandler, sessionMgr))

		petitionsHandler := petitionsfeature.NewHandler(petitions, audits, errLog, logger)
		api.Mount("/petitions", petitionsfeature.Routes(petitionsHandler, sessionMgr))

		tasksHandler := tasksfeature.NewHandler(tasks, assignments, rotations, loc, audits, errLog, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))
		api.Mount("/progress", tasksfeature.ProgressRoutes(tasksHandler, sessionMgr))

		meetingsHandler := meetingsfeature.NewHandler(meetings, appCfg.MeetingStart, appCfg.MeetingDuration, audits, errLog, logger)
		api.Mount("/meetings", meetingsfeature.Routes(meetingsHandler, sessionMgr))

		onCallHandler := oncallfeature.NewHandler(onCall, audits, errLog, logger)
		api.Mount("/oncall", oncallfeature.Routes(onCallHandler, sessionMgr))

		dashboardHandler := dashboardfeature.NewHandler(db, onCall, meetings, errLog, logger)
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

		auditHandler := auditlogfeature.NewHandler(audit.New(db), users, loc, errLog, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))
	})

	return r, nil
}

// echoRequestID returns the request's ID in the X-Request-Id response header.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
