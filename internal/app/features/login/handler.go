// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/residencyhub/internal/app/system/status"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.uber.org/zap"
)

// errBadCredentials answers both unknown emails and wrong passwords.
const errBadCredentials = "invalid email or password"

type Handler struct {
	Users      *userstore.Store
	Logins     *loginstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	AllowTrust    bool // trust accounts sign in without a password (dev only)
	GoogleEnabled bool // True if Google OAuth is configured
}

func NewHandler(
	users *userstore.Store,
	logins *loginstore.Store,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	allowTrust bool,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:         users,
		Logins:        logins,
		SessionMgr:    sessionMgr,
		Limiter:       limiter,
		AuditLog:      audit,
		ErrLog:        errLog,
		Log:           logger,
		AllowTrust:    allowTrust,
		GoogleEnabled: googleEnabled,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User *auth.SessionUser `json:"user"`
}

func countAttempt(provider, result string) {
	metrics.LoginAttempts.WithLabelValues(provider, result).Inc()
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: decode body", err, err.Error())
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := validators.Struct(req); err != nil {
		h.ErrLog.Respond(w, r, "login: validate", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, req.Email, "login")
			countAttempt(models.AuthPassword, "rate_limited")
			jsonutil.Error(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	/*── look-up user by email ─────────────────────────────────────────────*/

	u, err := h.Users.GetForLogin(ctx, req.Email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
		countAttempt(models.AuthPassword, "unknown_user")
		jsonutil.Error(w, http.StatusUnauthorized, errBadCredentials)
		return
	case err != nil:
		h.ErrLog.Respond(w, r, "login: find user", err)
		return
	}

	/*── check status: disabled users cannot log in ────────────────────────*/

	if normalize.Status(u.Status) == status.Disabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, req.Email)
		countAttempt(u.AuthMethod, "disabled")
		jsonutil.Error(w, http.StatusForbidden, "your account is disabled, contact an administrator")
		return
	}

	/*── route to appropriate auth flow ─────────────────────────────────────*/

	switch normalize.AuthMethod(u.AuthMethod) {
	case models.AuthPassword:
		if !userstore.VerifyPassword(u, req.Password) {
			h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, req.Email)
			countAttempt(models.AuthPassword, "wrong_password")
			jsonutil.Error(w, http.StatusUnauthorized, errBadCredentials)
			return
		}
		h.createSession(w, r, u, models.AuthPassword)

	case models.AuthTrust:
		if !h.AllowTrust {
			countAttempt(models.AuthTrust, "trust_disabled")
			jsonutil.Error(w, http.StatusForbidden, "password-less sign-in is only available in development")
			return
		}
		h.createSession(w, r, u, models.AuthTrust)

	case models.AuthGoogle:
		if !h.GoogleEnabled {
			jsonutil.Error(w, http.StatusConflict, "Google sign-in is not configured, contact an administrator")
			return
		}
		jsonutil.Error(w, http.StatusConflict, "this account signs in with Google at /auth/google")

	default:
		jsonutil.Error(w, http.StatusConflict, "unknown authentication method, contact an administrator")
	}
}

// createSession starts the session, records the login and answers with the user.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, u *models.User, provider string) {
	if err := h.SessionMgr.Login(w, r, u.ID.Hex(), provider); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, zap.String("user_id", u.ID.Hex()))
		return
	}

	ctx := r.Context()
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, u.ID, provider); err != nil {
			h.Log.Warn("login: record login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, provider, u.Email)
	if h.Limiter != nil {
		h.Limiter.ResetEmail(u.Email)
	}
	countAttempt(provider, "success")

	jsonutil.OK(w, loginResponse{User: &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  normalize.Role(u.Role),
	}})
}
