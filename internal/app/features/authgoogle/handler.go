// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/status"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookieName = "residencyhub-oauth-state"
	stateTTL        = 10 * time.Minute

	// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	Logins     *loginstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://residency.example.org/auth/google/callback"
	Endpoint     oauth2.Endpoint
	UserInfoURL  string

	state  *securecookie.SecureCookie
	secure bool
}

// NewHandler creates a new Google OAuth handler. The state cookie is signed
// with stateKey (the session key).
func NewHandler(
	users *userstore.Store,
	logins *loginstore.Store,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	clientID, clientSecret, baseURL, stateKey string,
	secure bool,
	logger *zap.Logger,
) *Handler {
	sc := securecookie.New([]byte(stateKey), nil)
	sc.MaxAge(int(stateTTL.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Handler{
		Users:        users,
		Logins:       logins,
		Log:          logger,
		SessionMgr:   sessionMgr,
		ErrLog:       errLog,
		AuditLog:     audit,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
		state:        sc,
		secure:       secure,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// oauthState travels in a signed cookie between ServeLogin and ServeCallback.
type oauthState struct {
	State  string `json:"s"`
	Return string `json:"r,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		jsonutil.Error(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to generate OAuth state", err)
		return
	}

	st := oauthState{State: state, Return: query.Get(r, "return")}
	encoded, err := h.state.Encode(stateCookieName, st)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to sign OAuth state", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", st.Return))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Handles the OAuth callback from Google, exchanges code for tokens,           |
| fetches user info, looks up user in database, and creates session.           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check for errors from Google
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		metrics.LoginAttempts.WithLabelValues(models.AuthGoogle, "denied").Inc()
		jsonutil.Error(w, http.StatusUnauthorized, "Google sign-in was cancelled or denied")
		return
	}

	st, ok := h.readState(r)
	h.clearState(w)
	if !ok || query.Get(r, "state") != st.State {
		h.Log.Warn("invalid or expired OAuth state")
		jsonutil.Error(w, http.StatusBadRequest, "sign-in link expired, start again")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		jsonutil.Error(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	ctxTimeout, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	token, err := h.oauth2Config().Exchange(ctxTimeout, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		jsonutil.Error(w, http.StatusBadGateway, "could not complete Google sign-in")
		return
	}

	googleUser, err := h.fetchUserInfo(ctxTimeout, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		jsonutil.Error(w, http.StatusBadGateway, "could not read your Google profile")
		return
	}

	user, err := h.findUser(ctxTimeout, r, googleUser)
	switch {
	case errors.Is(err, errUserNotFound):
		h.Log.Info("Google OAuth: user not found", zap.String("email", googleUser.Email))
		h.AuditLog.LoginFailedUserNotFound(ctx, r, googleUser.Email)
		metrics.LoginAttempts.WithLabelValues(models.AuthGoogle, "unknown_user").Inc()
		jsonutil.Error(w, http.StatusForbidden, "no account is registered for this Google address")
		return
	case errors.Is(err, errUserDisabled):
		metrics.LoginAttempts.WithLabelValues(models.AuthGoogle, "disabled").Inc()
		jsonutil.Error(w, http.StatusForbidden, "your account is disabled, contact an administrator")
		return
	case errors.Is(err, errAuthMismatch):
		metrics.LoginAttempts.WithLabelValues(models.AuthGoogle, "wrong_method").Inc()
		jsonutil.Error(w, http.StatusForbidden, "this account does not use Google sign-in")
		return
	case err != nil:
		h.ErrLog.Respond(w, r, "google callback: find user", err)
		return
	}

	h.createSessionAndRedirect(w, r, user, st.Return)
}

func (h *Handler) readState(r *http.Request) (oauthState, bool) {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return oauthState{}, false
	}
	var st oauthState
	if err := h.state.Decode(stateCookieName, c.Value, &st); err != nil || st.State == "" {
		return oauthState{}, false
	}
	return st, true
}

func (h *Handler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	errUserNotFound = errors.New("user not found")
	errUserDisabled = errors.New("user disabled")
	errAuthMismatch = errors.New("auth method mismatch")
)

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchUserInfo retrieves user information from the userinfo endpoint.
func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// findUser matches a Google identity to a profile:
// 1. auth_uid = Google's user ID (already linked)
// 2. verified email on a google-auth profile, which is then linked
func (h *Handler) findUser(ctx context.Context, r *http.Request, g *googleUserInfo) (*models.User, error) {
	u, err := h.Users.GetByAuthUID(ctx, g.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		if !g.EmailVerified || g.Email == "" {
			return nil, errUserNotFound
		}
		u, err = h.Users.GetByEmail(ctx, g.Email)
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, errUserNotFound
		}
		if err != nil {
			return nil, err
		}
		if normalize.AuthMethod(u.AuthMethod) != models.AuthGoogle {
			return nil, errAuthMismatch
		}
		if err := h.Users.LinkAuthUID(ctx, u.ID, g.ID); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if normalize.Status(u.Status) == status.Disabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, u.Email)
		return nil, errUserDisabled
	}
	return u, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session creation                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// createSessionAndRedirect creates an authenticated session and redirects to the destination.
func (h *Handler) createSessionAndRedirect(w http.ResponseWriter, r *http.Request, u *models.User, returnURL string) {
	if err := h.SessionMgr.Login(w, r, u.ID.Hex(), models.AuthGoogle); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, zap.String("user_id", u.ID.Hex()))
		return
	}

	if h.Logins != nil {
		if err := h.Logins.CreateFrom(r.Context(), r, u.ID, models.AuthGoogle); err != nil {
			h.Log.Warn("failed to record login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}
	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, models.AuthGoogle, u.Email)
	metrics.LoginAttempts.WithLabelValues(models.AuthGoogle, "success").Inc()

	h.Log.Info("user logged in via Google OAuth", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/api/me"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
