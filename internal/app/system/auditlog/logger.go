// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	"github.com/dalemusser/residencyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration, one destination per category.
// Empty values mean All.
type Config struct {
	Auth     string
	Admin    string
	Workflow string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) destination(category string) string {
	var setting string
	switch category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryWorkflow:
		setting = l.config.Workflow
	}
	if setting == "" {
		return All
	}
	return setting
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.destination(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// record fills the request context fields and logs a successful event.
// r may be nil for events raised by background jobs.
func (l *Logger) record(ctx context.Context, r *http.Request, category, eventType string, actor, user, subject *primitive.ObjectID, details map[string]string) {
	ev := audit.Event{
		Category:  category,
		EventType: eventType,
		ActorID:   actor,
		UserID:    user,
		SubjectID: subject,
		Success:   true,
		Details:   details,
	}
	if r != nil {
		ev.IP = ratelimit.ClientIP(r)
		ev.UserAgent = r.UserAgent()
	}
	l.Log(ctx, ev)
}

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider, email string) {
	l.record(ctx, r, audit.CategoryAuth, audit.EventLoginSuccess, nil, &userID, nil, map[string]string{
		"provider": provider,
		"email":    email,
	})
}

func (l *Logger) loginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, reason string, details map[string]string) {
	if l == nil {
		return
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details:       details,
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.loginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, "user not found",
		map[string]string{"attempted_email": attemptedEmail})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.loginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &userID, "wrong password",
		map[string]string{"email": email})
}

// LoginFailedUserDisabled logs a failed login due to disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.loginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &userID, "user disabled",
		map[string]string{"email": email})
}

// LoginFailedRateLimit logs a failed login due to rate limiting.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	l.loginFailed(ctx, r, audit.EventLoginFailedRateLimit, nil, "rate limit exceeded",
		map[string]string{"email": email, "limit_type": limitType})
}

// Logout logs a user logout. Accepts the string ID from SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.record(ctx, r, audit.CategoryAuth, audit.EventLogout, nil, userID, nil, nil)
}

// PasswordChanged logs a password set by an admin.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	l.record(ctx, r, audit.CategoryAuth, audit.EventPasswordChanged, &actorID, &userID, nil, nil)
}

// --- Admin Events ---

// UserCreated logs creation of a profile.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, u models.User) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventUserCreated, &actorID, ptr(u.ID), nil, map[string]string{
		"role":        u.Role,
		"auth_method": u.AuthMethod,
	})
}

// UserUpdated logs a profile edit.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, fieldsChanged string) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventUserUpdated, &actorID, &userID, nil, map[string]string{
		"fields_changed": fieldsChanged,
	})
}

// UsersSynced logs an identity-list sync.
func (l *Logger) UsersSynced(ctx context.Context, r *http.Request, actorID primitive.ObjectID, created, updated, unchanged, failed int) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventUsersSynced, &actorID, nil, nil, map[string]string{
		"created":   strconv.Itoa(created),
		"updated":   strconv.Itoa(updated),
		"unchanged": strconv.Itoa(unchanged),
		"failed":    strconv.Itoa(failed),
	})
}

// RotationCreated logs a new rotation.
func (l *Logger) RotationCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, rot models.Rotation) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventRotationCreated, &actorID, nil, ptr(rot.ID), map[string]string{
		"name": rot.Name,
	})
}

// RotationUpdated logs a rotation edit.
func (l *Logger) RotationUpdated(ctx context.Context, r *http.Request, actorID, rotationID primitive.ObjectID, fieldsChanged string) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventRotationUpdated, &actorID, nil, &rotationID, map[string]string{
		"fields_changed": fieldsChanged,
	})
}

// CurriculumImported logs a curriculum CSV import.
func (l *Logger) CurriculumImported(ctx context.Context, r *http.Request, actorID, rotationID primitive.ObjectID, nodes int, created bool) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventCurriculumImport, &actorID, nil, &rotationID, map[string]string{
		"nodes":            strconv.Itoa(nodes),
		"rotation_created": strconv.FormatBool(created),
	})
}

// AssignmentCreated logs a resident being assigned to a rotation.
func (l *Logger) AssignmentCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, a models.Assignment) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventAssignmentCreated, &actorID, ptr(a.ResidentID), ptr(a.ID), map[string]string{
		"rotation_id": a.RotationID.Hex(),
		"status":      a.Status,
	})
}

// AssignmentStatusChanged logs a lifecycle transition.
func (l *Logger) AssignmentStatusChanged(ctx context.Context, r *http.Request, actorID primitive.ObjectID, a models.Assignment, from string) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventAssignmentStatus, &actorID, ptr(a.ResidentID), ptr(a.ID), map[string]string{
		"from": from,
		"to":   a.Status,
	})
}

// AssignmentTutorsChanged logs a change of supervising tutors.
func (l *Logger) AssignmentTutorsChanged(ctx context.Context, r *http.Request, actorID primitive.ObjectID, a models.Assignment) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventAssignmentTutors, &actorID, ptr(a.ResidentID), ptr(a.ID), map[string]string{
		"tutors": strconv.Itoa(len(a.TutorIDs)),
	})
}

// MeetingsImported logs a morning-meeting roster import for a month.
func (l *Logger) MeetingsImported(ctx context.Context, r *http.Request, actorID primitive.ObjectID, month string, count int) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventMeetingsImported, &actorID, nil, nil, map[string]string{
		"month": month,
		"count": strconv.Itoa(count),
	})
}

// MeetingsReplaced logs a JSON replacement of a month's meetings.
func (l *Logger) MeetingsReplaced(ctx context.Context, r *http.Request, actorID primitive.ObjectID, month string, count int) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventMeetingsReplaced, &actorID, nil, nil, map[string]string{
		"month": month,
		"count": strconv.Itoa(count),
	})
}

// MeetingUpdated logs an edit to one meeting.
func (l *Logger) MeetingUpdated(ctx context.Context, r *http.Request, actorID, meetingID primitive.ObjectID) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventMeetingUpdated, &actorID, nil, &meetingID, nil)
}

// MeetingDeleted logs removal of one meeting.
func (l *Logger) MeetingDeleted(ctx context.Context, r *http.Request, actorID, meetingID primitive.ObjectID) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventMeetingDeleted, &actorID, nil, &meetingID, nil)
}

// OnCallImported logs an on-call roster import.
func (l *Logger) OnCallImported(ctx context.Context, r *http.Request, actorID primitive.ObjectID, days, shifts, unresolved int) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventOnCallImported, &actorID, nil, nil, map[string]string{
		"days":       strconv.Itoa(days),
		"shifts":     strconv.Itoa(shifts),
		"unresolved": strconv.Itoa(unresolved),
	})
}

// OnCallDaySet logs a manual edit of one day's roster.
func (l *Logger) OnCallDaySet(ctx context.Context, r *http.Request, actorID primitive.ObjectID, dateKey string) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventOnCallDaySet, &actorID, nil, nil, map[string]string{
		"date": dateKey,
	})
}

// OnCallBackfill logs a date-shift backfill. actorID is nil for scheduled runs.
func (l *Logger) OnCallBackfill(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, scanned, fixed, merged int) {
	l.record(ctx, r, audit.CategoryAdmin, audit.EventOnCallBackfill, actorID, nil, nil, map[string]string{
		"scanned": strconv.Itoa(scanned),
		"fixed":   strconv.Itoa(fixed),
		"merged":  strconv.Itoa(merged),
	})
}

// --- Workflow Events ---

// AssignmentTransferred logs a resident moving from one rotation to another.
func (l *Logger) AssignmentTransferred(ctx context.Context, r *http.Request, actorID primitive.ObjectID, residentID primitive.ObjectID, finished *primitive.ObjectID, activated models.Assignment) {
	l.record(ctx, r, audit.CategoryWorkflow, audit.EventAssignmentTransferred, &actorID, &residentID, ptr(activated.ID), map[string]string{
		"finished_assignment_id": hexOrEmpty(finished),
		"to_rotation_id":         activated.RotationID.Hex(),
	})
}

// PetitionCreated logs a resident filing a petition.
func (l *Logger) PetitionCreated(ctx context.Context, r *http.Request, p models.RotationPetition) {
	l.record(ctx, r, audit.CategoryWorkflow, audit.EventPetitionCreated, ptr(p.ResidentID), ptr(p.ResidentID), ptr(p.ID), map[string]string{
		"type":        p.Type,
		"rotation_id": p.RotationID.Hex(),
	})
}

// PetitionResolved logs an approval, denial or cancellation according to p.Status.
func (l *Logger) PetitionResolved(ctx context.Context, r *http.Request, actorID primitive.ObjectID, p models.RotationPetition) {
	eventType := audit.EventPetitionApproved
	switch p.Status {
	case models.PetitionDenied:
		eventType = audit.EventPetitionDenied
	case models.PetitionCancelled:
		eventType = audit.EventPetitionCancelled
	}
	l.record(ctx, r, audit.CategoryWorkflow, eventType, &actorID, ptr(p.ResidentID), ptr(p.ID), map[string]string{
		"type":        p.Type,
		"rotation_id": p.RotationID.Hex(),
	})
}

// TaskLogged logs a resident recording completed work.
func (l *Logger) TaskLogged(ctx context.Context, r *http.Request, t models.TaskDoc) {
	l.record(ctx, r, audit.CategoryWorkflow, audit.EventTaskLogged, ptr(t.ResidentID), ptr(t.ResidentID), ptr(t.ID), map[string]string{
		"node_id": t.NodeID.Hex(),
		"count":   strconv.Itoa(t.Count),
	})
}

// TaskReviewed logs a tutor's decision on a task.
func (l *Logger) TaskReviewed(ctx context.Context, r *http.Request, actorID primitive.ObjectID, t models.TaskDoc) {
	l.record(ctx, r, audit.CategoryWorkflow, audit.EventTaskReviewed, &actorID, ptr(t.ResidentID), ptr(t.ID), map[string]string{
		"status": t.Status,
	})
}
