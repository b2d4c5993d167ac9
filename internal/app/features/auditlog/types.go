// internal/app/features/auditlog/types.go
package auditlog

import (
	"github.com/dalemusser/residencyhub/internal/app/store/audit"
)

// listItem is an audit event with actor and target names resolved.
type listItem struct {
	audit.Event
	ActorName  string `json:"actor_name,omitempty"`
	TargetName string `json:"target_name,omitempty"`
}

// categories maps each category to its event types.
var categories = map[string][]string{
	audit.CategoryAuth: {
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedUserDisabled,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
		audit.EventPasswordChanged,
	},
	audit.CategoryAdmin: {
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUsersSynced,
		audit.EventRotationCreated,
		audit.EventRotationUpdated,
		audit.EventCurriculumImport,
		audit.EventAssignmentCreated,
		audit.EventAssignmentStatus,
		audit.EventAssignmentTutors,
		audit.EventMeetingsImported,
		audit.EventMeetingsReplaced,
		audit.EventMeetingUpdated,
		audit.EventMeetingDeleted,
		audit.EventOnCallImported,
		audit.EventOnCallDaySet,
		audit.EventOnCallBackfill,
	},
	audit.CategoryWorkflow: {
		audit.EventAssignmentTransferred,
		audit.EventPetitionCreated,
		audit.EventPetitionApproved,
		audit.EventPetitionDenied,
		audit.EventPetitionCancelled,
		audit.EventTaskLogged,
		audit.EventTaskReviewed,
	},
}

// knownEventType reports whether typ belongs to category, or to any
// category when category is empty.
func knownEventType(category, typ string) bool {
	for c, types := range categories {
		if category != "" && c != category {
			continue
		}
		for _, t := range types {
			if t == typ {
				return true
			}
		}
	}
	return false
}
