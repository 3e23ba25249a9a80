package authz

import (
	"fmt"
	"time"

	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// Action identifies a gated operation as "<resource>.<verb>".
type Action string

const (
	CourseCreate Action = "course.create"
	CourseUpdate Action = "course.update"
	CourseDelete Action = "course.delete"

	LessonManage   Action = "lesson.manage"
	LessonComplete Action = "lesson.complete"

	TaskCreate Action = "task.create"
	TaskUpdate Action = "task.update"
	TaskClose  Action = "task.close"
	TaskSubmit Action = "task.submit"

	SubmissionGrade  Action = "submission.grade"
	SubmissionDelete Action = "submission.delete"
	SubmissionView   Action = "submission.view"

	RoomCreate    Action = "room.create"
	RoomView      Action = "room.view"
	MessagePost   Action = "message.post"
	MessageDelete Action = "message.delete"

	ClassCreate Action = "class.create"
	ClassManage Action = "class.manage"

	UserApprove Action = "user.approve"
	UserPromote Action = "user.promote"
	UserDelete  Action = "user.delete"

	CertificateIssue Action = "certificate.issue"
	CertificateView  Action = "certificate.view"

	ReminderManage Action = "reminder.manage"
)

// Principal is the authenticated actor a decision is made for. Level is the
// resolved learning level, only consulted by room-gated actions.
type Principal struct {
	ID    string
	Role  models.UserRole
	Level string
}

// Resource is a snapshot of the target's ownership and state attributes,
// loaded fresh immediately before the decision. Only the fields relevant to
// the resource type need to be populated.
type Resource struct {
	ID         string
	OwnerID    string
	ReviewedAt *time.Time
	Graded     bool
	Completed  bool
	RoomLevel  string
	TargetRole models.UserRole
}

// Authorize decides whether the principal may perform the action on the
// resource. Restrictive gates (immutability, self-protection, level access)
// are evaluated before any allowance, so an otherwise-permitted actor is
// still denied when the resource is frozen or the action targets themselves.
// Every denial carries a human-readable reason.
func Authorize(p Principal, action Action, res Resource) error {
	rules, ok := policyTable[action]
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("action %s is not permitted", action))
	}

	for _, r := range rules {
		if r.gate() {
			if reason := r.blocked(p, res); reason != "" {
				return appErrors.Clone(appErrors.ErrForbidden, reason)
			}
		}
	}

	hasAllowance := false
	for _, r := range rules {
		if r.gate() {
			continue
		}
		hasAllowance = true
		if r.allows(p, res) {
			return nil
		}
	}
	if !hasAllowance {
		// Gate-only rule sets (e.g. room access) admit everyone who passed.
		return nil
	}

	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform %s", p.Role, action))
}

// Can is a convenience wrapper returning a boolean decision.
func Can(p Principal, action Action, res Resource) bool {
	return Authorize(p, action, res) == nil
}
