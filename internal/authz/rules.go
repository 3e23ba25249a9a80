package authz

import (
	"fmt"

	"github.com/eduvance/trading-academy-api/internal/models"
)

type ruleKind int

const (
	// Allowances: any single match grants the action.
	ruleRoleAllow ruleKind = iota
	ruleOwnerOnly

	// Gates: evaluated first, a violation denies regardless of allowances.
	ruleReviewedFrozen
	ruleTaskClosed
	ruleLevelGate
	ruleSelfProtect
	ruleAdminTarget
)

type rule struct {
	kind   ruleKind
	roles  []models.UserRole
	reason string
}

func allowRoles(roles ...models.UserRole) rule {
	return rule{kind: ruleRoleAllow, roles: roles}
}

func allowOwner() rule {
	return rule{kind: ruleOwnerOnly}
}

func reviewedFrozen(reason string) rule {
	return rule{kind: ruleReviewedFrozen, reason: reason}
}

func taskClosed(reason string) rule {
	return rule{kind: ruleTaskClosed, reason: reason}
}

func levelGate() rule {
	return rule{kind: ruleLevelGate}
}

func selfProtect(reason string) rule {
	return rule{kind: ruleSelfProtect, reason: reason}
}

func adminTarget(reason string) rule {
	return rule{kind: ruleAdminTarget, reason: reason}
}

func (r rule) gate() bool {
	switch r.kind {
	case ruleReviewedFrozen, ruleTaskClosed, ruleLevelGate, ruleSelfProtect, ruleAdminTarget:
		return true
	default:
		return false
	}
}

// blocked returns a denial reason when a gate rule is violated, "" otherwise.
func (r rule) blocked(p Principal, res Resource) string {
	switch r.kind {
	case ruleReviewedFrozen:
		if res.ReviewedAt != nil || res.Graded {
			return r.reason
		}
	case ruleTaskClosed:
		if res.Completed {
			return r.reason
		}
	case ruleLevelGate:
		if !CanAccessRoom(p.Role, p.Level, res.RoomLevel) {
			return fmt.Sprintf("room requires learning level %q", res.RoomLevel)
		}
	case ruleSelfProtect:
		if res.ID != "" && res.ID == p.ID {
			return r.reason
		}
	case ruleAdminTarget:
		if (res.TargetRole == models.RoleAdmin || res.TargetRole == models.RoleSuperAdmin) && p.Role != models.RoleSuperAdmin {
			return r.reason
		}
	}
	return ""
}

// allows reports whether an allowance rule grants the action.
func (r rule) allows(p Principal, res Resource) bool {
	switch r.kind {
	case ruleRoleAllow:
		for _, role := range r.roles {
			if p.Role == role {
				return true
			}
		}
	case ruleOwnerOnly:
		return res.OwnerID != "" && res.OwnerID == p.ID
	}
	return false
}

// policyTable is the single declarative source of truth for every gated
// operation. Handlers and services never hand-roll role checks.
var policyTable = map[Action][]rule{
	CourseCreate: {
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},
	CourseUpdate: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	CourseDelete: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},

	LessonManage: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	LessonComplete: {
		allowRoles(models.RoleStudent),
	},

	TaskCreate: {
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},
	TaskUpdate: {
		taskClosed("Cannot modify a task that has been completed."),
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	TaskClose: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	TaskSubmit: {
		taskClosed("Task is closed and no longer accepts submissions."),
		allowRoles(models.RoleStudent),
	},

	SubmissionGrade: {
		reviewedFrozen("Submission has already been reviewed."),
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},
	SubmissionDelete: {
		reviewedFrozen("Cannot delete a submission that has been reviewed."),
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	SubmissionView: {
		allowOwner(),
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},

	RoomCreate: {
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	RoomView: {
		levelGate(),
	},
	MessagePost: {
		levelGate(),
	},
	MessageDelete: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},

	ClassCreate: {
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},
	ClassManage: {
		allowOwner(),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},

	UserApprove: {
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},
	UserPromote: {
		allowRoles(models.RoleSuperAdmin),
	},
	UserDelete: {
		selfProtect("Cannot delete your own account."),
		adminTarget("Only a superadmin may delete an administrator account."),
		allowRoles(models.RoleAdmin, models.RoleSuperAdmin),
	},

	CertificateIssue: {
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},
	CertificateView: {
		allowOwner(),
		allowRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
	},

	ReminderManage: {
		allowOwner(),
	},
}
