package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

func student(id string) Principal {
	return Principal{ID: id, Role: models.RoleStudent, Level: LevelBeginner}
}

func instructor(id string) Principal {
	return Principal{ID: id, Role: models.RoleInstructor}
}

func admin(id string) Principal {
	return Principal{ID: id, Role: models.RoleAdmin}
}

func requireForbidden(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	if reason != "" {
		assert.Equal(t, reason, appErr.Message)
	}
}

func TestRoleAllowList(t *testing.T) {
	cases := []struct {
		name      string
		principal Principal
		action    Action
		allowed   bool
	}{
		{"student cannot create course", student("s1"), CourseCreate, false},
		{"instructor creates course", instructor("i1"), CourseCreate, true},
		{"admin creates course", admin("a1"), CourseCreate, true},
		{"student cannot grade", student("s1"), SubmissionGrade, false},
		{"instructor grades", instructor("i1"), SubmissionGrade, true},
		{"instructor cannot approve accounts", instructor("i1"), UserApprove, false},
		{"admin approves accounts", admin("a1"), UserApprove, true},
		{"admin cannot promote roles", admin("a1"), UserPromote, false},
		{"superadmin promotes roles", Principal{ID: "sa", Role: models.RoleSuperAdmin}, UserPromote, true},
		{"instructor cannot submit tasks", instructor("i1"), TaskSubmit, false},
		{"student submits task", student("s1"), TaskSubmit, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.principal, tc.action, Resource{})
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				requireForbidden(t, err, "")
			}
		})
	}
}

func TestOwnershipAllowsStudentDelete(t *testing.T) {
	res := Resource{ID: "sub-1", OwnerID: "s1"}

	assert.NoError(t, Authorize(student("s1"), SubmissionDelete, res))
	requireForbidden(t, Authorize(student("s2"), SubmissionDelete, res), "")
}

func TestImmutabilityPrecedesOwnership(t *testing.T) {
	reviewed := time.Now().UTC()
	res := Resource{ID: "sub-1", OwnerID: "s1", ReviewedAt: &reviewed}

	err := Authorize(student("s1"), SubmissionDelete, res)
	requireForbidden(t, err, "Cannot delete a submission that has been reviewed.")

	// Admins do not bypass the freeze either.
	err = Authorize(admin("a1"), SubmissionDelete, res)
	requireForbidden(t, err, "Cannot delete a submission that has been reviewed.")
}

func TestGradedSubmissionIsFrozenWithoutTimestamp(t *testing.T) {
	res := Resource{ID: "sub-1", OwnerID: "s1", Graded: true}

	requireForbidden(t, Authorize(student("s1"), SubmissionDelete, res), "Cannot delete a submission that has been reviewed.")
	requireForbidden(t, Authorize(instructor("i1"), SubmissionGrade, res), "Submission has already been reviewed.")
}

func TestClosedTaskRejectsSubmissions(t *testing.T) {
	res := Resource{ID: "task-1", OwnerID: "i1", Completed: true}

	requireForbidden(t, Authorize(student("s1"), TaskSubmit, res), "Task is closed and no longer accepts submissions.")
	requireForbidden(t, Authorize(instructor("i1"), TaskUpdate, res), "Cannot modify a task that has been completed.")
}

func TestSelfProtectionBeatsRole(t *testing.T) {
	res := Resource{ID: "a1", TargetRole: models.RoleAdmin}

	err := Authorize(admin("a1"), UserDelete, res)
	requireForbidden(t, err, "Cannot delete your own account.")

	err = Authorize(Principal{ID: "sa", Role: models.RoleSuperAdmin}, UserDelete, Resource{ID: "sa", TargetRole: models.RoleSuperAdmin})
	requireForbidden(t, err, "Cannot delete your own account.")
}

func TestAdminTargetsRequireSuperadmin(t *testing.T) {
	res := Resource{ID: "a2", TargetRole: models.RoleAdmin}

	requireForbidden(t, Authorize(admin("a1"), UserDelete, res), "Only a superadmin may delete an administrator account.")
	assert.NoError(t, Authorize(Principal{ID: "sa", Role: models.RoleSuperAdmin}, UserDelete, res))

	// Deleting a student remains a plain admin action.
	assert.NoError(t, Authorize(admin("a1"), UserDelete, Resource{ID: "s1", TargetRole: models.RoleStudent}))
}

func TestRoomLevelGate(t *testing.T) {
	intermediate := Principal{ID: "s1", Role: models.RoleStudent, Level: LevelIntermediate}

	assert.NoError(t, Authorize(intermediate, RoomView, Resource{ID: "r1", RoomLevel: LevelIntermediate}))
	requireForbidden(t, Authorize(intermediate, RoomView, Resource{ID: "r2", RoomLevel: LevelBeginner}), "")
	requireForbidden(t, Authorize(intermediate, MessagePost, Resource{ID: "r3", RoomLevel: LevelAdvanced}), "")

	// Non-students bypass the gate entirely.
	for _, p := range []Principal{instructor("i1"), admin("a1"), {ID: "sa", Role: models.RoleSuperAdmin}} {
		assert.NoError(t, Authorize(p, RoomView, Resource{ID: "r2", RoomLevel: LevelBeginner}))
		assert.NoError(t, Authorize(p, MessagePost, Resource{ID: "r3", RoomLevel: LevelAdvanced}))
	}
}

func TestRoomGateIsCaseSensitive(t *testing.T) {
	p := Principal{ID: "s1", Role: models.RoleStudent, Level: LevelIntermediate}
	requireForbidden(t, Authorize(p, RoomView, Resource{ID: "r1", RoomLevel: "Intermediate"}), "")
}

func TestOpenRoomAdmitsEveryone(t *testing.T) {
	assert.NoError(t, Authorize(student("s1"), MessagePost, Resource{ID: "lobby"}))
}

func TestUnknownActionDenied(t *testing.T) {
	requireForbidden(t, Authorize(admin("a1"), Action("course.publish"), Resource{}), "")
}

func TestMessageDeleteOwnerOrAdmin(t *testing.T) {
	res := Resource{ID: "m1", OwnerID: "s1"}

	assert.NoError(t, Authorize(student("s1"), MessageDelete, res))
	assert.NoError(t, Authorize(admin("a1"), MessageDelete, res))
	requireForbidden(t, Authorize(student("s2"), MessageDelete, res), "")
	requireForbidden(t, Authorize(instructor("i1"), MessageDelete, res), "")
}

func TestReminderIsOwnerOnly(t *testing.T) {
	res := Resource{ID: "rem-1", OwnerID: "s1"}

	assert.NoError(t, Authorize(student("s1"), ReminderManage, res))
	requireForbidden(t, Authorize(admin("a1"), ReminderManage, res), "")
}
