package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/middleware"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/internal/repository"
	"github.com/eduvance/trading-academy-api/internal/service"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Courses      *CourseHandler
	Tasks        *TaskHandler
	Community    *CommunityHandler
	Classes      *ClassHandler
	Reminders    *ReminderHandler
	Certificates *CertificateHandler
	Health       *HealthHandler

	TokenValidator   middleware.TokenValidator
	AuditRepo        *repository.UserRepository
	Metrics          *service.MetricsService
	CommunityEnabled bool
	CertsEnabled     bool
}

// Register wires every route group onto the engine under the API prefix.
func Register(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", middleware.Audit(h.AuditRepo, models.AuditActionSignup, "auth"), h.Auth.Signup)
		auth.POST("/login", middleware.Audit(h.AuditRepo, models.AuditActionLogin, "auth"), h.Auth.Login)
		auth.GET("/me", middleware.JWT(h.TokenValidator), h.Auth.Me)
		auth.PUT("/password", middleware.JWT(h.TokenValidator), h.Auth.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(h.TokenValidator))
	{
		users.GET("", middleware.RequireAdmin(), h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("/:id/approve", middleware.RequireAdmin(), middleware.Audit(h.AuditRepo, models.AuditActionApproval, "users"), h.Users.Approve)
		users.POST("/:id/reject", middleware.RequireAdmin(), middleware.Audit(h.AuditRepo, models.AuditActionApproval, "users"), h.Users.Reject)
		users.PUT("/:id/role", middleware.RequireRoles(models.RoleSuperAdmin), middleware.Audit(h.AuditRepo, models.AuditActionPromotion, "users"), h.Users.Promote)
		users.PUT("/:id/level", middleware.RequireAdmin(), h.Users.AssignLevel)
		users.DELETE("/:id", middleware.RequireAdmin(), middleware.Audit(h.AuditRepo, models.AuditActionDeletion, "users"), h.Users.Delete)
		if h.CertsEnabled {
			users.GET("/:id/certificates", h.Certificates.ListByUser)
		}
	}

	courses := api.Group("/courses", middleware.JWT(h.TokenValidator))
	{
		courses.GET("", h.Courses.List)
		courses.POST("", middleware.RequireStaff(), h.Courses.Create)
		courses.GET("/:id", h.Courses.Get)
		courses.PUT("/:id", middleware.RequireStaff(), h.Courses.Update)
		courses.DELETE("/:id", middleware.RequireStaff(), h.Courses.Delete)
		courses.GET("/:id/progress", h.Courses.Progress)

		courses.GET("/:id/lessons", h.Courses.ListLessons)
		courses.POST("/:id/lessons", middleware.RequireStaff(), h.Courses.CreateLesson)

		courses.GET("/:id/tasks", h.Tasks.ListByCourse)
		courses.POST("/:id/tasks", middleware.RequireStaff(), h.Tasks.Create)
	}

	lessons := api.Group("/lessons", middleware.JWT(h.TokenValidator))
	{
		lessons.PUT("/:id", middleware.RequireStaff(), h.Courses.UpdateLesson)
		lessons.DELETE("/:id", middleware.RequireStaff(), h.Courses.DeleteLesson)
		lessons.POST("/:id/complete", h.Courses.CompleteLesson)
	}

	tasks := api.Group("/tasks", middleware.JWT(h.TokenValidator))
	{
		tasks.GET("/:id", h.Tasks.Get)
		tasks.PUT("/:id", middleware.RequireStaff(), h.Tasks.Update)
		tasks.POST("/:id/close", middleware.RequireStaff(), h.Tasks.Close)
		tasks.DELETE("/:id", middleware.RequireStaff(), h.Tasks.Delete)
		tasks.POST("/:id/submissions", h.Tasks.Submit)
		tasks.GET("/:id/submissions", h.Tasks.ListSubmissions)
	}

	submissions := api.Group("/submissions", middleware.JWT(h.TokenValidator))
	{
		submissions.POST("/:id/grade", middleware.RequireStaff(), h.Tasks.Grade)
		submissions.DELETE("/:id", h.Tasks.DeleteSubmission)
	}

	if h.CommunityEnabled {
		community := api.Group("/community", middleware.JWT(h.TokenValidator))
		{
			community.GET("/rooms", h.Community.ListRooms)
			community.POST("/rooms", middleware.RequireAdmin(), h.Community.CreateRoom)
			community.GET("/rooms/:id", h.Community.GetRoom)
			community.GET("/rooms/:id/messages", h.Community.ListMessages)
			community.POST("/rooms/:id/messages", h.Community.PostMessage)
			community.DELETE("/messages/:id", h.Community.DeleteMessage)
		}
	}

	classes := api.Group("/classes", middleware.JWT(h.TokenValidator))
	{
		classes.GET("", h.Classes.List)
		classes.POST("", middleware.RequireStaff(), h.Classes.Create)
		classes.GET("/:id", h.Classes.Get)
		classes.PUT("/:id", middleware.RequireStaff(), h.Classes.Update)
		classes.DELETE("/:id", middleware.RequireStaff(), h.Classes.Delete)
	}

	reminders := api.Group("/reminders", middleware.JWT(h.TokenValidator))
	{
		reminders.GET("", h.Reminders.List)
		reminders.POST("", h.Reminders.Create)
		reminders.PUT("/:id", h.Reminders.Update)
		reminders.DELETE("/:id", h.Reminders.Delete)
	}

	if h.CertsEnabled {
		certificates := api.Group("/certificates")
		{
			// The signed download needs no session; the token is the grant.
			certificates.GET("/download", h.Certificates.Download)

			authed := certificates.Group("", middleware.JWT(h.TokenValidator))
			authed.GET("", h.Certificates.ListMine)
			authed.POST("", middleware.RequireStaff(), h.Certificates.Issue)
			authed.GET("/:id/download-url", h.Certificates.DownloadURL)
		}
	}
}
