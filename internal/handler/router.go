package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router groups the handlers and shared middleware for route registration.
type Router struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Institutions   *InstitutionHandler
	Courses        *CourseHandler
	Professors     *ProfessorHandler
	Subjects       *SubjectHandler
	Reviews        *ReviewHandler
	Comments       *CommentHandler
	ChangeRequests *ChangeRequestHandler
	Exports        *ExportHandler

	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Moderator    gin.HandlerFunc
}

// Register mounts all API routes under the given prefix. Public catalog and
// review reads take OptionalAuth so moderators and authors see their pending
// entries; every mutation requires a session.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", rt.Auth.Register)
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/refresh", rt.Auth.Refresh)
		auth.POST("/logout", rt.RequireAuth, rt.Auth.Logout)
		auth.GET("/me", rt.RequireAuth, rt.Auth.Me)
	}

	users := api.Group("/users", rt.RequireAuth)
	{
		users.GET("", rt.Users.List)
		users.GET("/:id", rt.Users.Get)
		users.PATCH("/:id", rt.Users.Update)
	}

	institutions := api.Group("/institutions")
	{
		institutions.GET("", rt.Institutions.List)
		institutions.GET("/:id", rt.Institutions.Get)
		institutions.POST("", rt.RequireAuth, rt.Moderator, rt.Institutions.Create)
		institutions.PATCH("/:id", rt.RequireAuth, rt.Moderator, rt.Institutions.Update)
		institutions.DELETE("/:id", rt.RequireAuth, rt.Moderator, rt.Institutions.Delete)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", rt.Courses.List)
		courses.GET("/:id", rt.Courses.Get)
		courses.POST("", rt.RequireAuth, rt.Moderator, rt.Courses.Create)
		courses.PATCH("/:id", rt.RequireAuth, rt.Moderator, rt.Courses.Update)
		courses.DELETE("/:id", rt.RequireAuth, rt.Moderator, rt.Courses.Delete)
	}

	professors := api.Group("/professors")
	{
		professors.GET("", rt.Professors.List)
		professors.GET("/:id", rt.Professors.Get)
		professors.POST("", rt.RequireAuth, rt.Moderator, rt.Professors.Create)
		professors.PATCH("/:id", rt.RequireAuth, rt.Moderator, rt.Professors.Update)
		professors.DELETE("/:id", rt.RequireAuth, rt.Moderator, rt.Professors.Delete)
	}

	subjects := api.Group("/subjects")
	{
		subjects.GET("", rt.Subjects.List)
		subjects.GET("/:id", rt.Subjects.Get)
		subjects.POST("", rt.RequireAuth, rt.Moderator, rt.Subjects.Create)
		subjects.PATCH("/:id", rt.RequireAuth, rt.Moderator, rt.Subjects.Update)
		subjects.DELETE("/:id", rt.RequireAuth, rt.Moderator, rt.Subjects.Delete)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("", rt.OptionalAuth, rt.Reviews.List)
		reviews.GET("/metrics", rt.Reviews.Metrics)
		reviews.GET("/:id", rt.OptionalAuth, rt.Reviews.Get)
		reviews.GET("/:id/comments", rt.Comments.ListByReview)
		reviews.POST("", rt.RequireAuth, rt.Reviews.Create)
		reviews.PATCH("/:id", rt.RequireAuth, rt.Reviews.Update)
		reviews.DELETE("/:id", rt.RequireAuth, rt.Reviews.Delete)
	}

	comments := api.Group("/comments", rt.RequireAuth)
	{
		comments.POST("", rt.Comments.Create)
		comments.PATCH("/:id", rt.Comments.Update)
		comments.DELETE("/:id", rt.Comments.Delete)
	}

	changeRequests := api.Group("/change-requests", rt.RequireAuth)
	{
		changeRequests.POST("", rt.ChangeRequests.Create)
		changeRequests.GET("", rt.ChangeRequests.List)
		changeRequests.GET("/:id", rt.ChangeRequests.Get)
		changeRequests.POST("/:id/approve", rt.Moderator, rt.ChangeRequests.Approve)
		changeRequests.POST("/:id/reject", rt.Moderator, rt.ChangeRequests.Reject)
	}

	exports := api.Group("/exports", rt.RequireAuth, rt.Moderator)
	{
		exports.GET("/pending-reviews", rt.Exports.PendingReviews)
		exports.GET("/pending-change-requests", rt.Exports.PendingChangeRequests)
	}
}

// Health responds to liveness probes.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
