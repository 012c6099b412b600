package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "dzemat/internal/api/context"
	"dzemat/internal/api/handlers"
	"dzemat/internal/api/middleware"
	"dzemat/internal/engine/features"
)

type Dependencies struct {
	AuthHandler        *handlers.AuthHandler
	PlatformHandler    *handlers.PlatformHandler
	WorkGroupHandler   *handlers.WorkGroupHandler
	TaskHandler        *handlers.TaskHandler
	ProposalHandler    *handlers.ProposalHandler
	UserHandler        *handlers.UserHandler
	IdentityMiddleware *middleware.IdentityMiddleware
	FeatureMiddleware  *middleware.FeatureMiddleware
	RateLimiter        *middleware.RateLimiter
	LoginPerMinute     int
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()

	identity := deps.IdentityMiddleware.Handle
	auth := middleware.RequireAuth
	admin := middleware.RequireAdmin
	tasks := deps.FeatureMiddleware.Require(features.ModuleTasks)
	activityLog := deps.FeatureMiddleware.Require(features.ModuleActivityLog)
	loginLimit := middleware.RateLimit(deps.RateLimiter, "login", deps.LoginPerMinute)

	router.GET("/health", wrap(deps.PlatformHandler.Health))

	// Authentication
	ah := deps.AuthHandler
	router.POST("/api/auth/login", chain(ah.Login, loginLimit, identity))
	router.POST("/api/auth/superadmin/login", chain(ah.SuperAdminLogin, loginLimit, identity))
	router.POST("/api/auth/token", chain(ah.Token, loginLimit))
	router.POST("/api/auth/logout", chain(ah.Logout, identity))
	router.GET("/api/auth/session", chain(ah.Session, identity))

	// Tenant and subscription
	ph := deps.PlatformHandler
	router.GET("/api/tenant/current", chain(ph.CurrentTenant, identity))
	router.GET("/api/tenant/qr", chain(ph.SignInQR, identity, admin))
	router.GET("/api/subscription", chain(ph.Subscription, identity, auth))
	router.GET("/api/subscription/plans", chain(ph.Plans, identity, auth))
	router.GET("/api/activities", chain(ph.Activities, identity, admin, activityLog))

	// Work groups
	wh := deps.WorkGroupHandler
	router.GET("/api/work-groups", chain(wh.List, identity, tasks))
	router.POST("/api/work-groups", chain(wh.Create, identity, admin, tasks))
	router.GET("/api/work-groups/:id", chain(wh.Get, identity, tasks))
	router.PUT("/api/work-groups/:id", chain(wh.Update, identity, tasks))
	router.DELETE("/api/work-groups/:id", chain(wh.Delete, identity, admin, tasks))
	router.POST("/api/work-groups/:id/archive", chain(wh.Archive, identity, admin, tasks))
	router.GET("/api/work-groups/:id/members", chain(wh.Members, identity, tasks))
	router.POST("/api/work-groups/:id/members", chain(wh.AddMember, identity, tasks))
	router.DELETE("/api/work-groups/:id/members/:userId", chain(wh.RemoveMember, identity, tasks))
	router.PUT("/api/work-groups/:id/members/:userId/moderator", chain(wh.SetModerator, identity, admin, tasks))
	router.GET("/api/work-groups/:id/moderators", chain(wh.Moderators, identity, tasks))
	router.GET("/api/work-groups/:id/tasks", chain(wh.Tasks, identity, tasks))
	router.GET("/api/users/:id/work-groups", chain(wh.UserGroups, identity, tasks))

	// Users
	uh := deps.UserHandler
	router.GET("/api/users", chain(uh.List, identity, auth))
	router.GET("/api/users/:id", chain(uh.Get, identity, auth))
	router.GET("/api/users/:id/points", chain(uh.Points, identity, auth))

	// Access requests
	router.GET("/api/access-requests", chain(wh.ListAccessRequests, identity, tasks))
	router.POST("/api/access-requests", chain(wh.RequestAccess, identity, tasks))
	router.GET("/api/access-requests/my", chain(wh.MyAccessRequests, identity, tasks))
	router.PUT("/api/access-requests/:id", chain(wh.DecideAccessRequest, identity, tasks))

	// Tasks
	th := deps.TaskHandler
	router.POST("/api/tasks", chain(th.Create, identity, tasks))
	// GET /api/tasks/dashboard and /api/tasks/admin-archive share the :id
	// segment with task lookups; the handler dispatches on the value.
	router.GET("/api/tasks/:id", chain(th.Get, identity, tasks))
	router.PUT("/api/tasks/:id", chain(th.Update, identity, tasks))
	router.DELETE("/api/tasks/:id", chain(th.Delete, identity, tasks))
	router.PATCH("/api/tasks/:id/move", chain(th.Move, identity, tasks))
	router.GET("/api/tasks/:id/comments", chain(th.Comments, identity, tasks))
	router.POST("/api/tasks/:id/comments", chain(th.AddComment, identity, tasks))
	router.DELETE("/api/comments/:id", chain(th.DeleteComment, identity, tasks))

	// Proposals
	prh := deps.ProposalHandler
	router.GET("/api/proposals", chain(prh.List, identity, auth))
	router.POST("/api/proposals", chain(prh.Create, identity, auth))
	router.GET("/api/proposals/:id", chain(prh.Get, identity, auth))
	router.PATCH("/api/proposals/:id", chain(prh.Update, identity, auth))
	router.POST("/api/proposals/:id/approve", chain(prh.Approve, identity, auth))
	router.POST("/api/proposals/:id/reject", chain(prh.Reject, identity, auth))

	return middleware.RequestLogger(router)
}

// chain applies middlewares in order, outermost first.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap injects the route params into the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
