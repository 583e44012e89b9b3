package routes

import (
	"github.com/BROWN1213/picknic/internal/api/handlers"
	"github.com/BROWN1213/picknic/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

type Router struct {
	engine  *gin.Engine
	polls   *handlers.PollHandler
	users   *handlers.UserHandler
	ranking *handlers.RankingHandler
	admin   *handlers.AdminHandler
	auth    *middleware.AuthMiddleware
}

func NewRouter(
	polls *handlers.PollHandler,
	users *handlers.UserHandler,
	ranking *handlers.RankingHandler,
	admin *handlers.AdminHandler,
	jwtSecret string,
) *Router {
	return &Router{
		engine:  gin.New(),
		polls:   polls,
		users:   users,
		ranking: ranking,
		admin:   admin,
		auth:    middleware.NewAuthMiddleware(jwtSecret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestLogger())
	r.engine.Use(middleware.CORS())

	api := r.engine.Group("/api/v1")

	requireAuth := r.auth.RequireAuth()
	r.users.RegisterRoutes(api, requireAuth)

	protected := api.Group("")
	protected.Use(requireAuth)
	r.polls.RegisterRoutes(protected)
	r.ranking.RegisterRoutes(protected)
	r.admin.RegisterRoutes(protected)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
