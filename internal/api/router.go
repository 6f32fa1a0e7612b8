package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/app"
	iauth "github.com/mkarran/accessgate/internal/auth"
	"github.com/mkarran/accessgate/internal/handlers"
	"github.com/mkarran/accessgate/internal/middleware"
	"github.com/mkarran/accessgate/internal/services"
)

// Dependencies bundles the shared services the router needs.
type Dependencies struct {
	DB        *gorm.DB
	Config    *app.Config
	JWT       *iauth.JWTService
	Sessions  *iauth.SessionService
	Snapshots *services.SnapshotService
	Users     *services.UserService
	Roles     *services.RoleService
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("snapshot service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	if deps.Roles == nil {
		return nil, fmt.Errorf("role service must be provided")
	}

	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(deps.DB))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Snapshots, deps.Sessions)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	// Access checks and navigation
	accessHandler := handlers.NewAccessHandler(deps.Snapshots)
	api.POST("/access/check", accessHandler.Check)
	api.GET("/access/me", accessHandler.Me)

	navigationHandler := handlers.NewNavigationHandler(deps.Snapshots)
	api.GET("/navigation", navigationHandler.Tree)

	// Users
	userHandler := handlers.NewUserHandler(deps.Users)
	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(deps.Snapshots, "user.read"), userHandler.List)
		users.GET("/:id", middleware.RequirePermission(deps.Snapshots, "user.read"), userHandler.Get)
		users.POST("", middleware.RequirePermission(deps.Snapshots, "user.create"), userHandler.Create)
		users.PATCH("/:id", middleware.RequirePermission(deps.Snapshots, "user.update"), userHandler.Update)
		users.DELETE("/:id", middleware.RequirePermission(deps.Snapshots, "user.delete"), userHandler.Delete)
		users.POST("/:id/roles", middleware.RequirePermission(deps.Snapshots, "role.assign"), userHandler.SetRoles)
		users.POST("/:id/permissions", middleware.RequirePermission(deps.Snapshots, "role.assign"), userHandler.SetPermissions)
	}

	// Roles and permissions
	roleHandler := handlers.NewRoleHandler(deps.Roles)
	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(deps.Snapshots, "role.read"), roleHandler.List)
		roles.GET("/:id", middleware.RequirePermission(deps.Snapshots, "role.read"), roleHandler.Get)
		roles.POST("", middleware.RequirePermission(deps.Snapshots, "role.create"), roleHandler.Create)
		roles.PATCH("/:id", middleware.RequirePermission(deps.Snapshots, "role.update"), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(deps.Snapshots, "role.delete"), roleHandler.Delete)
		roles.POST("/:id/permissions", middleware.RequirePermission(deps.Snapshots, "role.update"), roleHandler.SetPermissions)
	}

	api.GET("/permissions", middleware.RequirePermission(deps.Snapshots, "role.read"), roleHandler.ListPermissions)
	api.GET("/permissions/registry", middleware.RequirePermission(deps.Snapshots, "role.read"), roleHandler.Registry)

	return r, nil
}
