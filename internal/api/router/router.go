package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/handler"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/middleware"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/redis"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// Setup builds the gin engine.
func Setup(cfg *config.Config, h *handler.Handler, auth middleware.Authenticator, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.IsProduction(), logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	r.GET("/health", healthHandler(cfg, db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	admins := middleware.RoleAuth(model.RoleSuperAdmin, model.RoleDepartmentAdmin)
	superAdmin := middleware.RoleAuth(model.RoleSuperAdmin)
	authed := middleware.JWTAuth(auth)
	optional := middleware.OptionalAuth(auth)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.GET("/profile", authed, h.Auth.GetProfile)
			authGroup.PUT("/profile", authed, h.Auth.UpdateProfile)
			authGroup.PUT("/change-password", authed, h.Auth.ChangePassword)
			authGroup.POST("/logout", authed, h.Auth.Logout)
		}

		// Static segments are registered before /:id.
		locations := api.Group("/locations")
		{
			locations.GET("", optional, h.Location.List)
			locations.GET("/stats", h.Location.Stats)
			locations.GET("/department/:department", h.Location.ByDepartment)
			locations.GET("/managed", authed, admins, h.Location.Managed)
			locations.GET("/export", authed, superAdmin, h.Export.ExportLocations)
			locations.GET("/:id", h.Location.GetByID)
			locations.POST("", authed, admins, h.Location.Create)
			locations.PUT("/:id", authed, admins, h.Location.Update)
			locations.DELETE("/:id", authed, admins, h.Location.Delete)
			locations.POST("/:id/upload", authed, admins, h.Location.Upload)
		}

		users := api.Group("/users", authed, admins)
		{
			users.GET("/stats", h.User.Stats)
			users.GET("", h.User.List)
			users.GET("/:id", h.User.GetByID)
			users.POST("", h.User.Create)
			users.PUT("/:id", h.User.Update)
			users.PUT("/:id/active", superAdmin, h.User.MakeActive)
			users.PUT("/:id/inactive", superAdmin, h.User.MakeInactive)
			users.DELETE("/:id", superAdmin, h.User.Delete)
		}

		departments := api.Group("/departments")
		{
			departments.GET("", h.Department.List)
			departments.GET("/stats", h.Department.Stats)
			departments.GET("/:id", h.Department.GetByID)
			departments.GET("/:id/users", authed, admins, h.Department.Users)
			departments.GET("/:id/locations", authed, admins, h.Department.Locations)
			departments.POST("", authed, superAdmin, h.Department.Create)
			departments.PUT("/:id", authed, superAdmin, h.Department.Update)
			departments.DELETE("/:id", authed, superAdmin, h.Department.Delete)
		}

		api.POST("/uploads/sign", authed, admins, h.Upload.Sign)
	}

	return r
}

func healthHandler(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status = http.StatusServiceUnavailable
				dbStatus = "unavailable"
			}
		}

		c.JSON(status, gin.H{
			"success":     status == http.StatusOK,
			"message":     "Campus Navigation API is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Server.Env,
			"database":    dbStatus,
		})
	}
}
