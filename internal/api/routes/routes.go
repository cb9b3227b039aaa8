package routes

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/api/handlers"
	"github.com/Wikid82/geogate/internal/api/middleware"
	"github.com/Wikid82/geogate/internal/app"
	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/services"
)

// Register installs the gate in front of every route and wires the public,
// login and administrative endpoints. metricsHandler may be nil.
func Register(router *gin.Engine, a *app.App, metricsHandler http.Handler) *gate.Middleware {
	cfg := a.Config
	sessions := gate.NewSessionStore(cfg.Gate.SessionSecret, cfg.Gate.GrantTTL, cfg.Environment == "production")
	gm := gate.NewMiddleware(a.Evaluator, a.Bypass, sessions, cfg.Gate.BypassParam)

	// The bypass parameter is honoured before anything else looks at the
	// request; the principal must be known before the guard runs.
	router.Use(gm.Bypass(), middleware.OptionalAuth(a.Auth), gm.Guard())

	healthHandler := handlers.NewHealthHandler(a.DB)
	router.GET("/api/v1/health", healthHandler.Get)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	gateHandler := handlers.NewGateHandler(gm)
	spamHandler := handlers.NewSpamHandler(a.Spam, a.Audit, gm.ClientIP)

	api := router.Group("/api/v1")
	{
		api.GET("/verify", gateHandler.Verify)
		api.GET("/spam/challenge", spamHandler.Challenge)
		api.POST("/spam/check", spamHandler.Check)
		api.POST("/spam/form", gm.SpamGuard(a.Spam), spamHandler.Accept)
	}

	authHandler := handlers.NewAuthHandler(a.Auth, a.Classifier, gm.ClientIP, cfg.Environment == "production", cfg.Admin.TokenTTL)
	router.GET(cfg.Gate.LoginPath, authHandler.LoginPage)
	router.POST(cfg.Gate.LoginPath, authHandler.Login)

	admin := router.Group(path.Join(cfg.Gate.AdminPrefix, "api"))
	admin.Use(middleware.AuthMiddleware(a.Auth), middleware.RequireRole(services.RoleAdmin))
	{
		admin.GET("/me", authHandler.Me)
		admin.POST("/logout", authHandler.Logout)

		allowlistHandler := handlers.NewAllowlistHandler(a.Allowlist)
		admin.GET("/allowlist", allowlistHandler.List)
		admin.POST("/allowlist", allowlistHandler.Add)
		admin.DELETE("/allowlist/:ref", allowlistHandler.Remove)

		bypassHandler := handlers.NewBypassHandler(a.Bypass, cfg.Gate.LoginPath, cfg.Gate.BypassParam)
		admin.GET("/bypass", bypassHandler.Status)
		admin.POST("/bypass", bypassHandler.Generate)
		admin.DELETE("/bypass", bypassHandler.Revoke)
		admin.GET("/bypass/usage", bypassHandler.Usage)

		statsHandler := handlers.NewStatsHandler(a.Attempts, a.Maintenance, a.Audit)
		admin.GET("/stats", statsHandler.Stats)
		admin.POST("/stats/reset", statsHandler.Reset)
		admin.GET("/attempts", statsHandler.Attempts)
		admin.POST("/maintenance/cleanup", statsHandler.Prune)
		admin.GET("/audit", statsHandler.Audit)

		admin.GET("/spam/stats", spamHandler.Stats)
		admin.GET("/spam/saved", spamHandler.Saved)
		admin.POST("/spam/reset", spamHandler.Reset)

		settingsHandler := handlers.NewSettingsHandler(a.Settings, a.Audit)
		admin.GET("/settings", settingsHandler.GetSettings)
		admin.PUT("/settings", settingsHandler.UpdateSetting)

		admin.POST("/test-ip", gateHandler.TestIP)

		providerHandler := handlers.NewNotificationProviderHandler(a.Notify)
		admin.GET("/notifications/providers", providerHandler.List)
		admin.POST("/notifications/providers", providerHandler.Create)
		admin.PUT("/notifications/providers/:id", providerHandler.Update)
		admin.DELETE("/notifications/providers/:id", providerHandler.Delete)
		admin.POST("/notifications/providers/test", providerHandler.Test)
	}

	return gm
}
