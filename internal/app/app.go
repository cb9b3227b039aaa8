// Package app builds the services shared by the HTTP server and the
// operator CLI from one configuration.
package app

import (
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/geo"
	"github.com/Wikid82/geogate/internal/grant"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/services"
	"github.com/Wikid82/geogate/internal/version"
)

// App holds every long-lived service.
type App struct {
	DB     *gorm.DB
	Config config.Config

	Classifier  *geo.Classifier
	Grants      grant.Store
	Settings    *services.SettingsService
	Allowlist   *services.AllowlistService
	Attempts    *services.AttemptLog
	Bypass      *services.BypassService
	Spam        *services.SpamService
	Notify      *services.NotificationService
	Audit       *services.AuditService
	Auth        *services.AuthService
	Maintenance *services.MaintenanceService
	Evaluator   *gate.Evaluator

	closers []io.Closer
}

// New wires the services. The database must already be migrated.
func New(db *gorm.DB, cfg config.Config) (*App, error) {
	a := &App{DB: db, Config: cfg}

	classifier, err := a.buildClassifier(cfg.Gate)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Classifier = classifier

	var pruner services.GrantPruner
	switch cfg.Gate.GrantMode {
	case config.GrantModeJWT:
		a.Grants = grant.NewJWTStore(cfg.Gate.SessionSecret)
	default:
		mem, err := grant.NewMemoryStore(10000)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("grant store: %w", err)
		}
		a.Grants, pruner = mem, mem
	}

	a.Notify = services.NewNotificationService(db)
	a.Notify.AddStaticURL(cfg.Spam.NotificationURL, models.EventSpam, models.EventBypass)
	a.Notify.AddStaticURL(cfg.Notify.SummaryURL, models.EventSummary)

	a.Audit = services.NewAuditService(db)
	a.Settings = services.NewSettingsService(db, cfg.Gate)
	a.Allowlist = services.NewAllowlistService(db)
	a.Attempts = services.NewAttemptLog(db, cfg.Gate.AccessLogCap)
	a.Auth = services.NewAuthService(cfg.Admin)

	a.Bypass = services.NewBypassService(db, a.Grants, cfg.Gate.GrantTTL, cfg.Gate.BypassLogCap)
	a.Bypass.SetNotifier(a.Notify)

	a.Spam = services.NewSpamService(db, cfg.Spam)
	a.Spam.SetNotifier(a.Notify)

	a.Maintenance = services.NewMaintenanceService(a.Attempts, cfg.Gate.Retention)
	if pruner != nil {
		a.Maintenance.WithGrants(pruner)
	}
	if cfg.Notify.WeeklySummary {
		a.Maintenance.WithSummary(a.Notify, a.Spam)
	}

	a.Evaluator = gate.NewEvaluator(cfg.Gate, gate.Deps{
		Grants:    a.Bypass,
		Allowlist: a.Allowlist,
		Countries: a.Classifier,
		Attempts:  a.Attempts,
		Policy:    a.Settings,
	})
	return a, nil
}

func (a *App) buildClassifier(cfg config.GateConfig) (*geo.Classifier, error) {
	var cache geo.Cache
	if cfg.RedisURL != "" {
		rc, err := geo.NewRedisCacheFromURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("geo cache: %w", err)
		}
		a.closers = append(a.closers, rc)
		cache = rc
	} else {
		mc, err := geo.NewMemoryCache(cfg.GeoCacheSize)
		if err != nil {
			return nil, fmt.Errorf("geo cache: %w", err)
		}
		cache = mc
	}

	sources := []geo.Source{geo.DefaultStaticTable()}
	if cfg.MMDBPath != "" {
		mmdb, err := geo.OpenMMDB(cfg.MMDBPath)
		if err != nil {
			logger.Log().WithError(err).Warn("country database unavailable, continuing without it")
		} else {
			a.closers = append(a.closers, mmdb)
			sources = append(sources, mmdb)
		}
	}

	return geo.NewClassifier(cache, sources, geo.DefaultProviders(cfg.ProviderRate), geo.Options{
		ExternalLookup: cfg.ExternalLookup,
		ResolvedTTL:    cfg.ResolvedTTL,
		UnknownTTL:     cfg.UnknownTTL,
		Timeout:        cfg.ProviderTimeout,
		UserAgent:      version.UserAgent(),
	}), nil
}

// Close releases external resources and waits for pending notifications.
func (a *App) Close() {
	if a.Notify != nil {
		a.Notify.Wait()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Log().WithError(err).Warn("failed to close resource")
		}
	}
	a.closers = nil
}
