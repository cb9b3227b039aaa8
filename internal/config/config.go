package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Grant modes select where an emergency bypass grant lives.
const (
	GrantModeSession = "session"
	GrantModeJWT     = "jwt"
)

// Config captures runtime configuration sourced from environment variables
// and an optional config file.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	LogDir       string
	Debug        bool

	Gate   GateConfig
	Admin  AdminConfig
	Spam   SpamConfig
	Notify NotifyConfig
}

// GateConfig drives the access decision engine.
type GateConfig struct {
	Enabled          bool
	AllowedCountries []string
	BlockLogin       bool
	BlockAdmin       bool
	LoginPath        string
	AdminPrefix      string
	APIAuthPrefix    string
	APIAuthPaths     []string
	// AJAXPaths are server-side endpoints outside the admin check. The
	// login path is never exempt.
	AJAXPaths []string

	ExternalLookup  bool
	ResolvedTTL     time.Duration
	UnknownTTL      time.Duration
	ProviderTimeout time.Duration
	ProviderRate    float64
	MMDBPath        string
	RedisURL        string
	GeoCacheSize    int

	AccessLogCap int
	BypassLogCap int
	Retention    time.Duration

	GrantTTL      time.Duration
	GrantMode     string
	SessionSecret string
	BypassParam   string
}

// AdminConfig configures the administrative login and bearer tokens.
type AdminConfig struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// SpamConfig configures the comment form heuristic.
type SpamConfig struct {
	Enabled            bool
	BlockTrackbacks    bool
	SaveSpam           bool
	Notify             bool
	NotificationURL    string
	CustomErrorMessage string
	SavedCap           int
}

// NotifyConfig configures periodic summaries.
type NotifyConfig struct {
	WeeklySummary bool
	SummaryURL    string
}

// Load reads env vars (and .env / GEOGATE_CONFIG when present) and falls back
// to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEOGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := os.Getenv("GEOGATE_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("http_port", "8080")
	v.SetDefault("db_path", filepath.Join("data", "geogate.db"))
	v.SetDefault("log_dir", filepath.Join("data", "logs"))
	v.SetDefault("debug", false)

	v.SetDefault("gate.enabled", true)
	v.SetDefault("gate.allowed_countries", "NG")
	v.SetDefault("gate.block_login", true)
	v.SetDefault("gate.block_admin", true)
	v.SetDefault("gate.login_path", "/login")
	v.SetDefault("gate.admin_prefix", "/admin")
	v.SetDefault("gate.api_auth_prefix", "/wp-json/")
	v.SetDefault("gate.api_auth_paths", "/wp/v2/users/me,/jwt-auth/")
	v.SetDefault("gate.ajax_paths", "/admin/ajax")
	v.SetDefault("gate.external_lookup", false)
	v.SetDefault("gate.resolved_ttl", time.Hour)
	v.SetDefault("gate.unknown_ttl", 5*time.Minute)
	v.SetDefault("gate.provider_timeout", 2*time.Second)
	v.SetDefault("gate.provider_rate", 5.0)
	v.SetDefault("gate.mmdb_path", "")
	v.SetDefault("gate.redis_url", "")
	v.SetDefault("gate.geo_cache_size", 10000)
	v.SetDefault("gate.access_log_cap", 1000)
	v.SetDefault("gate.bypass_log_cap", 100)
	v.SetDefault("gate.retention", 30*24*time.Hour)
	v.SetDefault("gate.grant_ttl", 30*time.Minute)
	v.SetDefault("gate.grant_mode", GrantModeSession)
	v.SetDefault("gate.session_secret", "")
	v.SetDefault("gate.bypass_param", "emergency_bypass")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", 12*time.Hour)

	v.SetDefault("spam.enabled", false)
	v.SetDefault("spam.block_trackbacks", true)
	v.SetDefault("spam.save_spam", false)
	v.SetDefault("spam.notify", false)
	v.SetDefault("spam.notification_url", "")
	v.SetDefault("spam.custom_error_message", "")
	v.SetDefault("spam.saved_cap", 100)

	v.SetDefault("notify.weekly_summary", false)
	v.SetDefault("notify.summary_url", "")
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Environment:  v.GetString("env"),
		HTTPPort:     v.GetString("http_port"),
		DatabasePath: v.GetString("db_path"),
		LogDir:       v.GetString("log_dir"),
		Debug:        v.GetBool("debug"),
		Gate: GateConfig{
			Enabled:          v.GetBool("gate.enabled"),
			AllowedCountries: stringList(v, "gate.allowed_countries"),
			BlockLogin:       v.GetBool("gate.block_login"),
			BlockAdmin:       v.GetBool("gate.block_admin"),
			LoginPath:        v.GetString("gate.login_path"),
			AdminPrefix:      v.GetString("gate.admin_prefix"),
			APIAuthPrefix:    v.GetString("gate.api_auth_prefix"),
			APIAuthPaths:     stringList(v, "gate.api_auth_paths"),
			AJAXPaths:        stringList(v, "gate.ajax_paths"),
			ExternalLookup:   v.GetBool("gate.external_lookup"),
			ResolvedTTL:      v.GetDuration("gate.resolved_ttl"),
			UnknownTTL:       v.GetDuration("gate.unknown_ttl"),
			ProviderTimeout:  v.GetDuration("gate.provider_timeout"),
			ProviderRate:     v.GetFloat64("gate.provider_rate"),
			MMDBPath:         v.GetString("gate.mmdb_path"),
			RedisURL:         v.GetString("gate.redis_url"),
			GeoCacheSize:     v.GetInt("gate.geo_cache_size"),
			AccessLogCap:     v.GetInt("gate.access_log_cap"),
			BypassLogCap:     v.GetInt("gate.bypass_log_cap"),
			Retention:        v.GetDuration("gate.retention"),
			GrantTTL:         v.GetDuration("gate.grant_ttl"),
			GrantMode:        strings.ToLower(v.GetString("gate.grant_mode")),
			SessionSecret:    v.GetString("gate.session_secret"),
			BypassParam:      v.GetString("gate.bypass_param"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("admin.username"),
			PasswordHash: v.GetString("admin.password_hash"),
			JWTSecret:    v.GetString("admin.jwt_secret"),
			TokenTTL:     v.GetDuration("admin.token_ttl"),
		},
		Spam: SpamConfig{
			Enabled:            v.GetBool("spam.enabled"),
			BlockTrackbacks:    v.GetBool("spam.block_trackbacks"),
			SaveSpam:           v.GetBool("spam.save_spam"),
			Notify:             v.GetBool("spam.notify"),
			NotificationURL:    v.GetString("spam.notification_url"),
			CustomErrorMessage: v.GetString("spam.custom_error_message"),
			SavedCap:           v.GetInt("spam.saved_cap"),
		},
		Notify: NotifyConfig{
			WeeklySummary: v.GetBool("notify.weekly_summary"),
			SummaryURL:    v.GetString("notify.summary_url"),
		},
	}
}

func (c *Config) normalize() error {
	for i, code := range c.Gate.AllowedCountries {
		c.Gate.AllowedCountries[i] = strings.ToUpper(code)
	}
	if c.Gate.GrantMode != GrantModeSession && c.Gate.GrantMode != GrantModeJWT {
		return fmt.Errorf("invalid grant mode %q", c.Gate.GrantMode)
	}
	if c.Gate.AccessLogCap <= 0 || c.Gate.BypassLogCap <= 0 {
		return fmt.Errorf("log caps must be positive")
	}
	if c.Gate.SessionSecret == "" {
		c.Gate.SessionSecret = randomSecret()
	}
	if c.Admin.JWTSecret == "" {
		c.Admin.JWTSecret = randomSecret()
	}
	return nil
}

// stringList accepts either a yaml list or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var parts []string
	switch raw := v.Get(key).(type) {
	case []interface{}:
		for _, item := range raw {
			parts = append(parts, fmt.Sprint(item))
		}
	case []string:
		parts = raw
	default:
		parts = strings.Split(v.GetString(key), ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// randomSecret is used when no secret is configured; cookies and admin
// tokens then do not survive a restart.
func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}
