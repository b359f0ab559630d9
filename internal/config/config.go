package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"proctrace/internal/analysis"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Detection DetectionConfig `mapstructure:"detection"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
	Behavior  BehaviorConfig  `mapstructure:"behavior"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port)
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DetectionConfig tunes the trajectory similarity and fingerprint detectors.
// SuspiciousThreshold belongs to the reporting side: pairs scoring at or
// above it are flagged for review, the detectors themselves ignore it.
type DetectionConfig struct {
	PauseThreshold      float64       `mapstructure:"pause_threshold"` // seconds
	MinStrokePoints     int           `mapstructure:"min_stroke_points"`
	MaxStrokePoints     int           `mapstructure:"max_stroke_points"`
	BoostThreshold      float64       `mapstructure:"boost_threshold"`
	BoostFactor         float64       `mapstructure:"boost_factor"`
	SuspiciousThreshold int           `mapstructure:"suspicious_threshold"`
	Workers             int           `mapstructure:"workers"`
	CompareTimeout      time.Duration `mapstructure:"compare_timeout"`
	MaxSessions         int           `mapstructure:"max_sessions"`
	IncludeClientIP     bool          `mapstructure:"include_client_ip"`
}

// AnalysisConfig maps the detection section onto the analysis tunables.
func (d DetectionConfig) AnalysisConfig() analysis.Config {
	return analysis.Config{
		PauseThreshold:  d.PauseThreshold,
		MinStrokePoints: d.MinStrokePoints,
		MaxStrokePoints: d.MaxStrokePoints,
		BoostThreshold:  d.BoostThreshold,
		BoostFactor:     d.BoostFactor,
		Workers:         d.Workers,
	}
}

// IdentityPolicy maps the detection section onto the fingerprint grouping
// policy.
func (d DetectionConfig) IdentityPolicy() analysis.IdentityPolicy {
	return analysis.IdentityPolicy{IncludeClientIP: d.IncludeClientIP}
}

// IntegrityConfig holds the per-session limits a clean sitting stays under
// plus the default passing score. The catalog can override the passing
// score per assessment.
type IntegrityConfig struct {
	FocusLossLimit   int     `mapstructure:"focus_loss_limit"`
	BlurTimeLimitSec float64 `mapstructure:"blur_time_limit_sec"`
	PrintLimit       int     `mapstructure:"print_limit"`
	PassingScore     int     `mapstructure:"passing_score"`
}

// Thresholds maps the section onto the analysis thresholds.
func (i IntegrityConfig) Thresholds() analysis.IntegrityThresholds {
	return analysis.IntegrityThresholds{
		FocusLossLimit:   i.FocusLossLimit,
		BlurTimeLimitSec: i.BlurTimeLimitSec,
		PrintLimit:       i.PrintLimit,
	}
}

// BehaviorConfig tunes the high-score/low-effort heuristic.
type BehaviorConfig struct {
	MinScore           int     `mapstructure:"min_score"`
	MaxTestDurationSec float64 `mapstructure:"max_test_duration_sec"`
	MinEngagementScore int     `mapstructure:"min_engagement_score"`
}

// Thresholds maps the section onto the analysis thresholds.
func (b BehaviorConfig) Thresholds() analysis.BehaviorThresholds {
	return analysis.BehaviorThresholds{
		MinScore:           b.MinScore,
		MaxTestDurationSec: b.MaxTestDurationSec,
		MinEngagementScore: b.MinEngagementScore,
	}
}

// RetentionConfig controls the background sweep that strips raw behavioral
// payloads from old sessions, drops raw events past their TTL and retires
// pending rows that went idle.
type RetentionConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	BehavioralMaxAge int           `mapstructure:"behavioral_max_age_days"`
	EventTTLDays     int           `mapstructure:"event_ttl_days"`
	PendingMaxAge    time.Duration `mapstructure:"pending_max_age"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "")

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "proctrace-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Detection defaults
	v.SetDefault("detection.pause_threshold", 0.25) // seconds
	v.SetDefault("detection.min_stroke_points", 10)
	v.SetDefault("detection.max_stroke_points", 4000)
	v.SetDefault("detection.boost_threshold", 80)
	v.SetDefault("detection.boost_factor", 1.5)
	v.SetDefault("detection.suspicious_threshold", 85)
	v.SetDefault("detection.workers", 0) // 0 = one per CPU
	v.SetDefault("detection.compare_timeout", "45s")
	v.SetDefault("detection.max_sessions", 200)
	v.SetDefault("detection.include_client_ip", false)

	// Integrity defaults
	v.SetDefault("integrity.focus_loss_limit", 5)
	v.SetDefault("integrity.blur_time_limit_sec", 60)
	v.SetDefault("integrity.print_limit", 0)
	v.SetDefault("integrity.passing_score", 80)

	// Behavior defaults
	v.SetDefault("behavior.min_score", 90)
	v.SetDefault("behavior.max_test_duration_sec", 180)
	v.SetDefault("behavior.min_engagement_score", 15)

	// Retention defaults
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.sweep_interval", "12h")
	v.SetDefault("retention.behavioral_max_age_days", 180)
	v.SetDefault("retention.event_ttl_days", 90)
	v.SetDefault("retention.pending_max_age", "72h")
}

// Manager loads the configuration once and keeps the latest snapshot behind
// an atomic pointer. A file change swaps the pointer; callers that took a
// snapshot before the reload keep working with the values they started with.
type Manager struct {
	v   *viper.Viper
	cur atomic.Pointer[Config]
}

// Load initializes the configuration with Viper. It runs before the logger
// exists, so it stays silent; call Watch afterwards to enable hot reloads.
func Load(projectRoot string) (*Manager, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("PROCTRACE") // e.g., PROCTRACE_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	m := &Manager{v: v}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch sets up hot-reloading of the configuration file. Each change swaps
// in a fresh snapshot.
func (m *Manager) Watch(log *zap.Logger) {
	m.v.WatchConfig()
	m.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := m.reload(); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})
}

func (m *Manager) reload() error {
	cfg := &Config{}
	if err := m.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	m.cur.Store(cfg)
	return nil
}

// Current returns the latest configuration snapshot. Treat it as read-only;
// reloads replace the pointer, never the pointed-to contents.
func (m *Manager) Current() *Config {
	return m.cur.Load()
}
