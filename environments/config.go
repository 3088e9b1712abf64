package environments

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Webhook     WebhookConfig
	Pairing     PairingConfig
	Connection  ConnectionConfig
	AllowList   AllowListConfig
	RateLimit   RateLimitConfig
	Maintenance MaintenanceConfig
	Auth        AuthConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type WebhookConfig struct {
	URL     string
	AuthKey string
	Timeout time.Duration
}

type PairingConfig struct {
	MaxCount            int
	MinPhoneLength      int
	RequestDelay        time.Duration
	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int
	QueueCooldown       time.Duration
	RequestMaxAge       time.Duration
	CodeTTL             time.Duration
	OutputDir           string
	RotateSessionAfter  bool
	ClientDisplayName   string
}

type ConnectionConfig struct {
	SessionDir           string
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	Backoff              bool
	LoggedOutDelay       time.Duration
	UnknownReasonDelay   time.Duration
	MaxReconnectAttempts int
}

type AllowListConfig struct {
	File string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type MaintenanceConfig struct {
	AutoStart         bool
	Interval          time.Duration
	AlertNotReadyTick int
}

type AuthConfig struct {
	PairingAPIKey string
	AdminAPIKey   string
}

var defaults = map[string]any{
	"SERVER_PORT": "8080",
	"LOG_LEVEL":   "info",

	"DB_DRIVER":   "sqlite",
	"DB_PATH":     "data/history.db",
	"DB_HOST":     "localhost",
	"DB_PORT":     "3306",
	"DB_USER":     "pairing",
	"DB_PASSWORD": "",
	"DB_NAME":     "pairing_codes",

	"REDIS_ENABLED":  false,
	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     "6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"WEBHOOK_URL":      "",
	"WEBHOOK_AUTH_KEY": "",
	"WEBHOOK_TIMEOUT":  "10s",

	"PAIRING_MAX_COUNT":                  500,
	"PAIRING_MIN_PHONE_LENGTH":           8,
	"PAIRING_REQUEST_DELAY":              "1500ms",
	"PAIRING_RATE_LIMIT_COOLDOWN":        "5s",
	"PAIRING_MAX_RATE_LIMIT_RETRIES":     3,
	"PAIRING_QUEUE_COOLDOWN":             "1500ms",
	"PAIRING_REQUEST_MAX_AGE":            "5m",
	"PAIRING_CODE_TTL":                   "3m",
	"PAIRING_OUTPUT_DIR":                 "data/codes",
	"PAIRING_ROTATE_SESSION_AFTER_BATCH": false,
	"PAIRING_CLIENT_DISPLAY_NAME":        "Chrome (Linux)",

	"SESSION_DIR":                "data/session",
	"RECONNECT_BASE_DELAY":       "2s",
	"RECONNECT_MAX_DELAY":        "60s",
	"RECONNECT_BACKOFF":          true,
	"RECONNECT_LOGGED_OUT_DELAY": "1500ms",
	"RECONNECT_UNKNOWN_DELAY":    "10s",
	"RECONNECT_MAX_ATTEMPTS":     10,

	"ALLOWLIST_FILE": "",

	"RATE_LIMIT_RPM":   30,
	"RATE_LIMIT_BURST": 5,

	"MAINTENANCE_AUTO_START": true,
	"MAINTENANCE_INTERVAL":   "30s",
	"ALERT_NOT_READY_TICKS":  10,

	"PAIRING_API_KEY": "",
	"ADMIN_API_KEY":   "",
}

// Load reads configuration from the environment, optionally layered over a
// config file. Environment variables always win over file values.
func Load(configFile string) *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warnf("Failed to read config file %s: %v", configFile, err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Path:     v.GetString("DB_PATH"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Webhook: WebhookConfig{
			URL:     v.GetString("WEBHOOK_URL"),
			AuthKey: v.GetString("WEBHOOK_AUTH_KEY"),
			Timeout: v.GetDuration("WEBHOOK_TIMEOUT"),
		},
		Pairing: PairingConfig{
			MaxCount:            v.GetInt("PAIRING_MAX_COUNT"),
			MinPhoneLength:      v.GetInt("PAIRING_MIN_PHONE_LENGTH"),
			RequestDelay:        v.GetDuration("PAIRING_REQUEST_DELAY"),
			RateLimitCooldown:   v.GetDuration("PAIRING_RATE_LIMIT_COOLDOWN"),
			MaxRateLimitRetries: v.GetInt("PAIRING_MAX_RATE_LIMIT_RETRIES"),
			QueueCooldown:       v.GetDuration("PAIRING_QUEUE_COOLDOWN"),
			RequestMaxAge:       v.GetDuration("PAIRING_REQUEST_MAX_AGE"),
			CodeTTL:             v.GetDuration("PAIRING_CODE_TTL"),
			OutputDir:           v.GetString("PAIRING_OUTPUT_DIR"),
			RotateSessionAfter:  v.GetBool("PAIRING_ROTATE_SESSION_AFTER_BATCH"),
			ClientDisplayName:   v.GetString("PAIRING_CLIENT_DISPLAY_NAME"),
		},
		Connection: ConnectionConfig{
			SessionDir:           v.GetString("SESSION_DIR"),
			BaseDelay:            v.GetDuration("RECONNECT_BASE_DELAY"),
			MaxDelay:             v.GetDuration("RECONNECT_MAX_DELAY"),
			Backoff:              v.GetBool("RECONNECT_BACKOFF"),
			LoggedOutDelay:       v.GetDuration("RECONNECT_LOGGED_OUT_DELAY"),
			UnknownReasonDelay:   v.GetDuration("RECONNECT_UNKNOWN_DELAY"),
			MaxReconnectAttempts: v.GetInt("RECONNECT_MAX_ATTEMPTS"),
		},
		AllowList: AllowListConfig{
			File: v.GetString("ALLOWLIST_FILE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: v.GetInt("RATE_LIMIT_RPM"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Maintenance: MaintenanceConfig{
			AutoStart:         v.GetBool("MAINTENANCE_AUTO_START"),
			Interval:          v.GetDuration("MAINTENANCE_INTERVAL"),
			AlertNotReadyTick: v.GetInt("ALERT_NOT_READY_TICKS"),
		},
		Auth: AuthConfig{
			PairingAPIKey: v.GetString("PAIRING_API_KEY"),
			AdminAPIKey:   v.GetString("ADMIN_API_KEY"),
		},
	}
}
