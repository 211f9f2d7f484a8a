package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the walk-in queue service
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowedOrigins []string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	Realtime  RealtimeConfig
	Queue     QueueConfig
	WaitTime  WaitTimeConfig

	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	SQLitePath string

	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	CatalogTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	AdmitRequests   int           `json:"admit_requests"`
	StaffRequests   int           `json:"staff_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds the notification producer configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RealtimeConfig holds the queue-changed broadcast configuration
type RealtimeConfig struct {
	Enabled       bool
	ChannelPrefix string
}

const lockLeaseFactor = 3

// QueueConfig holds queue engine settings
type QueueConfig struct {
	NotifyDelay         time.Duration
	DistributedLock     bool
	LockTTL             time.Duration // Redis lease on the outlet lock
	LockWaitTimeout     time.Duration // how long a request waits to take the lock
	LockRetryInterval   time.Duration
	EndOfDayTime        string // HH:MM, outlet local time
	EndOfDayCheckPeriod time.Duration
	DefaultMaxPartySize int
	UtilizationGap      float64
}

// WaitTimeConfig overrides estimator constants
type WaitTimeConfig struct {
	MinutesPerPosition int
	RetrainInterval    time.Duration
	HistoryWindow      time.Duration
	MinSamples         int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20),
		AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "./walkin.db"),

			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "walkin_db"),
			User:     getEnv("DB_USER", "walkin_user"),
			Password: getEnv("DB_PASSWORD", "walkin_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getIntEnv("REDIS_DB", 0),
			CatalogTTL: getDurationEnv("REDIS_CATALOG_TTL", 5*time.Minute),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		},

		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			AdmitRequests:   getIntEnv("RATE_LIMIT_ADMIT_REQUESTS", 10),
			StaffRequests:   getIntEnv("RATE_LIMIT_STAFF_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", true),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_QUEUE_NOTIFICATION_TOPIC", "walkin.queue-notifications"),
		},

		Realtime: RealtimeConfig{
			Enabled:       getBoolEnv("REALTIME_ENABLED", true),
			ChannelPrefix: getEnv("REALTIME_CHANNEL_PREFIX", "walkin:outlet"),
		},

		Queue: QueueConfig{
			NotifyDelay:         getDurationEnv("QUEUE_NOTIFY_DELAY", 200*time.Millisecond),
			DistributedLock:     getBoolEnv("QUEUE_DISTRIBUTED_LOCK", false),
			LockTTL:             getDurationEnv("QUEUE_LOCK_TTL", 30*time.Second),
			LockWaitTimeout:     getDurationEnv("QUEUE_LOCK_WAIT_TIMEOUT", 5*time.Second),
			LockRetryInterval:   getDurationEnv("QUEUE_LOCK_RETRY_INTERVAL", 25*time.Millisecond),
			EndOfDayTime:        getEnv("QUEUE_END_OF_DAY_TIME", "23:59"),
			EndOfDayCheckPeriod: getDurationEnv("QUEUE_END_OF_DAY_CHECK_PERIOD", time.Minute),
			DefaultMaxPartySize: getIntEnv("QUEUE_DEFAULT_MAX_PARTY_SIZE", 20),
			UtilizationGap:      getFloatEnv("QUEUE_UTILIZATION_GAP", 20),
		},

		WaitTime: WaitTimeConfig{
			MinutesPerPosition: getIntEnv("WAIT_MINUTES_PER_POSITION", 8),
			RetrainInterval:    getDurationEnv("WAIT_RETRAIN_INTERVAL", time.Hour),
			HistoryWindow:      getDurationEnv("WAIT_HISTORY_WINDOW", 7*24*time.Hour),
			MinSamples:         getIntEnv("WAIT_MIN_SAMPLES", 10),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// LockLeaseTTL is the Redis lease for the outlet lock, never shorter than
// lockLeaseFactor times the wait timeout.
func (q QueueConfig) LockLeaseTTL() time.Duration {
	if floor := lockLeaseFactor * q.LockWaitTimeout; q.LockTTL < floor {
		return floor
	}
	return q.LockTTL
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
