package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting of the pickup server. It is loaded
// once in main and passed to the components that need it.
type Config struct {
	Port         string
	RealtimePort string
	Env          string
	MockMode     bool

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// StorageBackend selects the key-value surface: redis, postgres or memory.
	StorageBackend string
	// CheckInStore selects rows (indexed gorm table) or blob (whole collection in the KV store).
	CheckInStore string

	OnTimeThresholdMinutes int
	StatsTimezone          string

	EnforcePickupWindows    bool
	EnforceStudentOwnership bool

	ScannerMode string

	GeofencePollInterval time.Duration
	ReminderLead         time.Duration

	NotifyWebhookURL   string
	NotifyWebhookToken string

	SchoolsFile string
	CORSOrigins string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the environment into a Config.
func Load() Config {
	return Config{
		Port:         GetEnv("PORT", "3000"),
		RealtimePort: GetEnv("REALTIME_PORT", "3001"),
		Env:          GetEnv("ENV", "development"),
		MockMode:     GetBoolEnv("MOCK_MODE", false),

		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBUser:     GetEnv("DB_USER", "postgres"),
		DBPassword: GetEnv("DB_PASSWORD", "postgres"),
		DBName:     GetEnv("DB_NAME", "geopickup"),
		DBPort:     GetEnv("DB_PORT", "5432"),

		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),

		JWTSecret: GetEnv("JWT_SECRET", "geopickup"),

		StorageBackend: strings.ToLower(GetEnv("STORAGE_BACKEND", "redis")),
		CheckInStore:   strings.ToLower(GetEnv("CHECKIN_STORE", "rows")),

		OnTimeThresholdMinutes: GetIntEnv("ON_TIME_THRESHOLD_MINUTES", 10),
		StatsTimezone:          GetEnv("STATS_TIMEZONE", "Local"),

		EnforcePickupWindows:    GetBoolEnv("ENFORCE_PICKUP_WINDOWS", false),
		EnforceStudentOwnership: GetBoolEnv("ENFORCE_STUDENT_OWNERSHIP", false),

		ScannerMode: strings.ToLower(GetEnv("SCANNER_MODE", "image")),

		GeofencePollInterval: GetDurationEnv("GEOFENCE_POLL_INTERVAL", 30*time.Second),
		ReminderLead:         GetDurationEnv("REMINDER_LEAD", 15*time.Minute),

		NotifyWebhookURL:   GetEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookToken: GetEnv("NOTIFY_WEBHOOK_TOKEN", ""),

		SchoolsFile: GetEnv("SCHOOLS_FILE", ""),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:8081"),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv accepts Go durations ("90s", "15m") or a bare number of seconds.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves StatsTimezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.StatsTimezone == "" || strings.EqualFold(c.StatsTimezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		log.Printf("invalid STATS_TIMEZONE %q, using local: %v", c.StatsTimezone, err)
		return time.Local
	}
	return loc
}
