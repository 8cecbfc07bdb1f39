package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// Shared secret for the orchestration endpoints (/api/schedule, /api/trigger, /api/notify).
	ServiceToken string

	// Honor X-Forwarded-For/X-Real-IP for rate-limit keying. Only set this
	// when a reverse proxy sits in front of the server.
	TrustProxyHeaders bool

	// Guest session tokens
	GuestTokenSecret   string
	GuestTokenDuration time.Duration

	// Web push (VAPID). Delivery is disabled when the key pair is empty.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	// Local durable store for guest attempts
	GuestDataPath string

	// Reveal window: the random reveal instant is drawn from discrete slots
	// inside [start, start+window], both ends inclusive.
	RevealStartHourUTC int
	RevealWindowHours  int
	RevealSlotMinutes  int

	MaxAttemptRows  int
	DeliveryTimeout time.Duration

	NotifyTitle string
	NotifyBody  string
	NotifyIcon  string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./sabeo.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		ServiceToken:      getEnv("SERVICE_TOKEN", ""),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		GuestTokenSecret:   getEnv("GUEST_TOKEN_SECRET", ""),
		GuestTokenDuration: 30 * 24 * time.Hour,

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber: getEnv("VAPID_SUBSCRIBER", "mailto:admin@localhost"),

		GuestDataPath: getEnv("GUEST_DATA_PATH", "./data/guests"),

		RevealStartHourUTC: getEnvInt("REVEAL_START_HOUR_UTC", 13),
		RevealWindowHours:  getEnvInt("REVEAL_WINDOW_HOURS", 8),
		RevealSlotMinutes:  getEnvInt("REVEAL_SLOT_MINUTES", 10),

		MaxAttemptRows:  getEnvInt("MAX_ATTEMPT_ROWS", 6),
		DeliveryTimeout: time.Duration(getEnvInt("DELIVERY_TIMEOUT_SECONDS", 30)) * time.Second,

		NotifyTitle: getEnv("NOTIFY_TITLE", "Sabeo"),
		NotifyBody:  getEnv("NOTIFY_BODY", "¡Hay un nuevo reto!"),
		NotifyIcon:  getEnv("NOTIFY_ICON", "/icon-512x512.png"),
	}
}

// SlotCount returns how many discrete reveal slots the window holds, both
// window ends included. 8 hours at 10-minute slots gives 49.
func (c *Config) SlotCount() int {
	if c.RevealSlotMinutes <= 0 {
		return 1
	}
	return c.RevealWindowHours*60/c.RevealSlotMinutes + 1
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool reads a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid value %q for %s, using %t", value, key, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid value %q for %s, using %d", value, key, defaultValue)
		return defaultValue
	}
	return parsed
}
