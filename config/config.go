package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EligibilityDailyQuota = "daily-quota"
	EligibilitySession    = "session"

	PushWebsocket = "websocket"
	PushRedis     = "redis"
	PushNone      = "none"

	SessionStoreToken  = "token"
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	// SessionTokenFileOff keeps the session in memory only.
	SessionTokenFileOff = "off"
)

type Config struct {
	APIBaseURL string
	SocketURL  string
	APITimeout time.Duration

	EnableSocket          bool
	EnablePollingFallback bool
	PollingInterval       time.Duration
	PushTransport         string

	EligibilityMode string
	DailyVoteQuota  int

	OpenWeekday  int
	OpenHour     int
	CloseWeekday int
	Location     *time.Location

	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	SessionStore     string
	SessionTTL       time.Duration
	SessionTokenFile string
	JWTSecret        string
}

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}
}

func GetEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

// Load reads the client configuration from the environment. Call LoadEnv first
// to pick up a .env file.
func Load() (Config, error) {
	var c Config
	var err error

	c.APIBaseURL = strings.TrimRight(GetEnv("API_BASE_URL", "http://localhost:3000/api"), "/")
	c.SocketURL = strings.TrimRight(GetEnv("API_URL", "http://localhost:3000"), "/")

	if c.APITimeout, err = durationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		return c, err
	}
	if c.PollingInterval, err = durationEnv("POLLING_INTERVAL", 30*time.Second); err != nil {
		return c, err
	}
	if c.EnableSocket, err = boolEnv("ENABLE_SOCKET", true); err != nil {
		return c, err
	}
	if c.EnablePollingFallback, err = boolEnv("ENABLE_POLLING_FALLBACK", true); err != nil {
		return c, err
	}

	c.PushTransport = strings.ToLower(GetEnv("PUSH_TRANSPORT", PushWebsocket))
	switch c.PushTransport {
	case PushWebsocket, PushRedis, PushNone:
	default:
		return c, fmt.Errorf("unknown PUSH_TRANSPORT: %s", c.PushTransport)
	}
	if !c.EnableSocket {
		c.PushTransport = PushNone
	}

	c.EligibilityMode = strings.ToLower(GetEnv("ELIGIBILITY_MODE", EligibilityDailyQuota))
	switch c.EligibilityMode {
	case EligibilityDailyQuota, EligibilitySession:
	default:
		return c, fmt.Errorf("unknown ELIGIBILITY_MODE: %s", c.EligibilityMode)
	}
	if c.DailyVoteQuota, err = intEnv("DAILY_VOTE_QUOTA", 3); err != nil {
		return c, err
	}
	if c.DailyVoteQuota < 0 {
		return c, fmt.Errorf("DAILY_VOTE_QUOTA must not be negative")
	}

	if c.OpenWeekday, err = intEnv("VOTING_OPEN_DAY", 1); err != nil {
		return c, err
	}
	if c.OpenHour, err = intEnv("VOTING_OPEN_HOUR", 6); err != nil {
		return c, err
	}
	if c.CloseWeekday, err = intEnv("VOTING_CLOSE_DAY", 5); err != nil {
		return c, err
	}
	c.Location = time.Local
	if tz := GetEnv("VOTING_TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return c, fmt.Errorf("VOTING_TIMEZONE: %w", err)
		}
		c.Location = loc
	}

	c.RedisAddr = GetEnv("REDIS_URI", "localhost:6379")
	c.RedisPassword = GetEnv("REDIS_PASSWORD", "")
	c.RedisChannel = GetEnv("REDIS_CHANNEL", "voting:updates")

	if c.SessionTTL, err = durationEnv("SESSION_TTL", 12*time.Hour); err != nil {
		return c, err
	}
	c.SessionTokenFile = GetEnv("SESSION_TOKEN_FILE", ".voting-session")
	if strings.EqualFold(c.SessionTokenFile, SessionTokenFileOff) {
		c.SessionTokenFile = ""
	}
	c.SessionStore = strings.ToLower(GetEnv("SESSION_STORE", SessionStoreToken))
	switch c.SessionStore {
	case SessionStoreToken, SessionStoreMemory, SessionStoreRedis:
	default:
		return c, fmt.Errorf("unknown SESSION_STORE: %s", c.SessionStore)
	}
	if c.EligibilityMode == EligibilitySession {
		// A session resumed from the token file must find its vote again.
		if c.SessionStore == SessionStoreMemory && c.SessionTokenFile != "" {
			return c, fmt.Errorf("SESSION_STORE=memory loses the vote when the session resumes from %s; use token or redis, or set SESSION_TOKEN_FILE=off", c.SessionTokenFile)
		}
		if c.SessionStore == SessionStoreToken && c.SessionTokenFile == "" {
			return c, fmt.Errorf("SESSION_STORE=token needs SESSION_TOKEN_FILE")
		}
	}
	c.JWTSecret = GetEnv("JWT_SECRET", "")
	if c.JWTSecret == "" {
		return c, fmt.Errorf("JWT_SECRET is empty")
	}

	return c, nil
}

// UsesRedis reports whether any configured component needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.PushTransport == PushRedis ||
		(c.EligibilityMode == EligibilitySession && c.SessionStore == SessionStoreRedis)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	// Bare numbers are milliseconds, as in the browser config.
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("%s must be positive", key)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
