package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Enrollment EnrollmentConfig
	Catalog    CatalogConfig
	Playlist   PlaylistConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig tunes the daily attendance derivation.
type AttendanceConfig struct {
	MinimumSeconds int64
	Timezone       string
	SweepSchedule  string
	RepairWorkers  int
	RepairRetries  int
}

// EnrollmentConfig caps concurrent enrollments for students.
type EnrollmentConfig struct {
	StudentCourseLimit int
}

// CatalogConfig governs course list caching.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// PlaylistConfig configures playlist metadata extraction.
type PlaylistConfig struct {
	APIKey      string
	APIBaseURL  string
	FeedBaseURL string
	Timeout     time.Duration
	MaxItems    int
}

// Location resolves the attendance timezone, falling back to UTC.
func (c AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*time.Minute),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	minimum := v.GetInt64("ATTENDANCE_MINIMUM_SECONDS")
	if minimum <= 0 {
		minimum = 10800
	}
	cfg.Attendance = AttendanceConfig{
		MinimumSeconds: minimum,
		Timezone:       v.GetString("ATTENDANCE_TIMEZONE"),
		SweepSchedule:  v.GetString("ATTENDANCE_SWEEP_SCHEDULE"),
		RepairWorkers:  v.GetInt("ATTENDANCE_REPAIR_WORKERS"),
		RepairRetries:  v.GetInt("ATTENDANCE_REPAIR_RETRIES"),
	}

	limit := v.GetInt("ENROLLMENT_STUDENT_LIMIT")
	if limit <= 0 {
		limit = 3
	}
	cfg.Enrollment = EnrollmentConfig{StudentCourseLimit: limit}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Playlist = PlaylistConfig{
		APIKey:      v.GetString("YOUTUBE_API_KEY"),
		APIBaseURL:  v.GetString("YOUTUBE_API_BASE_URL"),
		FeedBaseURL: v.GetString("YOUTUBE_FEED_BASE_URL"),
		Timeout:     parseDuration(v.GetString("PLAYLIST_FETCH_TIMEOUT"), 2*time.Minute),
		MaxItems:    v.GetInt("PLAYLIST_MAX_ITEMS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edutrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("JWT_ISSUER", "edutrack-api")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTENDANCE_MINIMUM_SECONDS", 10800)
	v.SetDefault("ATTENDANCE_TIMEZONE", "UTC")
	v.SetDefault("ATTENDANCE_SWEEP_SCHEDULE", "@every 15m")
	v.SetDefault("ATTENDANCE_REPAIR_WORKERS", 1)
	v.SetDefault("ATTENDANCE_REPAIR_RETRIES", 3)

	v.SetDefault("ENROLLMENT_STUDENT_LIMIT", 3)

	v.SetDefault("ENABLE_CATALOG_CACHE", true)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("YOUTUBE_API_KEY", "")
	v.SetDefault("YOUTUBE_API_BASE_URL", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("YOUTUBE_FEED_BASE_URL", "https://www.youtube.com/feeds/videos.xml")
	v.SetDefault("PLAYLIST_FETCH_TIMEOUT", "2m")
	v.SetDefault("PLAYLIST_MAX_ITEMS", 500)
}

// isMissingFile tolerates a missing .env when SetConfigFile is used, which
// viper reports as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
