package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"echonotes/models"
)

var envLoaded bool

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type IMAPConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"-"`
	Mailbox    string `json:"mailbox"`
	Encryption string `json:"encryption"` // SSL, STARTTLS or empty for plaintext
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	SMTP      SMTPConfig `json:"smtp"`
	FromEmail string     `json:"from_email"`
	FromName  string     `json:"from_name"`

	// Public base URL used to build tracking-pixel links
	AppBaseURL string `json:"app_base_url"`

	// Shared secret for the cron trigger; empty disables the check
	CronSecret string `json:"-"`

	SendDelay        time.Duration `json:"send_delay"`
	DispatchInterval time.Duration `json:"dispatch_interval"`
	ClaimTTL         time.Duration `json:"claim_ttl"`

	IMAP             IMAPConfig    `json:"imap"`
	IMAPPollInterval time.Duration `json:"imap_poll_interval"`

	Redis        RedisConfig `json:"redis"`
	RateLimitAPI int         `json:"rate_limit_api"`

	SentryDSN string `json:"-"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "echonotes"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		FromEmail: getEnv("FROM_EMAIL", ""),
		FromName:  getEnv("FROM_NAME", "EchoNotes"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:5000"),
		CronSecret: getEnv("CRON_SECRET", ""),

		SendDelay:        time.Duration(getEnvAsInt("SEND_DELAY_MS", 200)) * time.Millisecond,
		DispatchInterval: time.Duration(getEnvAsInt("DISPATCH_INTERVAL_SECONDS", 120)) * time.Second,
		ClaimTTL:         time.Duration(getEnvAsInt("CLAIM_TTL_MINUTES", 15)) * time.Minute,

		IMAP: IMAPConfig{
			Enabled:    getEnv("IMAP_HOST", "") != "",
			Host:       getEnv("IMAP_HOST", ""),
			Port:       getEnvAsInt("IMAP_PORT", 993),
			Username:   getEnv("IMAP_USERNAME", ""),
			Password:   getEnv("IMAP_PASSWORD", ""),
			Mailbox:    getEnv("IMAP_MAILBOX", "INBOX"),
			Encryption: getEnv("IMAP_ENCRYPTION", "SSL"),
		},
		IMAPPollInterval: time.Duration(getEnvAsInt("IMAP_POLL_INTERVAL_SECONDS", 300)) * time.Second,

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ADDRESS", "") != "",
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimitAPI: getEnvAsInt("RATE_LIMIT_API", 60),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	// Validate required configurations
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("FROM_EMAIL is required")
	}
	if cfg.Environment == "production" {
		if cfg.SMTP.Host == "" || cfg.SMTP.Username == "" {
			return nil, fmt.Errorf("SMTP credentials are required in production")
		}
		if cfg.CronSecret == "" {
			return nil, fmt.Errorf("CRON_SECRET is required in production")
		}
	}

	logConfig(cfg)
	return cfg, nil
}

func ConnectDB(cfg *Config) (*gorm.DB, error) {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Successfully connected to the database")
	log.Println("Starting database migration...")
	if err := MigrateDB(db); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return db, nil
}

// MigrateDB creates or updates the schema. Also used by tests against SQLite.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Sequence{},
		&models.SequenceRecipient{},
		&models.DeliveryRecord{},
		&models.SequenceResponse{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig(cfg *Config) {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Server Port: %s", cfg.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		cfg.DBUser,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName)
	log.Printf("SMTP: %s:%d (from %s)", cfg.SMTP.Host, cfg.SMTP.Port, cfg.FromEmail)
	log.Printf("IMAP polling: %t, Redis: %t, cron secret set: %t",
		cfg.IMAP.Enabled,
		cfg.Redis.Enabled,
		cfg.CronSecret != "")
}
