package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host           string   `yaml:"host" env:"SERVER_HOST"`
		Port           int      `yaml:"port" env:"SERVER_PORT"`
		Env            string   `yaml:"env" env:"SERVER_ENV"`
		PublicBaseURL  string   `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOW_ORIGINS" envSeparator:","`
		AutoMigrate    bool     `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	} `yaml:"server"`

	Database struct {
		DSN          string `yaml:"url" env:"DATABASE_URL"`
		MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url" env:"REDIS_URL"` // empty: in-process throttling
	} `yaml:"redis"`

	JWT struct {
		Secret     string        `yaml:"secret" env:"JWT_SECRET"`
		TTL        int           `yaml:"ttl" env:"JWT_TTL"` // minutes
		RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL"`
	} `yaml:"jwt"`

	Email struct {
		Provider     string `yaml:"provider" env:"EMAIL_PROVIDER"` // smtp, log
		SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername string `yaml:"smtp_user" env:"SMTP_USER"`
		SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		FromEmail    string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		FromName     string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		UseSSL       bool   `yaml:"use_ssl" env:"SMTP_USE_SSL"`
	} `yaml:"email"`

	Storage struct {
		Type       string `yaml:"type" env:"STORAGE_TYPE"`           // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path" env:"STORAGE_BASE_PATH"` // local storage
		BaseURL    string `yaml:"base_url" env:"STORAGE_BASE_URL"`   // public URL base
		Bucket     string `yaml:"bucket" env:"R2_BUCKET"`
		Region     string `yaml:"region" env:"R2_REGION"`
		AccessKey  string `yaml:"access_key" env:"R2_ACCESS_KEY_ID"`
		SecretKey  string `yaml:"secret_key" env:"R2_SECRET_ACCESS_KEY"`
		Endpoint   string `yaml:"endpoint" env:"R2_ENDPOINT"`
		PublicRead bool   `yaml:"public_read" env:"STORAGE_PUBLIC_READ"`
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64         `yaml:"max_size" env:"UPLOAD_MAX_SIZE"`
		AllowedTypes []string      `yaml:"allowed_types" env:"UPLOAD_ALLOWED_TYPES" envSeparator:","`
		PresignTTL   time.Duration `yaml:"presign_ttl" env:"UPLOAD_PRESIGN_TTL"`
		PendingTTL   time.Duration `yaml:"pending_ttl" env:"UPLOAD_PENDING_TTL"`
	} `yaml:"upload"`

	OTP struct {
		TTL            time.Duration `yaml:"ttl" env:"OTP_TTL"`
		ResendInterval time.Duration `yaml:"resend_interval" env:"OTP_RESEND_INTERVAL"`
		IPPerHour      int           `yaml:"ip_per_hour" env:"OTP_IP_PER_HOUR"`
		MaxAttempts    int           `yaml:"max_attempts" env:"OTP_MAX_ATTEMPTS"`
	} `yaml:"otp"`

	Scheduler struct {
		Enabled          bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
		Cleanup          string `yaml:"cleanup" env:"SCHEDULER_CLEANUP"`
		CloseExpiredJobs string `yaml:"close_expired_jobs" env:"SCHEDULER_CLOSE_EXPIRED_JOBS"`
		ExpireReferrals  string `yaml:"expire_referrals" env:"SCHEDULER_EXPIRE_REFERRALS"`
	} `yaml:"scheduler"`

	Scraper struct {
		UserAgent        string        `yaml:"user_agent" env:"SCRAPER_USER_AGENT"`
		RequestsPerSec   float64       `yaml:"requests_per_sec" env:"SCRAPER_RPS"`
		Timeout          time.Duration `yaml:"timeout" env:"SCRAPER_TIMEOUT"`
		MaxRetryElapsed  time.Duration `yaml:"max_retry_elapsed" env:"SCRAPER_MAX_RETRY_ELAPSED"`
		ReferralTTLDays  int           `yaml:"referral_ttl_days" env:"REFERRAL_TTL_DAYS"`
		ReferralSelector struct {
			Item   string `yaml:"item"`
			Title  string `yaml:"title"`
			Link   string `yaml:"link"`
			Author string `yaml:"author"`
			Time   string `yaml:"time"`
		} `yaml:"referral_selector"`
	} `yaml:"scraper"`

	Admin struct {
		Email    string `yaml:"email" env:"FIRST_ADMIN_EMAIL"`
		Password string `yaml:"password" env:"FIRST_ADMIN_PASSWORD"`
	} `yaml:"admin"`

	Log struct {
		File       string `yaml:"file" env:"LOG_FILE"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

var AppConfig *Config

// Default returns a config usable for local development and tests.
func Default() *Config {
	var cfg Config

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 4000
	cfg.Server.Env = "development"
	cfg.Server.PublicBaseURL = "http://localhost:4000"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	cfg.Database.MaxOpenConns = 20
	cfg.Database.MaxIdleConns = 5

	cfg.JWT.TTL = 60
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour

	cfg.Email.Provider = "log"
	cfg.Email.SMTPPort = 465
	cfg.Email.UseSSL = true
	cfg.Email.FromEmail = "noreply@bankbang.cn"
	cfg.Email.FromName = "银行帮"

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/api/v1/files"

	cfg.Upload.MaxSize = 5 * 1024 * 1024
	cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	cfg.Upload.PresignTTL = 15 * time.Minute
	cfg.Upload.PendingTTL = 24 * time.Hour

	cfg.OTP.TTL = 10 * time.Minute
	cfg.OTP.ResendInterval = 60 * time.Second
	cfg.OTP.IPPerHour = 10
	cfg.OTP.MaxAttempts = 5

	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Cleanup = "@hourly"
	cfg.Scheduler.CloseExpiredJobs = "10 0 * * *"
	cfg.Scheduler.ExpireReferrals = "20 0 * * *"

	cfg.Scraper.UserAgent = "Mozilla/5.0 (compatible; bankbang-bot/1.0)"
	cfg.Scraper.RequestsPerSec = 1
	cfg.Scraper.Timeout = 15 * time.Second
	cfg.Scraper.MaxRetryElapsed = 30 * time.Second
	cfg.Scraper.ReferralTTLDays = 60
	cfg.Scraper.ReferralSelector.Item = "li.topic-item"
	cfg.Scraper.ReferralSelector.Title = "a.topic-title"
	cfg.Scraper.ReferralSelector.Link = "a.topic-title"
	cfg.Scraper.ReferralSelector.Author = ".topic-author"
	cfg.Scraper.ReferralSelector.Time = ".topic-time"

	return &cfg
}

// Load reads the YAML file at path (missing file is not an error) and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config file %s not found, using defaults and environment", path)
		default:
			return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Env == "production" && len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be at least 32 characters in production")
	}
	switch c.Storage.Type {
	case "local", "s3", "cloudflare_r2":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp.max_attempts must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// LoadConfig populates AppConfig from CONFIG_PATH (default config/config.yaml).
func LoadConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
