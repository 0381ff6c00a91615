package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName      string `env:"CONTACTS_APP_NAME" envDefault:"contacts-api"`
	AppEnv       string `env:"CONTACTS_APP_ENV" envDefault:"local"`
	HTTPHost     string `env:"CONTACTS_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort     string `env:"CONTACTS_HTTP_PORT" envDefault:"8000"`
	HTTPBasePath string `env:"CONTACTS_HTTP_BASE_PATH" envDefault:"/api/v1"`
	PublicURL    string `env:"CONTACTS_PUBLIC_URL" envDefault:"http://localhost:8000"`

	DBHost     string `env:"CONTACTS_DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"CONTACTS_DB_PORT" envDefault:"5432"`
	DBUser     string `env:"CONTACTS_DB_USER" envDefault:"app"`
	DBPassword string `env:"CONTACTS_DB_PASSWORD" envDefault:"app_password"`
	DBName     string `env:"CONTACTS_DB_NAME" envDefault:"contactsdb"`
	DBSSLMode  string `env:"CONTACTS_DB_SSLMODE" envDefault:"disable"`

	JWTSecret  string        `env:"CONTACTS_JWT_SECRET"`
	JWTIssuer  string        `env:"CONTACTS_JWT_ISSUER" envDefault:"contacts-api"`
	AccessTTL  time.Duration `env:"CONTACTS_JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"CONTACTS_JWT_REFRESH_TTL" envDefault:"168h"`
	EmailTTL   time.Duration `env:"CONTACTS_JWT_EMAIL_TTL" envDefault:"24h"`

	RedisAddr     string        `env:"CONTACTS_REDIS_ADDR"`
	RedisPassword string        `env:"CONTACTS_REDIS_PASSWORD"`
	RedisDB       int           `env:"CONTACTS_REDIS_DB" envDefault:"0"`
	UserCacheTTL  time.Duration `env:"CONTACTS_USER_CACHE_TTL" envDefault:"5m"`

	RateLimitAttempts int           `env:"CONTACTS_RATE_LIMIT_ATTEMPTS" envDefault:"5"`
	RateLimitWindow   time.Duration `env:"CONTACTS_RATE_LIMIT_WINDOW" envDefault:"10s"`

	SMTPHost     string `env:"CONTACTS_SMTP_HOST"`
	SMTPPort     string `env:"CONTACTS_SMTP_PORT" envDefault:"465"`
	SMTPUser     string `env:"CONTACTS_SMTP_USER"`
	SMTPPassword string `env:"CONTACTS_SMTP_PASSWORD"`
	SMTPFrom     string `env:"CONTACTS_SMTP_FROM"`
	SMTPSecurity string `env:"CONTACTS_SMTP_SECURITY" envDefault:"ssl"`

	S3Region       string `env:"CONTACTS_S3_REGION" envDefault:"us-east-1"`
	S3AccessKey    string `env:"CONTACTS_S3_ACCESS_KEY"`
	S3SecretKey    string `env:"CONTACTS_S3_SECRET_KEY"`
	S3BaseEndpoint string `env:"CONTACTS_S3_ENDPOINT"`
	S3Bucket       string `env:"CONTACTS_S3_BUCKET" envDefault:"avatars"`

	NATSURL           string `env:"NATS_URL"`
	NATSVerifySubject string `env:"NATS_SUBJECT_VERIFY_JWT" envDefault:"contacts.verifyJWT"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	// The limiter derives a per-attempt interval from this value, so zero or
	// negative settings would be unusable.
	if cfg.RateLimitAttempts < 1 {
		cfg.RateLimitAttempts = 1
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
