package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=tero port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string

	LogLevel  string
	LogFormat string

	RedisAddr         string
	DashboardCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	VariationWindow      time.Duration
	VariationThreshold   float64
	DashboardTopN        int
	MarginCriticalFactor float64
	DefaultTargetMargin  float64
	DefaultTaxPct        float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL_HOURS", 168)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 60)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "tero.ledger")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("VARIATION_WINDOW_DAYS", 14)
	v.SetDefault("VARIATION_THRESHOLD_PCT", 5.0)
	v.SetDefault("DASHBOARD_TOP_N", 10)
	v.SetDefault("MARGIN_CRITICAL_FACTOR", 0.8)
	v.SetDefault("DEFAULT_TARGET_MARGIN", 0.75)
	v.SetDefault("DEFAULT_TAX_PCT", 21.0)
}

// Load reads .env (outside production), the optional config file and the
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("no se pudo leer el archivo de configuración: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPPort:    v.GetString("HTTP_PORT"),
		DatabaseDSN: v.GetString("DATABASE_DSN"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTTTL:      time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
		CORSOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		RedisAddr:         v.GetString("REDIS_ADDR"),
		DashboardCacheTTL: time.Duration(v.GetInt("DASHBOARD_CACHE_TTL_SECONDS")) * time.Second,

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		S3Bucket:    v.GetString("S3_BUCKET"),
		S3Region:    v.GetString("S3_REGION"),
		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),

		VariationWindow:      time.Duration(v.GetInt("VARIATION_WINDOW_DAYS")) * 24 * time.Hour,
		VariationThreshold:   v.GetFloat64("VARIATION_THRESHOLD_PCT"),
		DashboardTopN:        v.GetInt("DASHBOARD_TOP_N"),
		MarginCriticalFactor: v.GetFloat64("MARGIN_CRITICAL_FACTOR"),
		DefaultTargetMargin:  v.GetFloat64("DEFAULT_TARGET_MARGIN"),
		DefaultTaxPct:        v.GetFloat64("DEFAULT_TAX_PCT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.warn()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET no está definido")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET debe tener al menos 32 caracteres")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL_HOURS debe ser positivo")
	}
	if c.DefaultTargetMargin < 0 || c.DefaultTargetMargin >= 1 {
		return errors.New("DEFAULT_TARGET_MARGIN debe estar en [0, 1)")
	}
	if c.MarginCriticalFactor <= 0 || c.MarginCriticalFactor > 1 {
		return errors.New("MARGIN_CRITICAL_FACTOR debe estar en (0, 1]")
	}
	if c.VariationWindow <= 0 {
		return errors.New("VARIATION_WINDOW_DAYS debe ser positivo")
	}
	return nil
}

func (c *Config) warn() {
	if c.DatabaseDSN == defaultDSN {
		slog.Warn("DATABASE_DSN usa el valor por defecto, definí tu conexión a Postgres para producción")
	}
	if c.CORSOrigins == "http://localhost:3000" {
		slog.Warn("CORS_ALLOWED_ORIGINS usa el valor por defecto")
	}
	if c.S3Bucket != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		slog.Warn("S3_BUCKET definido sin claves de acceso, se usa la cadena de credenciales por defecto de AWS")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
