package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	AllowedOrigin     string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	StoreLabel        string
	AuthSecret        string
	AccessTokenTTL    time.Duration
	ReportLocation    *time.Location
	SettlementTimeout time.Duration
	EmailTimeout      time.Duration
	DraftTTL          time.Duration
	SESRegion         string
	SESFromEmail      string
	SESReplyTo        string
	SellerName        string
	SellerAddress     string
	SellerEmail       string
	CurrencySymbol    string
	LogLevel          string
	Environment       string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		StoreLabel:        getEnv("DEFAULT_STORE_LABEL", "main-store"),
		AuthSecret:        strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTL:    time.Duration(positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480)) * time.Minute,
		ReportLocation:    loadLocation(os.Getenv("REPORT_TIMEZONE")),
		SettlementTimeout: time.Duration(positiveInt("SETTLEMENT_TIMEOUT_SECONDS", 10)) * time.Second,
		EmailTimeout:      time.Duration(positiveInt("EMAIL_TIMEOUT_SECONDS", 15)) * time.Second,
		DraftTTL:          time.Duration(positiveInt("DRAFT_TTL_HOURS", 24)) * time.Hour,
		SESRegion:         getEnv("SES_AWS_REGION", os.Getenv("AWS_DEFAULT_REGION")),
		SESFromEmail:      strings.TrimSpace(os.Getenv("SES_FROM_EMAIL")),
		SESReplyTo:        strings.TrimSpace(os.Getenv("SES_REPLY_TO")),
		SellerName:        getEnv("SELLER_NAME", "Consigna Store"),
		SellerAddress:     os.Getenv("SELLER_ADDRESS"),
		SellerEmail:       os.Getenv("SELLER_EMAIL"),
		CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "$"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Environment:       strings.ToLower(getEnv("APP_ENV", "development")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// loadLocation falls back to the process local zone when name is empty or
// unknown to the tz database.
func loadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
