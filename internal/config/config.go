package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Booking configuration
	Booking BookingConfig

	// Cancellation fee configuration
	Cancellation CancellationConfig

	// Low-occupancy remediation configuration
	Remediation RemediationConfig

	// Payment callback configuration
	Payment PaymentConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	TimeZone    string // business time zone used for day counting
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	MigrateOnStart     bool
}

// JWTConfig holds the secret used to verify access tokens issued by the auth service
type JWTConfig struct {
	Secret string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// BookingConfig holds booking creation limits
type BookingConfig struct {
	MaxParticipants int
	CodePrefix      string
}

// FeeTier charges Percent of the final amount when at least MinDays remain before the tour
type FeeTier struct {
	MinDays int
	Percent float64
}

// CancellationConfig holds the cancellation fee schedule
type CancellationConfig struct {
	// Tiers sorted by MinDays descending; the last tier must start at 0
	Tiers []FeeTier
	// UnknownDatePercent applies when the tour date cannot be resolved
	UnknownDatePercent float64
}

// RemediationConfig holds the low-occupancy remediation policy
type RemediationConfig struct {
	WindowDays           int
	EarlyPromoMinDays    int // days >= this: early promo
	LatePromoMinDays     int // days >= this (and < EarlyPromoMinDays): late promo; below: urgent
	MinOccupancyRatio    float64
	CancelOccupancyRatio float64
	EarlyDiscountPercent float64
	LateDiscountPercent  float64
	SurchargePercent     float64
	VoucherMaxUsage      int
	DailyCron            string
	UrgentCron           string
	Enabled              bool
}

// PaymentConfig holds the payment collaborator callback settings
type PaymentConfig struct {
	CallbackSecret string
}

// DefaultFeeTiers is the standard cancellation schedule: >10 days 15%, 6-10 days 40%, 3-5 days 75%, otherwise 100%
func DefaultFeeTiers() []FeeTier {
	return []FeeTier{
		{MinDays: 11, Percent: 15},
		{MinDays: 6, Percent: 40},
		{MinDays: 3, Percent: 75},
		{MinDays: 0, Percent: 100},
	}
}

// DefaultRemediationConfig returns the standard remediation policy
func DefaultRemediationConfig() RemediationConfig {
	return RemediationConfig{
		WindowDays:           10,
		EarlyPromoMinDays:    8,
		LatePromoMinDays:     3,
		MinOccupancyRatio:    0.5,
		CancelOccupancyRatio: 0.3,
		EarlyDiscountPercent: 20,
		LateDiscountPercent:  30,
		SurchargePercent:     20,
		VoucherMaxUsage:      100,
		DailyCron:            "0 0 1 * * *",
		UrgentCron:           "0 0 */4 * * *",
		Enabled:              true,
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	tiers, err := parseFeeTiers(getEnv("CANCELLATION_FEE_TIERS", ""))
	if err != nil {
		return nil, err
	}

	rem := DefaultRemediationConfig()

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			TimeZone:    getEnv("BUSINESS_TIME_ZONE", "Asia/Ho_Chi_Minh"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 300*time.Second),
			MigrateOnStart:     getEnvAsBool("DATABASE_MIGRATE_ON_START", true),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Booking: BookingConfig{
			MaxParticipants: getEnvAsInt("BOOKING_MAX_PARTICIPANTS", 50),
			CodePrefix:      getEnv("BOOKING_CODE_PREFIX", "TB"),
		},
		Cancellation: CancellationConfig{
			Tiers:              tiers,
			UnknownDatePercent: getEnvAsFloat("CANCELLATION_UNKNOWN_DATE_PERCENT", 100),
		},
		Remediation: RemediationConfig{
			WindowDays:           getEnvAsInt("REMEDIATION_WINDOW_DAYS", rem.WindowDays),
			EarlyPromoMinDays:    getEnvAsInt("REMEDIATION_EARLY_PROMO_MIN_DAYS", rem.EarlyPromoMinDays),
			LatePromoMinDays:     getEnvAsInt("REMEDIATION_LATE_PROMO_MIN_DAYS", rem.LatePromoMinDays),
			MinOccupancyRatio:    getEnvAsFloat("REMEDIATION_MIN_OCCUPANCY_RATIO", rem.MinOccupancyRatio),
			CancelOccupancyRatio: getEnvAsFloat("REMEDIATION_CANCEL_OCCUPANCY_RATIO", rem.CancelOccupancyRatio),
			EarlyDiscountPercent: getEnvAsFloat("REMEDIATION_EARLY_DISCOUNT_PERCENT", rem.EarlyDiscountPercent),
			LateDiscountPercent:  getEnvAsFloat("REMEDIATION_LATE_DISCOUNT_PERCENT", rem.LateDiscountPercent),
			SurchargePercent:     getEnvAsFloat("REMEDIATION_SURCHARGE_PERCENT", rem.SurchargePercent),
			VoucherMaxUsage:      getEnvAsInt("REMEDIATION_VOUCHER_MAX_USAGE", rem.VoucherMaxUsage),
			DailyCron:            getEnv("REMEDIATION_DAILY_CRON", rem.DailyCron),
			UrgentCron:           getEnv("REMEDIATION_URGENT_CRON", rem.UrgentCron),
			Enabled:              getEnvAsBool("REMEDIATION_ENABLED", rem.Enabled),
		},
		Payment: PaymentConfig{
			CallbackSecret: getEnv("PAYMENT_CALLBACK_SECRET", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Payment.CallbackSecret == "" && c.Server.Environment == "production" {
		return fmt.Errorf("PAYMENT_CALLBACK_SECRET is required in production")
	}

	if c.Booking.MaxParticipants < 1 {
		return fmt.Errorf("BOOKING_MAX_PARTICIPANTS must be at least 1")
	}

	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		return fmt.Errorf("invalid BUSINESS_TIME_ZONE %q: %w", c.Server.TimeZone, err)
	}

	if err := c.Cancellation.Validate(); err != nil {
		return err
	}

	return c.Remediation.Validate()
}

// Validate checks that fee tiers are ordered and cover day zero
func (c CancellationConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one cancellation fee tier is required")
	}
	for i, tier := range c.Tiers {
		if tier.Percent < 0 || tier.Percent > 100 {
			return fmt.Errorf("cancellation fee tier %d: percent must be within 0-100", i)
		}
		if i > 0 && tier.MinDays >= c.Tiers[i-1].MinDays {
			return fmt.Errorf("cancellation fee tiers must be sorted by min days descending")
		}
	}
	if c.Tiers[len(c.Tiers)-1].MinDays != 0 {
		return fmt.Errorf("last cancellation fee tier must start at 0 days")
	}
	if c.UnknownDatePercent < 0 || c.UnknownDatePercent > 100 {
		return fmt.Errorf("CANCELLATION_UNKNOWN_DATE_PERCENT must be within 0-100")
	}
	return nil
}

// Validate checks that the remediation tier boundaries are consistent
func (r RemediationConfig) Validate() error {
	if r.WindowDays < 1 {
		return fmt.Errorf("REMEDIATION_WINDOW_DAYS must be at least 1")
	}
	if r.LatePromoMinDays < 0 || r.EarlyPromoMinDays <= r.LatePromoMinDays {
		return fmt.Errorf("remediation tier boundaries must satisfy 0 <= late (%d) < early (%d)",
			r.LatePromoMinDays, r.EarlyPromoMinDays)
	}
	if r.CancelOccupancyRatio > r.MinOccupancyRatio {
		return fmt.Errorf("REMEDIATION_CANCEL_OCCUPANCY_RATIO must not exceed REMEDIATION_MIN_OCCUPANCY_RATIO")
	}
	if r.EarlyDiscountPercent == r.LateDiscountPercent {
		// Promo codes are derived from the percent
		return fmt.Errorf("early and late promo discounts must differ")
	}
	if r.VoucherMaxUsage < 1 {
		return fmt.Errorf("REMEDIATION_VOUCHER_MAX_USAGE must be at least 1")
	}
	return nil
}

// Location resolves the business time zone, falling back to UTC
func (s ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseFeeTiers parses "11:15,6:40,3:75,0:100" (min days:percent)
func parseFeeTiers(raw string) ([]FeeTier, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFeeTiers(), nil
	}

	var tiers []FeeTier
	for _, part := range getSliceFromString(raw) {
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid CANCELLATION_FEE_TIERS entry %q (expected days:percent)", part)
		}
		days, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid CANCELLATION_FEE_TIERS days %q: %w", pieces[0], err)
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(pieces[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CANCELLATION_FEE_TIERS percent %q: %w", pieces[1], err)
		}
		tiers = append(tiers, FeeTier{MinDays: days, Percent: percent})
	}

	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinDays > tiers[j].MinDays })
	return tiers, nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5m") or plain seconds ("300")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	result := getSliceFromString(os.Getenv(key))
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func getSliceFromString(valueStr string) []string {
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
