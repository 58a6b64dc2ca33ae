package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Fare          FareConfig          `mapstructure:"fare"`
	Booking       BookingConfig       `mapstructure:"booking"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	BCryptCost          int           `mapstructure:"bcrypt_cost"`
}

// PaymentConfig holds the gateway credentials. KeySecret doubles as the
// HMAC key for checkout signatures.
type PaymentConfig struct {
	GatewayURL    string        `mapstructure:"gateway_url"`
	KeyID         string        `mapstructure:"key_id"`
	KeySecret     string        `mapstructure:"key_secret"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type FareConfig struct {
	Policy     string `mapstructure:"policy"`
	FlatAmount string `mapstructure:"flat_amount"`
	BaseAmount string `mapstructure:"base_amount"`
	PerStop    string `mapstructure:"per_stop"`
	MaxAmount  string `mapstructure:"max_amount"`
}

type BookingConfig struct {
	GraceWindow    time.Duration `mapstructure:"grace_window"`
	PendingExpiry  time.Duration `mapstructure:"pending_expiry"`
	CheckoutExpiry time.Duration `mapstructure:"checkout_expiry"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	Timezone       string        `mapstructure:"timezone"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ApplyDefaults fills optional settings left empty by the config source.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 10 * time.Second
	}
	if c.Fare.Policy == "" {
		c.Fare.Policy = "flat"
	}
	if c.Fare.FlatAmount == "" {
		c.Fare.FlatAmount = "50.00"
	}
	if c.Booking.GraceWindow == 0 {
		c.Booking.GraceWindow = 24 * time.Hour
	}
	if c.Booking.PendingExpiry == 0 {
		c.Booking.PendingExpiry = 30 * time.Minute
	}
	if c.Booking.CheckoutExpiry == 0 {
		c.Booking.CheckoutExpiry = 2 * time.Hour
	}
	if c.Booking.SweepInterval == 0 {
		c.Booking.SweepInterval = time.Minute
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Asia/Kolkata"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// LoadConfigFromEnv builds the configuration from environment variables,
// reading a .env file first when one is present.
func LoadConfigFromEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AccessTokenDuration: getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 10),
		},
		Payment: PaymentConfig{
			GatewayURL:    getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "INR"),
			Timeout:       getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Fare: FareConfig{
			Policy:     getEnv("FARE_POLICY", "flat"),
			FlatAmount: getEnv("FARE_FLAT_AMOUNT", "50.00"),
			BaseAmount: getEnv("FARE_BASE_AMOUNT", ""),
			PerStop:    getEnv("FARE_PER_STOP", ""),
			MaxAmount:  getEnv("FARE_MAX_AMOUNT", ""),
		},
		Booking: BookingConfig{
			GraceWindow:    getEnvAsDuration("BOOKING_GRACE_WINDOW", 24*time.Hour),
			PendingExpiry:  getEnvAsDuration("BOOKING_PENDING_EXPIRY", 30*time.Minute),
			CheckoutExpiry: getEnvAsDuration("BOOKING_CHECKOUT_EXPIRY", 2*time.Hour),
			SweepInterval:  getEnvAsDuration("BOOKING_SWEEP_INTERVAL", time.Minute),
			Timezone:       getEnv("BOOKING_TIMEZONE", "Asia/Kolkata"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Fare.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("fare config: %v", err))
	}

	if err := c.Booking.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("booking config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return fmt.Errorf("bcrypt_cost %d out of range", c.BCryptCost)
	}
	return nil
}

func (c *PaymentConfig) Validate() error {
	if c.KeyID == "" {
		return errors.New("key_id is required")
	}
	if c.KeySecret == "" {
		return errors.New("key_secret is required")
	}
	if _, err := url.ParseRequestURI(c.GatewayURL); err != nil {
		return fmt.Errorf("invalid gateway_url: %w", err)
	}
	return nil
}

func (c *FareConfig) Validate() error {
	switch c.Policy {
	case "flat":
		return validatePositiveAmount("flat_amount", c.FlatAmount)
	case "stops":
		if err := validatePositiveAmount("base_amount", c.BaseAmount); err != nil {
			return err
		}
		if err := validatePositiveAmount("per_stop", c.PerStop); err != nil {
			return err
		}
		return validatePositiveAmount("max_amount", c.MaxAmount)
	default:
		return fmt.Errorf("unknown fare policy %q", c.Policy)
	}
}

func validatePositiveAmount(field, value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func (c *BookingConfig) Validate() error {
	if c.GraceWindow <= 0 {
		return errors.New("grace_window must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the metro time zone, falling back to UTC.
func (c *BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
