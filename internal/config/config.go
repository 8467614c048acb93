// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyAppEnv                = "APP_ENV"
	KeyLogLevel              = "LOG_LEVEL"
	KeyHTTPPort              = "HTTP_PORT"
	KeyMongoURI              = "MONGO_URI"
	KeyMongoDB               = "MONGO_DB"
	KeyStripeSecretKey       = "STRIPE_SECRET_KEY"
	KeyDonationCurrency      = "DONATION_CURRENCY"
	KeyCORSAllowedOrigins    = "CORS_ALLOWED_ORIGINS"
	KeyRequireIdempotencyKey = "REQUIRE_IDEMPOTENCY_KEY"
	KeyTelegramToken         = "TELEGRAM_TOKEN"
	KeyAdminTelegramID       = "ADMIN_TELEGRAM_ID"
	KeyBootstrapAdminIDs     = "BOOTSTRAP_ADMIN_IDS"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv           = EnvProduction
	DefaultLogLevel         = "info"
	DefaultHTTPPort         = 8080
	DefaultDonationCurrency = "usd"
	DefaultCORSOrigin       = "*"

	// Recommended database names by environment.
	DefaultMongoDBProd = "church_app"
	DefaultMongoDBDev  = "church_app_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the process must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string for the user profile store.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyStripeSecretKey,
		Example:     "sk_test_...",
		Description: "Stripe secret key used to create donation payment intents.",
		Notes:       "Required by the HTTP server; the admin CLI does not need it.",
	},
	{
		Key:         KeyDonationCurrency,
		Example:     DefaultDonationCurrency,
		Default:     DefaultDonationCurrency,
		Description: "ISO currency code applied to every donation intent.",
	},
	{
		Key:         KeyCORSAllowedOrigins,
		Example:     "https://app.example.org,https://admin.example.org",
		Default:     DefaultCORSOrigin,
		Description: "Comma separated origins allowed to call the donation endpoint.",
	},
	{
		Key:         KeyRequireIdempotencyKey,
		Example:     "true",
		Default:     "false",
		Description: "Reject donation requests that carry no Idempotency-Key header.",
	},
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Description: "Telegram bot token for the admin console bot.",
		Notes:       "The bot is disabled when unset.",
	},
	{
		Key:         KeyAdminTelegramID,
		Example:     "123456789",
		Description: "Telegram user_id allowed to run admin bot commands.",
		Notes:       "Required when " + KeyTelegramToken + " is set.",
	},
	{
		Key:         KeyBootstrapAdminIDs,
		Example:     "uid-1,uid-2",
		Description: "Comma separated profile ids promoted to admin when the server starts.",
		Notes:       "Profiles must already exist; missing ids are logged and skipped.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP port for the donation API, health and metrics.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	AppEnv                string
	LogLevel              string
	HTTPPort              int
	MongoURI              string
	MongoDB               string
	StripeSecretKey       string
	DonationCurrency      string
	CORSAllowedOrigins    []string
	RequireIdempotencyKey bool
	TelegramToken         string
	AdminTelegramID       int64
	BootstrapAdminIDs     []string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		LogLevel:           firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:           DefaultHTTPPort,
		MongoURI:           strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:            strings.TrimSpace(os.Getenv(KeyMongoDB)),
		StripeSecretKey:    strings.TrimSpace(os.Getenv(KeyStripeSecretKey)),
		DonationCurrency:   strings.ToLower(firstNonEmpty(os.Getenv(KeyDonationCurrency), DefaultDonationCurrency)),
		CORSAllowedOrigins: splitList(firstNonEmpty(os.Getenv(KeyCORSAllowedOrigins), DefaultCORSOrigin)),
		TelegramToken:      strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		BootstrapAdminIDs:  splitList(os.Getenv(KeyBootstrapAdminIDs)),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	adminRaw := strings.TrimSpace(os.Getenv(KeyAdminTelegramID))
	if cfg.TelegramToken != "" && adminRaw == "" {
		missing = append(missing, KeyAdminTelegramID)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if err := validateMongoURI(cfg.MongoURI); err != nil {
		return Config{}, err
	}

	if adminRaw != "" {
		adminID, parseErr := strconv.ParseInt(adminRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyAdminTelegramID, parseErr)
		}
		cfg.AdminTelegramID = adminID
	}

	if len(cfg.DonationCurrency) != 3 {
		return Config{}, fmt.Errorf("invalid %s: expected a 3 letter currency code, got %q", KeyDonationCurrency, cfg.DonationCurrency)
	}

	if raw := strings.TrimSpace(os.Getenv(KeyRequireIdempotencyKey)); raw != "" {
		require, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyRequireIdempotencyKey, parseErr)
		}
		cfg.RequireIdempotencyKey = require
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server depends on.
func (c Config) ValidateServer() error {
	if strings.TrimSpace(c.StripeSecretKey) == "" {
		return fmt.Errorf("missing required environment variable(s): %s", KeyStripeSecretKey)
	}
	return nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// TelegramEnabled reports whether the admin bot should be started.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// FormatRedacted renders the configuration for display with secrets masked.
func FormatRedacted(cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "app_env: %s\n", cfg.AppEnv)
	fmt.Fprintf(&b, "log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "http_port: %d\n", cfg.HTTPPort)
	fmt.Fprintf(&b, "mongo_uri: %s\n", redactURI(cfg.MongoURI))
	fmt.Fprintf(&b, "mongo_db: %s\n", cfg.MongoDB)
	fmt.Fprintf(&b, "stripe_secret_key: %s\n", maskSecret(cfg.StripeSecretKey))
	fmt.Fprintf(&b, "donation_currency: %s\n", cfg.DonationCurrency)
	fmt.Fprintf(&b, "cors_allowed_origins: %s\n", strings.Join(cfg.CORSAllowedOrigins, ","))
	fmt.Fprintf(&b, "require_idempotency_key: %t\n", cfg.RequireIdempotencyKey)
	fmt.Fprintf(&b, "telegram_token: %s\n", maskSecret(cfg.TelegramToken))
	fmt.Fprintf(&b, "admin_telegram_id: %d\n", cfg.AdminTelegramID)
	fmt.Fprintf(&b, "bootstrap_admin_ids: %s", strings.Join(cfg.BootstrapAdminIDs, ","))

	return b.String()
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func validateMongoURI(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyMongoURI, err)
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return fmt.Errorf("invalid %s: scheme must be mongodb or mongodb+srv", KeyMongoURI)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s: host is required", KeyMongoURI)
	}
	return nil
}

func redactURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}

func maskSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 4 {
		return "...redacted"
	}
	return value[:4] + "...redacted"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
