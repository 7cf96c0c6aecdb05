package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	CurrencyCode       string

	// Pricing pipeline constants. Whole rupees throughout.
	FreeShippingThreshold int64
	LocalPincode          string
	LocalShippingFee      int64
	RemoteShippingFee     int64
	DefaultShippingFee    int64
	TaxRateBps            int
	MaxQtyPerItem         int
	Coupons               []pricing.Coupon

	CartTTL           time.Duration
	CatalogCacheTTL   time.Duration
	AnalyticsCacheTTL time.Duration
	IdempotencyTTL    time.Duration

	OTPTTL           time.Duration
	OTPRequestLimit  int
	OTPRequestWindow time.Duration
	AccessTokenTTL   time.Duration
	AdminContacts    []string

	GlobalRateLimit string
	EmailFrom       string
}

// The canonical coupon set. The original storefront shipped divergent tables
// on the cart and checkout pages; this list is the single source of truth and
// can be replaced wholesale via COUPONS_JSON.
var defaultCoupons = []pricing.Coupon{
	{Code: "WELCOME10", Kind: pricing.CouponPercent, Value: 10, MinOrder: 100},
	{Code: "SAVE50", Kind: pricing.CouponFixed, Value: 50, MinOrder: 200},
	{Code: "DIWALI20", Kind: pricing.CouponPercent, Value: 20, MinOrder: 300},
	{Code: "FREESHIP", Kind: pricing.CouponFixed, Value: 50, MinOrder: 0},
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8000"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "INR"),

		FreeShippingThreshold: parseInt64(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), 500),
		LocalPincode:          valueOrDefault(k.String("PRICING_LOCAL_PINCODE"), "485001"),
		LocalShippingFee:      parseInt64(k.String("PRICING_LOCAL_SHIPPING_FEE"), 30),
		RemoteShippingFee:     parseInt64(k.String("PRICING_REMOTE_SHIPPING_FEE"), 60),
		DefaultShippingFee:    parseInt64(k.String("PRICING_DEFAULT_SHIPPING_FEE"), 50),
		TaxRateBps:            int(parseInt64(k.String("PRICING_TAX_RATE_BPS"), 1800)),
		MaxQtyPerItem:         int(parseInt64(k.String("PRICING_MAX_QTY_PER_ITEM"), 10)),

		CartTTL:           parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "1m"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		OTPTTL:           parseDuration(k.String("OTP_TTL"), "5m"),
		OTPRequestLimit:  int(parseInt64(k.String("OTP_REQUEST_LIMIT"), 3)),
		OTPRequestWindow: parseDuration(k.String("OTP_REQUEST_WINDOW"), "10m"),
		AccessTokenTTL:   parseDuration(k.String("ACCESS_TOKEN_TTL"), "24h"),
		AdminContacts:    splitAndTrim(k.String("ADMIN_CONTACTS")),

		GlobalRateLimit: valueOrDefault(k.String("GLOBAL_RATE_LIMIT"), "300-M"),
		EmailFrom:       valueOrDefault(k.String("EMAIL_FROM"), "orders@rasoiyaafood.com"),
	}

	coupons, err := parseCoupons(k.String("COUPONS_JSON"))
	if err != nil {
		return nil, err
	}
	cfg.Coupons = coupons

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// PricingEngine assembles the shared pricing engine from configuration. Every
// surface that shows a total (cart, checkout, order record) must go through
// the engine returned here so the numbers never drift.
func (c *Config) PricingEngine(catalog pricing.Resolver) pricing.Engine {
	return pricing.Engine{
		Catalog: catalog,
		Coupons: pricing.NewCouponTable(c.Coupons),
		Shipping: pricing.ShippingRule{
			FreeThreshold:   c.FreeShippingThreshold,
			LocalPostalCode: c.LocalPincode,
			LocalFee:        c.LocalShippingFee,
			RemoteFee:       c.RemoteShippingFee,
			DefaultFee:      c.DefaultShippingFee,
		},
		TaxBps:        c.TaxRateBps,
		MaxQtyPerItem: c.MaxQtyPerItem,
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsAdmin reports whether the contact is configured as an admin.
func (c *Config) IsAdmin(contact string) bool {
	needle := strings.ToLower(strings.TrimSpace(contact))
	for _, admin := range c.AdminContacts {
		if strings.ToLower(admin) == needle {
			return true
		}
	}
	return false
}

func parseCoupons(raw string) ([]pricing.Coupon, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultCoupons, nil
	}
	var coupons []pricing.Coupon
	if err := json.Unmarshal([]byte(trimmed), &coupons); err != nil {
		return nil, fmt.Errorf("parse COUPONS_JSON: %w", err)
	}
	return coupons, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests lets tests override environment variables and restores the
// previous values afterwards.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
