package config

import (
	"crypto/rand"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/netutil"
)

// minSecretLength is the shortest signing secret accepted in production.
const minSecretLength = 32

// ErrMissingSecret is returned by [Load] when the process runs in production
// without an explicit JWT_SECRET.
const ErrMissingSecret errors.Error = "JWT_SECRET must be set to at least 32 bytes in production"

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// JWTSecret signs session tokens.  When SecretGenerated is true it was
	// generated at startup and sessions do not survive a restart.
	JWTSecret       []byte
	SecretGenerated bool
	SessionTTL      time.Duration
	CookieSecure    bool

	RedisAddr          string
	LoginMaxAttempts   int
	LoginCooldown      time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int

	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	// Empty means the peer address is always the client address.
	TrustedProxies []netip.Prefix

	ImgBBAPIKey    string
	ImgBBEndpoint  string
	UploadMaxBytes int64

	PublicDir string
	LogLevel  string
	LogFormat string

	OTelEndpoint string
	OTelInsecure bool
}

// Production reports whether the service runs with APP_ENV=production.
func (c Config) Production() bool {
	return c.Env == "production"
}

func Load() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		env = "development"
	}

	cfg := Config{
		Port:               port,
		Env:                env,
		DatabaseURL:        os.Getenv("DB_DSN"),
		SessionTTL:         readDurationSeconds("SESSION_TTL_SECONDS", 86400),
		CookieSecure:       readBool("COOKIE_SECURE", env == "production"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		LoginMaxAttempts:   readInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:      readDurationSeconds("LOGIN_COOLDOWN_SECONDS", 900),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		ImgBBAPIKey:        os.Getenv("IMGBB_API_KEY"),
		ImgBBEndpoint:      readString("IMGBB_ENDPOINT", "https://api.imgbb.com/1/upload"),
		UploadMaxBytes:     int64(readInt("UPLOAD_MAX_BYTES", 2<<20)),
		PublicDir:          readString("PUBLIC_DIR", "./public"),
		LogLevel:           readString("LOG_LEVEL", "info"),
		LogFormat:          readString("LOG_FORMAT", "default"),
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelInsecure:       readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	var err error
	secret := os.Getenv("JWT_SECRET")
	switch {
	case len(secret) >= minSecretLength:
		cfg.JWTSecret = []byte(secret)
	case cfg.Production():
		return Config{}, ErrMissingSecret
	case secret != "":
		cfg.JWTSecret = []byte(secret)
	default:
		generated, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generating signing secret: %w", err)
		}
		cfg.JWTSecret = generated
		cfg.SecretGenerated = true
	}

	cfg.TrustedProxies, err = readPrefixes("TRUSTED_PROXIES")
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL <= 0 {
		return Config{}, errors.Error("SESSION_TTL_SECONDS must be positive")
	}

	return cfg, nil
}

func randomSecret() ([]byte, error) {
	b := make([]byte, minSecretLength)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// readPrefixes parses a comma-separated list of CIDRs or single addresses.
func readPrefixes(key string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(os.Getenv(key), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var p netutil.Prefix
		if err := p.UnmarshalText([]byte(field)); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

func readString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
