// Package config loads the sender configuration from a Java-style
// .properties file, with environment overrides.
//
// Every key can be overridden by an environment variable named
// CORRECTIONS_<KEY IN UPPER CASE>, e.g. CORRECTIONS_THREADS or
// CORRECTIONS_REQUESTSPERSECOND.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "application.properties"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CORRECTIONS"

// Property keys.
const (
	KeyAPIURL                  = "apiUrl"
	KeyPaymentInfoURL          = "paymentInfoUrl"
	KeyRecordsFile             = "recordsFile"
	KeyKeysFile                = "keysFile"
	KeyThreads                 = "threads"
	KeyRequestsPerSecond       = "requestsPerSecond"
	KeyMaxRetries              = "maxRetries"
	KeyInitialRetryMillis      = "initialRetryMillis"
	KeyRequestTimeoutSeconds   = "requestTimeoutSeconds"
	KeySuccessLogPath          = "successLogPath"
	KeyFailedLogPath           = "failedLogPath"
	KeyLogLevel                = "logLevel"
	KeyRedisAddr               = "redisAddr"
	KeyRedisPassword           = "redisPassword"
	KeyRedisDB                 = "redisDb"
	KeyPaymentInfoCacheSeconds = "paymentInfoCacheSeconds"
)

// ErrMissingKey is returned when a required key has no value.
var ErrMissingKey = errors.New("missing required configuration key")

// ErrInvalidValue is returned when a key cannot be parsed or is out of range.
var ErrInvalidValue = errors.New("invalid configuration value")

var requiredKeys = []string{
	KeyAPIURL,
	KeyRecordsFile,
	KeyKeysFile,
	KeyThreads,
	KeyRequestsPerSecond,
	KeyMaxRetries,
	KeyInitialRetryMillis,
	KeySuccessLogPath,
	KeyFailedLogPath,
}

// Config is the immutable run configuration.
type Config struct {
	APIURL         string
	PaymentInfoURL string

	RecordsFile string
	KeysFile    string

	Threads           int
	RequestsPerSecond int

	MaxRetries     int
	InitialRetry   time.Duration
	RequestTimeout time.Duration

	SuccessLogPath string
	FailedLogPath  string

	LogLevel string

	Redis               RedisConfig
	PaymentInfoCacheTTL time.Duration
}

// RedisConfig holds the optional Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPaymentInfoURL, "https://api.cloudpayments.ru/payments/get")
	v.SetDefault(KeyRequestTimeoutSeconds, 50)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyPaymentInfoCacheSeconds, 300)
}

// Load reads the properties file at path (DefaultPath when empty) and
// applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var errs []error
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, key))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	p := parser{v: v}
	cfg := &Config{
		APIURL:              p.str(KeyAPIURL),
		PaymentInfoURL:      p.str(KeyPaymentInfoURL),
		RecordsFile:         p.str(KeyRecordsFile),
		KeysFile:            p.str(KeyKeysFile),
		Threads:             p.integer(KeyThreads),
		RequestsPerSecond:   p.integer(KeyRequestsPerSecond),
		MaxRetries:          p.integer(KeyMaxRetries),
		InitialRetry:        time.Duration(p.integer(KeyInitialRetryMillis)) * time.Millisecond,
		RequestTimeout:      time.Duration(p.integer(KeyRequestTimeoutSeconds)) * time.Second,
		SuccessLogPath:      p.str(KeySuccessLogPath),
		FailedLogPath:       p.str(KeyFailedLogPath),
		LogLevel:            p.str(KeyLogLevel),
		PaymentInfoCacheTTL: time.Duration(p.integer(KeyPaymentInfoCacheSeconds)) * time.Second,
		Redis: RedisConfig{
			Addr:     p.str(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       p.integer(KeyRedisDB),
		},
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. RequestsPerSecond below 1 is raised to 1.
func (c *Config) Validate() error {
	var errs []error

	for key, raw := range map[string]string{KeyAPIURL: c.APIURL, KeyPaymentInfoURL: c.PaymentInfoURL} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %s=%q must be an absolute URL", ErrInvalidValue, key, raw))
		}
	}
	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 1 (got %d)", ErrInvalidValue, KeyThreads, c.Threads))
	}
	if c.RequestsPerSecond < 1 {
		c.RequestsPerSecond = 1
	}
	if c.InitialRetry < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 0", ErrInvalidValue, KeyInitialRetryMillis))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be > 0", ErrInvalidValue, KeyRequestTimeoutSeconds))
	}

	return errors.Join(errs...)
}

// parser collects conversion errors so every bad key is reported at once.
type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

// integer reads key as a base-10 integer. Leading zeros are decimal, not octal.
func (p *parser) integer(key string) int {
	var (
		n   int
		err error
	)
	if s, ok := p.v.Get(key).(string); ok {
		n, err = strconv.Atoi(strings.TrimSpace(s))
	} else {
		n, err = cast.ToIntE(p.v.Get(key))
	}
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidValue, key, p.v.Get(key)))
		return 0
	}
	return n
}
