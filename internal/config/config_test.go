package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validProperties = `# correction sender
apiUrl=https://api.example.com/kkt/correction
recordsFile=corrections.xlsx
keysFile=keys.xlsx
threads=8
requestsPerSecond=5
maxRetries=3
initialRetryMillis=1000
successLogPath=success.log
failedLogPath=failed.log
`

func writeProperties(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeProperties(t, validProperties))
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com/kkt/correction", cfg.APIURL)
	require.Equal(t, "corrections.xlsx", cfg.RecordsFile)
	require.Equal(t, "keys.xlsx", cfg.KeysFile)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, 5, cfg.RequestsPerSecond)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, time.Second, cfg.InitialRetry)
	require.Equal(t, "success.log", cfg.SuccessLogPath)
	require.Equal(t, "failed.log", cfg.FailedLogPath)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeProperties(t, validProperties))
	require.NoError(t, err)

	require.Equal(t, "https://api.cloudpayments.ru/payments/get", cfg.PaymentInfoURL)
	require.Equal(t, 50*time.Second, cfg.RequestTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.Redis.Enabled())
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, 5*time.Minute, cfg.PaymentInfoCacheTTL)
}

func TestLoad_OptionalKeys(t *testing.T) {
	content := validProperties + `redisAddr=localhost:6379
redisPassword=hunter2
redisDb=3
paymentInfoCacheSeconds=60
requestTimeoutSeconds=10
logLevel=debug
`
	cfg, err := Load(writeProperties(t, content))
	require.NoError(t, err)

	require.True(t, cfg.Redis.Enabled())
	require.Equal(t, RedisConfig{Addr: "localhost:6379", Password: "hunter2", DB: 3}, cfg.Redis)
	require.Equal(t, time.Minute, cfg.PaymentInfoCacheTTL)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CORRECTIONS_THREADS", "16")
	t.Setenv("CORRECTIONS_REQUESTSPERSECOND", "20")

	cfg, err := Load(writeProperties(t, validProperties))
	require.NoError(t, err)

	require.Equal(t, 16, cfg.Threads)
	require.Equal(t, 20, cfg.RequestsPerSecond)
}

func TestLoad_MissingKeys(t *testing.T) {
	content := strings.Replace(validProperties, "keysFile=keys.xlsx\n", "", 1)
	content = strings.Replace(content, "threads=8\n", "", 1)

	_, err := Load(writeProperties(t, content))
	require.ErrorIs(t, err, ErrMissingKey)
	require.Contains(t, err.Error(), KeyKeysFile)
	require.Contains(t, err.Error(), KeyThreads)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantMsg string
	}{
		{
			name:    "non-numeric threads",
			replace: [2]string{"threads=8", "threads=many"},
			wantMsg: "threads",
		},
		{
			name:    "zero threads",
			replace: [2]string{"threads=8", "threads=0"},
			wantMsg: "threads must be >= 1",
		},
		{
			name:    "relative api url",
			replace: [2]string{"apiUrl=https://api.example.com/kkt/correction", "apiUrl=/kkt/correction"},
			wantMsg: "absolute URL",
		},
		{
			name:    "negative initial retry",
			replace: [2]string{"initialRetryMillis=1000", "initialRetryMillis=-5"},
			wantMsg: "initialRetryMillis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validProperties, tt.replace[0], tt.replace[1], 1)
			_, err := Load(writeProperties(t, content))
			require.ErrorIs(t, err, ErrInvalidValue)
			require.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_RequestsPerSecondClamped(t *testing.T) {
	content := strings.Replace(validProperties, "requestsPerSecond=5", "requestsPerSecond=0", 1)
	cfg, err := Load(writeProperties(t, content))
	require.NoError(t, err)
	require.Equal(t, 1, cfg.RequestsPerSecond)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestLoad_PropertiesSyntax(t *testing.T) {
	content := `# sender settings
! legacy comment style
apiUrl = https://api.example.com/kkt/correction
recordsFile : corrections.xlsx
keysFile=keys.xlsx
threads   =   4
requestsPerSecond=5
maxRetries=3
initialRetryMillis=100
successLogPath=logs/success.log
failedLogPath=logs/failed.log
`
	cfg, err := Load(writeProperties(t, content))
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com/kkt/correction", cfg.APIURL)
	require.Equal(t, "corrections.xlsx", cfg.RecordsFile)
	require.Equal(t, 4, cfg.Threads)
	require.Equal(t, 100*time.Millisecond, cfg.InitialRetry)
	require.Equal(t, "logs/failed.log", cfg.FailedLogPath)
}

func TestLoad_IntegersAreDecimal(t *testing.T) {
	content := strings.Replace(validProperties, "requestsPerSecond=5", "requestsPerSecond=08", 1)
	content = strings.Replace(content, "threads=8", "threads=010", 1)

	cfg, err := Load(writeProperties(t, content))
	require.NoError(t, err)
	require.Equal(t, 8, cfg.RequestsPerSecond)
	require.Equal(t, 10, cfg.Threads)
}
