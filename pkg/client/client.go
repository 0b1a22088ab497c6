// Package client provides the payment API client used to submit receipt
// corrections and to look up prior transactions, with rate limiting, retry,
// and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/correction-sender/pkg/cache"
	"github.com/Sternrassler/correction-sender/pkg/payload"
	"github.com/Sternrassler/correction-sender/pkg/ratelimit"
	"github.com/Sternrassler/correction-sender/pkg/record"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPaymentInfoURL is the payment lookup endpoint of the production API.
const DefaultPaymentInfoURL = "https://api.cloudpayments.ru/payments/get"

const (
	operationSend        = "send"
	operationPaymentInfo = "payment_info"

	// maxBodyBytes caps how much of a response body is read into memory.
	maxBodyBytes = 1 << 20
)

// PaymentInfoCache stores successful payment lookups.
// *cache.Manager satisfies it.
type PaymentInfoCache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, entry *cache.Entry) error
}

// Client submits corrections to the payment API.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Acquirer
	cache      PaymentInfoCache
	retry      RetryPolicy
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIURL is the correction receipt endpoint (REQUIRED)
	APIURL string

	// PaymentInfoURL is the transaction lookup endpoint
	PaymentInfoURL string

	// Limiter is shared by every request the client issues (REQUIRED)
	Limiter ratelimit.Acquirer

	// RequestTimeout bounds a single HTTP exchange
	RequestTimeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// Caching of payment lookups; nil disables it
	Cache    PaymentInfoCache
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiURL string, limiter ratelimit.Acquirer) Config {
	return Config{
		APIURL:         apiURL,
		PaymentInfoURL: DefaultPaymentInfoURL,
		Limiter:        limiter,
		RequestTimeout: 50 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		CacheTTL:       5 * time.Minute,
	}
}

// New creates a new payment API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if _, err := url.ParseRequestURI(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	if cfg.PaymentInfoURL == "" {
		cfg.PaymentInfoURL = DefaultPaymentInfoURL
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.InitialBackoff < 0 {
		return nil, fmt.Errorf("initial_backoff must be >= 0 (got %s)", cfg.InitialBackoff)
	}

	logger := log.With().Str("component", "correction-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: cfg.Limiter,
		cache:   cfg.Cache,
		retry:   NewRetryPolicy(cfg.MaxRetries, cfg.InitialBackoff),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Outcome is the interpreted result of one correction submission.
type Outcome struct {
	Success    bool
	HTTPStatus int
	Body       string
}

// Line renders the outcome as "HTTP <code> <body>". The body is kept
// verbatim; the results sink folds embedded newlines.
func (o Outcome) Line() string {
	if o.Body == "" {
		return fmt.Sprintf("HTTP %d", o.HTTPStatus)
	}
	return fmt.Sprintf("HTTP %d %s", o.HTTPStatus, o.Body)
}

// apiResponse is the envelope shared by every payment API answer.
type apiResponse struct {
	Success *bool           `json:"Success"`
	Message *string         `json:"Message"`
	Model   json.RawMessage `json:"Model"`
}

// Send submits one correction record. Render failures are returned as a
// TerminalError before any token is spent. A rate-limit token is acquired
// for every attempt, so retries never exceed the configured request rate.
//
// Non-retryable non-200 statuses come back as an unsuccessful Outcome with a
// nil error; the error return is reserved for failures with no HTTP answer
// worth logging (render, transport, malformed body, exhausted retries).
func (c *Client) Send(ctx context.Context, rec record.Record, cred record.Credential) (Outcome, error) {
	body, err := payload.Render(rec)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return Outcome{}, &TerminalError{
			ErrorClass: ErrorClassClient,
			Message:    "render payload",
			Err:        err,
		}
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operationSend).Observe(time.Since(startTime).Seconds())
	}()

	return Execute(ctx, c.retry, func(ctx context.Context) (Outcome, error) {
		return c.sendOnce(ctx, []byte(body), cred)
	})
}

func (c *Client) sendOnce(ctx context.Context, body []byte, cred record.Credential) (Outcome, error) {
	status, respBody, err := c.post(ctx, operationSend, c.config.APIURL, body, cred)
	if err != nil {
		return Outcome{}, err
	}

	if status == http.StatusOK {
		ok, err := parseSuccess(respBody)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
			return Outcome{}, &TerminalError{
				StatusCode: status,
				ErrorClass: ErrorClassClient,
				Message:    truncate(string(respBody), 200),
				Err:        ErrMalformedResponse,
			}
		}
		if !ok {
			c.logger.Info().
				Str("public_id", cred.PublicID).
				Int("status", status).
				Msg("Correction declined")
		}
		return Outcome{Success: ok, HTTPStatus: status, Body: string(respBody)}, nil
	}

	errClass := classifyStatus(status)
	errorsTotal.WithLabelValues(string(errClass)).Inc()

	c.logger.Warn().
		Str("public_id", cred.PublicID).
		Int("status", status).
		Str("error_class", string(errClass)).
		Msg("Payment API request error")

	if shouldRetry(errClass) {
		return Outcome{}, &RetryableError{
			StatusCode: status,
			ErrorClass: errClass,
			Message:    truncate(string(respBody), 200),
		}
	}

	return Outcome{Success: false, HTTPStatus: status, Body: string(respBody)}, nil
}

// PaymentInfo is the answer of a transaction lookup.
type PaymentInfo struct {
	Success bool
	Message string
	Model   json.RawMessage
	Raw     []byte
}

// GetPaymentInfo queries a prior transaction. A 200 answer without
// Success=true is retried: freshly created transactions may not be visible
// yet. Other non-retryable statuses return ErrUnexpectedStatus.
func (c *Client) GetPaymentInfo(ctx context.Context, transactionID int64, cred record.Credential) (*PaymentInfo, error) {
	key := cache.Key{PublicID: cred.PublicID, TransactionID: transactionID}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			info, perr := parsePaymentInfo(entry.Data)
			if perr == nil {
				c.logger.Debug().
					Int64("transaction_id", transactionID).
					Dur("age", entry.Age()).
					Msg("Payment info served from cache")
				return info, nil
			}
			c.logger.Warn().Err(perr).Int64("transaction_id", transactionID).Msg("Cached payment info unreadable, refetching")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Int64("transaction_id", transactionID).Msg("Cache get error")
		}
	}

	body, err := json.Marshal(map[string]int64{"TransactionId": transactionID})
	if err != nil {
		return nil, fmt.Errorf("marshal payment info request: %w", err)
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operationPaymentInfo).Observe(time.Since(startTime).Seconds())
	}()

	info, err := Execute(ctx, c.retry, func(ctx context.Context) (*PaymentInfo, error) {
		return c.paymentInfoOnce(ctx, body, cred)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(info.Raw, c.config.CacheTTL)); err != nil {
			c.logger.Warn().Err(err).Int64("transaction_id", transactionID).Msg("Failed to cache payment info")
		}
	}

	return info, nil
}

func (c *Client) paymentInfoOnce(ctx context.Context, body []byte, cred record.Credential) (*PaymentInfo, error) {
	status, respBody, err := c.post(ctx, operationPaymentInfo, c.config.PaymentInfoURL, body, cred)
	if err != nil {
		return nil, err
	}

	if status == http.StatusOK {
		info, err := parsePaymentInfo(respBody)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
			return nil, &TerminalError{
				StatusCode: status,
				ErrorClass: ErrorClassClient,
				Message:    truncate(string(respBody), 200),
				Err:        ErrMalformedResponse,
			}
		}
		if !info.Success {
			errorsTotal.WithLabelValues(string(ErrorClassBusiness)).Inc()
			return nil, &RetryableError{
				StatusCode: status,
				ErrorClass: ErrorClassBusiness,
				Message:    info.Message,
			}
		}
		return info, nil
	}

	errClass := classifyStatus(status)
	errorsTotal.WithLabelValues(string(errClass)).Inc()

	if shouldRetry(errClass) {
		return nil, &RetryableError{
			StatusCode: status,
			ErrorClass: errClass,
			Message:    truncate(string(respBody), 200),
		}
	}

	return nil, &TerminalError{
		StatusCode: status,
		ErrorClass: errClass,
		Message:    truncate(string(respBody), 200),
		Err:        ErrUnexpectedStatus,
	}
}

// post performs one authenticated JSON POST. The request is rebuilt per
// attempt so the body reader is always fresh. Transport failures come back
// as a TerminalError of class network.
func (c *Client) post(ctx context.Context, operation, endpoint string, body []byte, cred record.Credential) (int, []byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: acquire rate limit: %v", ErrContextCancelled, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(cred.PublicID, cred.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("operation", operation).
		Str("public_id", cred.PublicID).
		Msg("Executing payment API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(operation, "network_error").Inc()
		return 0, nil, &TerminalError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return 0, nil, &TerminalError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return resp.StatusCode, respBody, nil
}

// parseSuccess reads the business indicator of a 200 answer. An empty body or
// an absent indicator counts as success.
func parseSuccess(body []byte) (bool, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return true, nil
	}
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, err
	}
	if envelope.Success == nil {
		return true, nil
	}
	return *envelope.Success, nil
}

// parsePaymentInfo decodes a lookup answer. An absent indicator is treated
// as Success=false.
func parsePaymentInfo(body []byte) (*PaymentInfo, error) {
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	info := &PaymentInfo{
		Success: envelope.Success != nil && *envelope.Success,
		Model:   envelope.Model,
		Raw:     body,
	}
	if envelope.Message != nil {
		info.Message = *envelope.Message
	}
	return info, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}
