package fixgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to the external fix-generation service over HTTP. Transient
// failures (429/5xx, network errors) are retried with exponential backoff;
// everything else is surfaced to the caller, whose fallback path takes over.
type Client struct {
	endpoint        string
	apiKey          string
	httpClient      *http.Client
	limiter         *rate.Limiter
	maxRetryElapsed time.Duration
	logger          *zap.Logger
}

// NewClient initializes the fix-generation client.
func NewClient(cfg config.FixgenConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("fixgen endpoint is required")
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:         rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxRetryElapsed: cfg.MaxRetryElapsed,
		logger:          logger.Named("fixgen-client"),
	}, nil
}

// GenerateFix implements schemas.FixGenerator.
func (c *Client) GenerateFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	return c.post(ctx, "/v1/fix", req)
}

// GenerateGroupFix implements schemas.FixGenerator. One call covers every
// file in req.Files so the per-file changes stay mutually consistent.
func (c *Client) GenerateGroupFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	return c.post(ctx, "/v1/fix-group", req)
}

func (c *Client) post(ctx context.Context, path string, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxRetryElapsed
	b.MaxInterval = 30 * time.Second

	var response *schemas.GenerationResponse

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during fix generation, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var payload schemas.GenerationResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode generation response: %w", err))
		}

		c.logger.Debug("Fix generation call complete",
			zap.String("category", string(req.Category)),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("success", payload.Success),
			zap.Float64("confidence", payload.Confidence),
		)

		response = &payload
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) handleAPIError(statusCode int, body []byte) error {
	err := fmt.Errorf("fixgen API error: status %d, body: %s", statusCode, string(body))
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		c.logger.Warn("Transient fixgen API error, retrying...", zap.Int("status", statusCode))
		return err
	default:
		c.logger.Error("Permanent fixgen API error", zap.Int("status", statusCode), zap.String("response", string(body)))
		return backoff.Permanent(err)
	}
}
