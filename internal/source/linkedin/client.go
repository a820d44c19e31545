package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"engagewatch/internal/model"
	"engagewatch/internal/source"
)

// DefaultBaseURL is the root of the LinkedIn REST API.
const DefaultBaseURL = "https://api.linkedin.com/v2"

// Client is a thin HTTP client for the LinkedIn REST API. It handles
// Bearer token authentication, a client-side request rate limiter, and
// a small bounded retry for transient failures.
//
// A 429 response is never retried: it surfaces as a RateLimitError so
// the caller can stop the batch and report partial results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a LinkedIn API client authenticating with the given
// OAuth bearer token.
func NewClient(baseURL, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		// Stay well under the documented per-member throttle.
		limiter:    rate.NewLimiter(rate.Limit(4), 4),
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// Get performs a GET request against path with the given query
// parameters and unmarshals the JSON response into result.
func (c *Client) Get(
	ctx context.Context,
	path string,
	params url.Values,
	result interface{},
) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, endpoint, nil,
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("executing GET %s: %w", path, err)
			if !c.wait(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return &source.RateLimitError{
				SourceType: model.SourceTypeAPI,
				Endpoint:   path,
			}

		case resp.StatusCode == http.StatusUnauthorized:
			return &source.AuthError{
				SourceType: model.SourceTypeAPI,
				Message: "authentication failed (401): " +
					"check LINKEDIN_ACCESS_TOKEN (tokens expire)",
			}

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf(
				"server error %d on GET %s", resp.StatusCode, path,
			)
			if !c.wait(ctx, attempt) {
				return ctx.Err()
			}
			continue

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf(
				"unexpected status %d on GET %s: %s",
				resp.StatusCode, path, string(body),
			)
		}

		if result == nil {
			return nil
		}
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from GET %s: %w", path, err,
			)
		}
		return nil
	}

	return fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// wait sleeps for the exponential backoff of the given attempt.
// It returns false when the context was canceled while waiting.
func (c *Client) wait(ctx context.Context, attempt int) bool {
	d := c.backoff * time.Duration(1<<uint(attempt))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
