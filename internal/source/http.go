package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// userAgent identifies flipwatch to the provider.
const userAgent = "flipwatch/0.1 (https://github.com/abelbrown/flipwatch)"

// HTTPSource fetches statements from a JSON post provider.
//
// The provider is expected to expose GET {base}/posts?handle=X&limit=N
// returning a JSON array of statements. A single shared rate limiter
// spaces out requests across all identities so parallel sweeps stay
// inside the provider's quota.
type HTTPSource struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates an HTTPSource for the given provider base URL.
// requestsPerMinute <= 0 disables rate limiting.
func NewHTTPSource(base string, timeout time.Duration, requestsPerMinute int) *HTTPSource {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &HTTPSource{
		base: base,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// RecentStatements fetches up to limit recent posts for handle.
// Provider 429 responses map to ErrRateLimited; network errors and 5xx
// responses map to ErrSourceUnavailable.
func (h *HTTPSource) RecentStatements(ctx context.Context, handle string, limit int) ([]Statement, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	q := url.Values{}
	q.Set("handle", handle)
	q.Set("limit", strconv.Itoa(limit))
	reqURL := h.base + "/posts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: handle %s", ErrRateLimited, handle)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var stmts []Statement
	if err := json.NewDecoder(resp.Body).Decode(&stmts); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	if limit > 0 && len(stmts) > limit {
		stmts = stmts[:limit]
	}
	return stmts, nil
}
