package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://provinces.open-api.vn/api"
	defaultAttempts     = 3
	defaultRetryDelay   = time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Source serves the three levels of the hierarchy.
type Source interface {
	Provinces(ctx context.Context) ([]Unit, error)
	Districts(ctx context.Context, provinceCode string) ([]Unit, error)
	Wards(ctx context.Context, districtCode string) ([]Unit, error)
}

// Client reads the administrative division directory over HTTP, retrying transient failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	delay      time.Duration
	logger     *zap.Logger
}

type ClientOption func(*Client)

// WithRetry sets the total number of attempts and the fixed wait between them.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay >= 0 {
			c.delay = delay
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		attempts:   defaultAttempts,
		delay:      defaultRetryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type upstreamUnit struct {
	Code         Code           `json:"code"`
	Name         string         `json:"name"`
	DivisionType string         `json:"division_type"`
	ProvinceCode Code           `json:"province_code"`
	DistrictCode Code           `json:"district_code"`
	Districts    []upstreamUnit `json:"districts"`
	Wards        []upstreamUnit `json:"wards"`
}

func (u upstreamUnit) unit(parent Code) Unit {
	return Unit{Code: u.Code, Name: u.Name, DivisionType: u.DivisionType, ParentCode: parent}
}

func (c *Client) Provinces(ctx context.Context) ([]Unit, error) {
	var raw []upstreamUnit
	found, err := c.get(ctx, "/p/", &raw)
	if err != nil || !found {
		return []Unit{}, err
	}

	out := make([]Unit, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.unit(""))
	}
	return out, nil
}

func (c *Client) Districts(ctx context.Context, provinceCode string) ([]Unit, error) {
	if provinceCode == "" {
		return []Unit{}, nil
	}

	var raw upstreamUnit
	found, err := c.get(ctx, "/p/"+url.PathEscape(provinceCode)+"?depth=2", &raw)
	if err != nil || !found {
		return []Unit{}, err
	}

	out := make([]Unit, 0, len(raw.Districts))
	for _, d := range raw.Districts {
		parent := d.ProvinceCode
		if parent == "" {
			parent = Code(provinceCode)
		}
		out = append(out, d.unit(parent))
	}
	return out, nil
}

func (c *Client) Wards(ctx context.Context, districtCode string) ([]Unit, error) {
	if districtCode == "" {
		return []Unit{}, nil
	}

	var raw upstreamUnit
	found, err := c.get(ctx, "/d/"+url.PathEscape(districtCode)+"?depth=2", &raw)
	if err != nil || !found {
		return []Unit{}, err
	}

	out := make([]Unit, 0, len(raw.Wards))
	for _, w := range raw.Wards {
		parent := w.DistrictCode
		if parent == "" {
			parent = Code(districtCode)
		}
		out = append(out, w.unit(parent))
	}
	return out, nil
}

// get decodes the response into dst. found is false when the directory has no data for the path.
func (c *Client) get(ctx context.Context, path string, dst any) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.delay); err != nil {
				return false, err
			}
		}

		found, retry, err := c.fetch(ctx, path, dst)
		if err == nil {
			return found, nil
		}
		lastErr = err
		if !retry {
			break
		}

		c.logger.Warn("address directory request failed",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.Error(err),
		)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return false, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) fetch(ctx context.Context, path string, dst any) (found, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, false, fmt.Errorf("create address request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, false, ctx.Err()
		}
		return false, true, fmt.Errorf("execute address request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, true, fmt.Errorf("address directory returned status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, false, fmt.Errorf("address directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("decode address response: %w", err)
	}
	return true, false, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
