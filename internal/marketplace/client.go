// Package marketplace fetches generator add-ons published to the marketplace.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/genpad/internal/generator"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config for the marketplace client. An empty BaseURL disables the marketplace.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Addon is the wire form of one marketplace listing
type Addon struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	EndpointURL   string `json:"endpointUrl"`
	AuthToken     string `json:"authToken"`
	Method        string `json:"method"`
	RequestField  string `json:"requestField"`
	ResponseField string `json:"responseField"`
	Samples       string `json:"samples"`
}

// Descriptor converts the listing into a generator descriptor
func (a Addon) Descriptor(category generator.Category) generator.Descriptor {
	if a.Category != "" {
		category = generator.Category(a.Category)
	}
	return generator.Descriptor{
		ID:            a.ID,
		Category:      category,
		Name:          a.Name,
		Description:   a.Description,
		EndpointURL:   a.EndpointURL,
		AuthToken:     a.AuthToken,
		Method:        generator.Method(a.Method),
		RequestField:  a.RequestField,
		ResponseField: a.ResponseField,
		Samples:       a.Samples,
	}
}

// Client lists marketplace generators with caching and rate limiting
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	group   singleflight.Group
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	limit := rate.Every(1 * time.Second)
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// Enabled reports whether a marketplace URL is configured
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// List returns the generators published for category. Concurrent calls for
// the same category share one request.
func (c *Client) List(ctx context.Context, category generator.Category) ([]generator.Descriptor, error) {
	if !c.Enabled() {
		return nil, nil
	}
	key := string(category)
	if x, found := c.cache.Get(key); found {
		return x.([]generator.Descriptor), nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		list, err := c.fetch(fetchCtx, category)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, list, cache.DefaultExpiration)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("category", key).Msg("Shared in-flight marketplace request")
	}
	return v.([]generator.Descriptor), nil
}

// Invalidate drops cached listings
func (c *Client) Invalidate() {
	c.cache.Flush()
}

func (c *Client) fetch(ctx context.Context, category generator.Category) ([]generator.Descriptor, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("marketplace rate limit: %w", err)
	}

	apiURL := fmt.Sprintf("%s/addons?category=%s", c.baseURL, url.QueryEscape(string(category)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach marketplace at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read marketplace response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketplace returned status %d: %s", resp.StatusCode, resp.Status)
	}

	return decodeListing(body, category)
}

// decodeListing accepts a bare array or an object wrapping it in "data"
func decodeListing(body []byte, category generator.Category) ([]generator.Descriptor, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("marketplace response is not valid JSON")
	}
	list := gjson.GetBytes(body, "data")
	if !list.Exists() {
		list = gjson.ParseBytes(body)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("marketplace response has no listing array")
	}

	var addons []Addon
	if err := json.Unmarshal([]byte(list.Raw), &addons); err != nil {
		return nil, fmt.Errorf("failed to parse marketplace listing: %w", err)
	}

	out := make([]generator.Descriptor, 0, len(addons))
	for _, a := range addons {
		d := a.Descriptor(category)
		if d.Category != category {
			continue
		}
		if !d.Valid() {
			log.Warn().Str("id", a.ID).Str("name", a.Name).Msg("Skipping invalid marketplace addon")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
