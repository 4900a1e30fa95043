package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"s3console/logger"
)

const (
	providersPath = "/rustfs/admin/v3/oidc/providers"
	authorizePath = "/rustfs/admin/v3/oidc/authorize/"
	providersKey  = "providers"
)

// Client обращается к OIDC-эндпоинтам сервера RustFS
type Client struct {
	serverHost string
	httpClient *http.Client
	cache      *gocache.Cache // nil, если кэш отключен
	cacheTTL   time.Duration
	group      singleflight.Group // одновременные промахи кэша делят один запрос
	metrics    *Metrics
	log        *logger.Logger
}

// NewClient создает клиент. httpClient может быть nil.
func NewClient(cfg *Config, httpClient *http.Client) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oidc config: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	c := &Client{
		serverHost: strings.TrimRight(cfg.ServerHost, "/"),
		httpClient: httpClient,
		cacheTTL:   cfg.ProvidersCacheTTL,
		metrics:    defaultMetrics(),
		log:        logger.Component("oidc"),
	}
	if cfg.ProvidersCacheTTL > 0 {
		c.cache = gocache.New(cfg.ProvidersCacheTTL, 2*cfg.ProvidersCacheTTL)
	}
	return c, nil
}

// FetchProviders возвращает список провайдеров. Любая ошибка (сеть, статус, JSON)
// превращается в пустой список: страница входа просто не показывает SSO.
func (c *Client) FetchProviders(ctx context.Context) []Provider {
	if c.cache != nil {
		if cached, found := c.cache.Get(providersKey); found {
			c.metrics.ProviderFetchTotal.WithLabelValues("cached").Inc()
			return cached.([]Provider)
		}
	}

	result, err, shared := c.group.Do(providersKey, func() (interface{}, error) {
		start := time.Now()
		providers, err := c.fetchProviders(ctx)
		latency := time.Since(start).Seconds()
		if err != nil {
			c.log.Warn("Failed to fetch OIDC providers from %s: %v", c.serverHost, err)
			c.metrics.ProviderFetchTotal.WithLabelValues("failure").Inc()
			c.metrics.ProviderFetchLatency.WithLabelValues("failure").Observe(latency)
			return nil, err
		}

		c.metrics.ProviderFetchTotal.WithLabelValues("success").Inc()
		c.metrics.ProviderFetchLatency.WithLabelValues("success").Observe(latency)
		c.log.Debug("Fetched %d OIDC providers", len(providers))

		if c.cache != nil {
			c.cache.Set(providersKey, providers, c.cacheTTL)
		}
		return providers, nil
	})
	if err != nil {
		return []Provider{}
	}
	if shared {
		c.log.Debug("Joined in-flight OIDC providers request")
	}
	return result.([]Provider)
}

func (c *Client) fetchProviders(ctx context.Context) ([]Provider, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverHost+providersPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var providers []Provider
	if err := json.NewDecoder(resp.Body).Decode(&providers); err != nil {
		return nil, fmt.Errorf("failed to decode providers: %w", err)
	}
	if providers == nil {
		providers = []Provider{}
	}
	return providers, nil
}

// InvalidateProviders сбрасывает кэш списка провайдеров
func (c *Client) InvalidateProviders() {
	if c.cache != nil {
		c.cache.Delete(providersKey)
	}
}

// AuthorizeURL строит URL, на который браузер уходит для входа через провайдера.
// redirectAfter должен быть уже проверен через redirect.Guard; пустое значение опускается.
func (c *Client) AuthorizeURL(providerID, redirectAfter string) (string, error) {
	if providerID == "" {
		return "", ErrEmptyProviderID
	}

	u := c.serverHost + authorizePath + url.PathEscape(providerID)
	if redirectAfter != "" {
		u += "?" + url.Values{"redirect_after": {redirectAfter}}.Encode()
	}
	return u, nil
}
