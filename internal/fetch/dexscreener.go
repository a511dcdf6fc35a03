package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/soinglobal/callscope/internal/observe"
)

const defaultBaseURL = "https://api.dexscreener.com"

// Options configures the DexScreener client.
type Options struct {
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// RatePerSecond and Burst shape the token bucket. The free tier allows
	// roughly 300 requests per minute; defaults stay under that.
	RatePerSecond float64
	Burst         int
	// BreakerFailures trips the circuit after this many consecutive
	// failures; BreakerCooldown is how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	Metrics *observe.Metrics
}

func (o *Options) withDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 4
	}
	if o.Burst <= 0 {
		o.Burst = 8
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
}

// DexScreenerClient implements Fetcher against the DexScreener search API.
// Safe for concurrent use.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *observe.Metrics
}

// NewDexScreenerClient creates a live market fetcher.
func NewDexScreenerClient(opts Options) *DexScreenerClient {
	opts.withDefaults()

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dexscreener",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &DexScreenerClient{
		baseURL: opts.BaseURL,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		breaker: breaker,
		metrics: opts.Metrics,
	}
}

type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// FetchByContract implements Fetcher. It blocks for a rate limiter slot
// (respecting ctx), then runs the request through the circuit breaker.
func (c *DexScreenerClient) FetchByContract(ctx context.Context, contract string) ([]Pair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	c.metrics.IncLiveFetches()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.search(ctx, contract)
	})
	if err != nil {
		c.metrics.IncFetchFailures()
		log.Debug().Err(err).Str("contract", contract).Msg("Live fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	pairs := result.([]Pair)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPairs, contract)
	}
	return pairs, nil
}

func (c *DexScreenerClient) search(ctx context.Context, contract string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/search/?q=%s", c.baseURL, url.QueryEscape(contract))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Pairs, nil
}
