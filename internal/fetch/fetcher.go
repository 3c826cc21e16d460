// Package fetch retrieves remote documents through an ordered chain of
// CORS proxies. A fetch never fails loudly: the caller gets either a body
// or an explicit "exhausted" result.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/medwatch/internal/otel"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

const userAgent = "medwatch/1.0 (+https://github.com/abelbrown/medwatch)"

// Result is the outcome of Get: a body from the first proxy that
// answered, or exhaustion of the whole chain.
type Result struct {
	Body     []byte
	Proxy    string // proxy that produced Body
	Attempts int
	OK       bool
}

// Exhausted reports that every proxy failed.
func (r Result) Exhausted() bool {
	return !r.OK
}

// Options configures a Fetcher.
type Options struct {
	Proxies []Proxy       // tried in order; DefaultProxies when empty
	Timeout time.Duration // per attempt; zero means no client timeout
	Rate    rate.Limit    // per-proxy request rate; zero means unlimited
	Burst   int
	Logger  *otel.Logger
	Client  *http.Client // overrides Timeout when set
}

// Fetcher performs GETs through the proxy chain. Safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	proxies  []Proxy
	limiters []*rate.Limiter
	logger   *otel.Logger
}

// NewFetcher builds a Fetcher from opts.
func NewFetcher(opts Options) *Fetcher {
	proxies := opts.Proxies
	if len(proxies) == 0 {
		proxies = DefaultProxies()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = otel.NewNullLogger()
	}

	limiters := make([]*rate.Limiter, len(proxies))
	for i := range proxies {
		if opts.Rate > 0 {
			burst := opts.Burst
			if burst <= 0 {
				burst = 1
			}
			limiters[i] = rate.NewLimiter(opts.Rate, burst)
		}
	}

	return &Fetcher{
		client:   client,
		proxies:  proxies,
		limiters: limiters,
		logger:   logger,
	}
}

// Proxies returns the names of the chain, in order.
func (f *Fetcher) Proxies() []string {
	names := make([]string, len(f.proxies))
	for i, p := range f.proxies {
		names[i] = p.Name
	}
	return names
}

// Get fetches target through each proxy in turn and returns the first
// successful body. It never returns an error; exhaustion is a Result.
func (f *Fetcher) Get(ctx context.Context, target string) Result {
	attempts := 0
	runID := otel.RunID(ctx)
	for i, p := range f.proxies {
		if ctx.Err() != nil {
			break
		}
		attempts++
		start := time.Now()
		f.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindProxyAttempt, Comp: "fetch", RunID: runID, Proxy: p.Name, Source: target})

		body, err := f.attempt(ctx, i, p, target)
		if err != nil {
			f.logger.Emit(otel.Event{
				Level:  otel.LevelWarn,
				Kind:   otel.KindProxyFail,
				Comp:   "fetch",
				RunID:  runID,
				Proxy:  p.Name,
				Source: target,
				Dur:    time.Since(start),
				Err:    err.Error(),
			})
			continue
		}
		return Result{Body: body, Proxy: p.Name, Attempts: attempts, OK: true}
	}

	f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindProxyExhausted, Comp: "fetch", RunID: runID, Source: target, Count: attempts})
	return Result{Attempts: attempts}
}

func (f *Fetcher) attempt(ctx context.Context, i int, p Proxy, target string) ([]byte, error) {
	if lim := f.limiters[i]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Rewrite(target), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return p.Unwrap(body)
}
