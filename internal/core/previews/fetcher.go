package previews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/vrental/internal/core/errors"
	"github.com/lueurxax/vrental/internal/platform/observability"
)

const (
	logKeyURL     = "url"
	logKeySource  = "source"
	logKeyStatus  = "status"
	logKeyGameID  = "game_id"
	logKeyBatchID = "batch_id"

	defaultFetchTimeout = 10 * time.Second
	maxBodySizeMB       = 5
	maxBodySizeBytes    = maxBodySizeMB * 1024 * 1024
	defaultGlobalRPS    = 10
	globalLimiterBurst  = 6
	defaultDomainRPS    = 4
	defaultDomainBurst  = 6
	maxRedirects        = 5

	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"

	kindFetchFailed   = "fetch-failed"
	kindEmptyResponse = "empty-response"
)

// FetchError is an upstream failure. Its message is the diagnostic code
// reported to API callers, e.g. "queststore-fetch-failed-404".
type FetchError struct {
	Source string
	Kind   string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s-%s-%d", e.Source, e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error {
	if e.Kind == kindEmptyResponse {
		return apperrors.ErrEmptyResponse
	}

	return apperrors.ErrUpstreamStatus
}

// FetcherOptions tunes the fetcher. Zero values fall back to defaults.
type FetcherOptions struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	GlobalRPS    float64
	DomainRPS    float64
	DomainBurst  int
	// AllowPrivateHosts permits fetching loopback and private addresses.
	AllowPrivateHosts bool
}

func (o FetcherOptions) withDefaults() FetcherOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultFetchTimeout
	}

	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = maxBodySizeBytes
	}

	if o.GlobalRPS <= 0 {
		o.GlobalRPS = defaultGlobalRPS
	}

	if o.DomainRPS <= 0 {
		o.DomainRPS = defaultDomainRPS
	}

	if o.DomainBurst <= 0 {
		o.DomainBurst = defaultDomainBurst
	}

	return o
}

// Fetcher downloads one listing page and extracts its preview fields.
type Fetcher struct {
	client         *http.Client
	sources        *Sources
	opts           FetcherOptions
	globalLimiter  *rate.Limiter
	domainLimiters map[string]*domainLimiter
	mu             sync.RWMutex
	logger         *zerolog.Logger
	now            func() time.Time
}

type domainLimiter struct {
	limiter *rate.Limiter
	// lastUsed is a unix nano timestamp, updated without the write lock.
	lastUsed atomic.Int64
}

func NewFetcher(sources *Sources, opts FetcherOptions, logger *zerolog.Logger) *Fetcher {
	opts = opts.withDefaults()

	return &Fetcher{
		// The per-item context carries the deadline, so the client has no Timeout.
		client: &http.Client{
			Transport: newTransport(opts.AllowPrivateHosts),
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return apperrors.ErrTooManyRedirects
				}

				return nil
			},
		},
		sources:        sources,
		opts:           opts,
		globalLimiter:  rate.NewLimiter(rate.Limit(opts.GlobalRPS), globalLimiterBurst),
		domainLimiters: make(map[string]*domainLimiter),
		logger:         logger,
		now:            time.Now,
	}
}

// FetchPreview fetches rawURL once and returns its preview fields. It fails
// when the page is unreachable, answers with an unexpected status or yields
// no poster, description or video.
func (f *Fetcher) FetchPreview(ctx context.Context, rawURL string) (*Fields, error) {
	target, err := NormalizeTarget(rawURL, f.sources.DefaultOrigin())
	if err != nil {
		return nil, err
	}

	host := strings.ToLower(hostOf(target))
	src := f.sources.For(host)
	start := time.Now()

	fields, err := f.fetch(ctx, src, target, host)

	observability.PreviewFetchDuration.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
	observability.PreviewFetchTotal.WithLabelValues(src.Name, fetchOutcome(err)).Inc()

	if err != nil {
		return nil, err
	}

	return fields, nil
}

func (f *Fetcher) fetch(ctx context.Context, src Source, target, host string) (*Fields, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter wait: %w", err)
	}

	if err := f.getDomainLimiter(host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("domain rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header = src.requestHeaders()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	tolerated := src.Tolerates(status)

	if !isSuccess(status) && !tolerated {
		return nil, &FetchError{Source: src.Name, Kind: kindFetchFailed, Status: status}
	}

	if tolerated {
		f.logger.Warn().Str(logKeySource, src.Name).Str(logKeyURL, target).Int(logKeyStatus, status).
			Msg("parsing preview from non-success response")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// Redirects may have moved the page; relative references follow the final URL.
	pageURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL.String()
	}

	fields, err := src.Parser.Parse(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", src.Name, err)
	}

	if fields.Empty() {
		kind := kindEmptyResponse
		if tolerated {
			kind = kindFetchFailed
		}

		return nil, &FetchError{Source: src.Name, Kind: kind, Status: status}
	}

	return &fields, nil
}

func (f *Fetcher) getDomainLimiter(domain string) *rate.Limiter {
	now := f.now().UnixNano()

	f.mu.RLock()
	entry, exists := f.domainLimiters[domain]
	f.mu.RUnlock()

	if exists {
		entry.lastUsed.Store(now)

		return entry.limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if entry, exists := f.domainLimiters[domain]; exists {
		entry.lastUsed.Store(now)

		return entry.limiter
	}

	entry = &domainLimiter{limiter: rate.NewLimiter(rate.Limit(f.opts.DomainRPS), f.opts.DomainBurst)}
	entry.lastUsed.Store(now)
	f.domainLimiters[domain] = entry

	return entry.limiter
}

// EvictIdleDomains drops the limiters of hosts not fetched for idle and
// returns how many were removed.
func (f *Fetcher) EvictIdleDomains(idle time.Duration) int {
	cutoff := f.now().Add(-idle).UnixNano()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0

	for domain, entry := range f.domainLimiters {
		if entry.lastUsed.Load() < cutoff {
			delete(f.domainLimiters, domain)
			removed++
		}
	}

	return removed
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, apperrors.ErrEmptyResponse):
		return outcomeEmpty
	default:
		return outcomeError
	}
}
