// Package previewapi serves the batch preview endpoint used by the catalog
// pages to enrich game cards with store artwork, descriptions and trailers.
package previewapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/vrental/internal/core/errors"
	"github.com/lueurxax/vrental/internal/core/previews"
)

const (
	// PreviewsPath is the route the handler is mounted on.
	PreviewsPath = "/api/games/previews"

	defaultMaxItems    = 6
	maxPayloadBytes    = 64 * 1024
	defaultClientRPM   = 30
	defaultClientBurst = 10
	rateLimitWindow    = time.Minute
)

// HTTP header constants.
const (
	headerContentType  = "Content-Type"
	headerCacheControl = "Cache-Control"
	contentTypeJSON    = "application/json; charset=utf-8"
)

const (
	fieldGames     = "games"
	fieldID        = "id"
	fieldSourceURL = "sourceUrl"
)

// BatchFetcher resolves previews for validated items.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, items []previews.RequestItem) previews.BatchResult
}

// Options tunes the handler. Zero values fall back to defaults.
type Options struct {
	MaxItems    int
	ClientRPM   float64
	ClientBurst int
}

// Handler serves POST /api/games/previews.
type Handler struct {
	batch  BatchFetcher
	opts   Options
	logger *zerolog.Logger

	// IP-based rate limiting
	limiters   map[string]*clientLimiter
	limitersMu sync.Mutex
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewHandler creates a new batch preview handler.
func NewHandler(batch BatchFetcher, opts Options, logger *zerolog.Logger) *Handler {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}

	if opts.ClientRPM <= 0 {
		opts.ClientRPM = defaultClientRPM
	}

	if opts.ClientBurst <= 0 {
		opts.ClientBurst = defaultClientBurst
	}

	return &Handler{
		batch:    batch,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type batchResponse struct {
	Previews []previews.Result  `json:"previews"`
	Errors   []previews.Failure `json:"errors,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	defer func() {
		LatencyHistogram.Observe(time.Since(start).Seconds())
	}()

	w.Header().Set(headerCacheControl, "no-store")
	w.Header().Set(headerContentType, contentTypeJSON)

	if !h.allowRequest(getClientIP(r)) {
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: apperrors.ErrRateLimited.Error()})

		return
	}

	items, err := h.decodeItems(r)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejecting preview payload")
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: apperrors.ErrInvalidPayload.Error()})

		return
	}

	BatchSize.Observe(float64(len(items)))

	if len(items) == 0 {
		h.writeJSON(w, http.StatusOK, batchResponse{Previews: []previews.Result{}})

		return
	}

	res := h.batch.FetchBatch(r.Context(), items)

	status := http.StatusOK
	if len(res.Previews) == 0 && len(res.Errors) > 0 {
		status = http.StatusBadGateway
	}

	previewList := res.Previews
	if previewList == nil {
		previewList = []previews.Result{}
	}

	h.writeJSON(w, status, batchResponse{Previews: previewList, Errors: res.Errors})
}

// decodeItems reads the payload and returns its valid items, capped at MaxItems.
// Only malformed JSON is an error; a missing or non-array games field yields no items.
func (h *Handler) decodeItems(r *http.Request) ([]previews.RequestItem, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes+1))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}

	if dec.InputOffset() > maxPayloadBytes {
		return nil, errPayloadTooLarge
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	obj, _ := body.(map[string]any)
	games, _ := obj[fieldGames].([]any)

	items := make([]previews.RequestItem, 0, min(len(games), h.opts.MaxItems))

	for _, g := range games {
		item, ok := parseItem(g)
		if !ok {
			continue
		}

		items = append(items, item)
		if len(items) == h.opts.MaxItems {
			break
		}
	}

	return items, nil
}

var (
	errPayloadTooLarge = errors.New("payload too large")
	errTrailingData    = errors.New("trailing data after payload")
)

func parseItem(v any) (previews.RequestItem, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return previews.RequestItem{}, false
	}

	id, ok := previews.ParseGameID(obj[fieldID])
	if !ok {
		return previews.RequestItem{}, false
	}

	raw, ok := obj[fieldSourceURL].(string)
	if !ok {
		return previews.RequestItem{}, false
	}

	sourceURL := strings.TrimSpace(raw)
	if !isAbsoluteHTTPURL(sourceURL) {
		return previews.RequestItem{}, false
	}

	return previews.RequestItem{ID: id, SourceURL: sourceURL}, true
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}

	scheme := strings.ToLower(u.Scheme)

	return scheme == "http" || scheme == "https"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to write preview response")
	}
}

func (h *Handler) allowRequest(ip string) bool {
	h.limitersMu.Lock()

	entry, ok := h.limiters[ip]
	if !ok {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(h.opts.ClientRPM/rateLimitWindow.Seconds()), h.opts.ClientBurst),
		}
		h.limiters[ip] = entry
	}

	entry.lastSeen = h.now()

	h.limitersMu.Unlock()

	return entry.limiter.Allow()
}

// EvictIdleClients drops the rate limiters of clients not seen for idle and
// returns how many were removed.
func (h *Handler) EvictIdleClients(idle time.Duration) int {
	cutoff := h.now().Add(-idle)

	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	removed := 0

	for ip, entry := range h.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(h.limiters, ip)
			removed++
		}
	}

	TrackedClients.Set(float64(len(h.limiters)))

	return removed
}

// getClientIP keys clients by host without the port, so reconnecting does not
// reset the budget. Proxy headers are applied upstream by the server's RealIP
// middleware when it is configured to trust them.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
