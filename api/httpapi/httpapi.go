package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "scorekeeper/adapters/websocket"
	"scorekeeper/core"
	"scorekeeper/history"
	"scorekeeper/realtime"
)

const maxBodyBytes = 64 << 10

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// NewMux builds an http.Handler exposing the score history REST API and WebSocket stream.
// Routes ({g} is the game type, {d} the difficulty):
//   - POST   {prefix}/games/{g}/{d}/scores
//   - GET    {prefix}/games/{g}/{d}/history
//   - GET    {prefix}/games/{g}/{d}/history/page
//   - DELETE {prefix}/games/{g}/{d}/history
//   - DELETE {prefix}/games/{g}/{d}/history/{id}
//   - GET    {prefix}/games/{g}/{d}/best[?compatible=true]
//   - GET    {prefix}/games/{g}/{d}/best/records
//   - DELETE {prefix}/games/{g}/{d}/best
//   - GET    {prefix}/games/{g}/{d}/stats
//   - GET    {prefix}/games/{g}/{d}/export.csv
//   - POST   {prefix}/reset
//   - GET    {prefix}/storage
//   - GET    {prefix}/healthz
//   - WS     {prefix}/ws?game=&difficulty=
func NewMux(mgr *history.Manager, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	s := &server{mgr: mgr}
	route := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), h)
	}

	route(http.MethodGet, "/healthz", s.healthCheck)
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	route(http.MethodPost, "/games/{g}/{d}/scores", s.recordScore)
	route(http.MethodGet, "/games/{g}/{d}/history", s.history)
	route(http.MethodGet, "/games/{g}/{d}/history/page", s.historyPage)
	route(http.MethodDelete, "/games/{g}/{d}/history", s.clearHistory)
	route(http.MethodDelete, "/games/{g}/{d}/history/{id}", s.deleteRecord)
	route(http.MethodGet, "/games/{g}/{d}/best", s.best)
	route(http.MethodGet, "/games/{g}/{d}/best/records", s.bestRecords)
	route(http.MethodDelete, "/games/{g}/{d}/best", s.clearBest)
	route(http.MethodGet, "/games/{g}/{d}/stats", s.stats)
	route(http.MethodGet, "/games/{g}/{d}/export.csv", s.exportCSV)
	route(http.MethodPost, "/reset", s.reset)
	route(http.MethodGet, "/storage", s.storageInfo)

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

type server struct {
	mgr *history.Manager
}

func pathPartition(r *http.Request) (core.GameType, core.Difficulty) {
	return core.GameType(r.PathValue("g")), core.Difficulty(r.PathValue("d"))
}

func (s *server) recordScore(w http.ResponseWriter, r *http.Request) {
	var data core.ScoreData
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be a JSON score object", err.Error())
		return
	}
	g, d := pathPartition(r)
	rec, err := s.mgr.RecordScore(r.Context(), g, d, data)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	records, err := s.mgr.GetHistory(r.Context(), g, d)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, records)
}

func (s *server) historyPage(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	g, d := pathPartition(r)
	page, err := s.mgr.GetHistoryPage(r.Context(), g, d, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *server) clearHistory(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	if err := s.mgr.ClearHistory(r.Context(), g, d); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	if err := s.mgr.DeleteRecord(r.Context(), g, d, r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *server) best(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	get := s.mgr.GetBestScore
	if compatible, _ := strconv.ParseBool(r.URL.Query().Get("compatible")); compatible {
		get = s.mgr.GetBestScoreCompatible
	}
	score, found, err := get(r.Context(), g, d)
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := map[string]any{"found": found, "score": nil}
	if found {
		resp["score"] = score
	}
	writeJSON(w, resp)
}

func (s *server) bestRecords(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	records, err := s.mgr.GetBestScores(r.Context(), g, d)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, records)
}

func (s *server) clearBest(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	if err := s.mgr.ClearBestScores(r.Context(), g, d); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	st, err := s.mgr.GetGameStats(r.Context(), g, d)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, st)
}

func (s *server) exportCSV(w http.ResponseWriter, r *http.Request) {
	g, d := pathPartition(r)
	var buf strings.Builder
	if err := s.mgr.ExportCSV(r.Context(), g, d, &buf); err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", history.ExportFilename(g, d)))
	_, _ = w.Write([]byte(buf.String()))
}

func (s *server) reset(w http.ResponseWriter, r *http.Request) {
	if !s.mgr.ResetAllGames(r.Context()) {
		writeError(w, http.StatusInternalServerError, "reset_failed", "could not remove every game key", nil)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *server) storageInfo(w http.ResponseWriter, r *http.Request) {
	info := s.mgr.StorageInfo(r.Context())
	if info == nil {
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "could not scan storage", nil)
		return
	}
	writeJSON(w, info)
}

// healthCheck verifies the storage backend answers a read.
func (s *server) healthCheck(w http.ResponseWriter, r *http.Request) {
	// probe partition that no game writes to
	_, err := s.mgr.GetHistory(r.Context(), "healthcheck", "probe")

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}

	writeJSON(w, status)
}

func parsePageRequest(r *http.Request) (history.PageRequest, error) {
	q := r.URL.Query()
	req := history.PageRequest{
		SortBy:    history.SortField(q.Get("sort_by")),
		SortOrder: history.SortOrder(q.Get("sort_order")),
	}
	var err error
	if req.Page, err = queryInt(q.Get("page")); err != nil {
		return req, fmt.Errorf("%w: page: %v", core.ErrInvalidQuery, err)
	}
	if req.PageSize, err = queryInt(q.Get("page_size")); err != nil {
		return req, fmt.Errorf("%w: page_size: %v", core.ErrInvalidQuery, err)
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: completed: %v", core.ErrInvalidQuery, err)
		}
		req.Filters.Completed = &b
	}
	if req.Filters.DateRange.Start, err = queryTime(q.Get("from")); err != nil {
		return req, fmt.Errorf("%w: from: %v", core.ErrInvalidQuery, err)
	}
	if req.Filters.DateRange.End, err = queryTime(q.Get("to")); err != nil {
		return req, fmt.Errorf("%w: to: %v", core.ErrInvalidQuery, err)
	}
	if req.Filters.ScoreRange.Min, err = queryFloat(q.Get("min_score")); err != nil {
		return req, fmt.Errorf("%w: min_score: %v", core.ErrInvalidQuery, err)
	}
	if req.Filters.ScoreRange.Max, err = queryFloat(q.Get("max_score")); err != nil {
		return req, fmt.Errorf("%w: max_score: %v", core.ErrInvalidQuery, err)
	}
	return req, nil
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func queryFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func queryTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeFailure maps history errors onto status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidPartition):
		writeError(w, http.StatusBadRequest, "invalid_partition", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, "invalid_score", err.Error(), nil)
	case errors.Is(err, core.ErrStorageFull):
		writeError(w, http.StatusInsufficientStorage, "storage_full", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	// browsers cannot set headers on a WebSocket handshake
	return r.URL.Query().Get("api_key")
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
