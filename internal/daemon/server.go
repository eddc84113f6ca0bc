package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"
	"golang.org/x/sync/singleflight"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/store"
	"github.com/janekbaraniewski/calgrid/internal/version"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

const fetchAllKey = "records"

// Service exposes a record store and the layout engine over HTTP.
type Service struct {
	cfg      Config
	src      store.Source
	now      func() time.Time
	validate *validator.Validate
	metrics  *metrics

	storeMu    sync.Mutex
	fetchGroup singleflight.Group
}

func NewService(cfg Config, src store.Source) *Service {
	if cfg.WriteLimitPerMinute <= 0 {
		cfg.WriteLimitPerMinute = 120
	}
	return &Service{
		cfg:      cfg,
		src:      src,
		now:      time.Now,
		validate: validator.New(),
		metrics:  newMetrics(),
	}
}

// RunServer serves until SIGINT or SIGTERM.
func RunServer(cfg Config, src store.Source) error {
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := NewService(cfg, src)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	svc.infof("daemon_stop", "reason=signal")
	return nil
}

// Start listens on the configured unix socket, or on Addr when no socket
// is set, and serves in the background until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       20 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.infof("server_shutdown", "reason=context_done")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		_ = listener.Close()
		if s.cfg.SocketPath != "" {
			_ = os.Remove(s.cfg.SocketPath)
		}
	}()
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.warnf("server_error", "error=%v", err)
		}
	}()
	return nil
}

func (s *Service) listen() (net.Listener, error) {
	if socketPath := strings.TrimSpace(s.cfg.SocketPath); socketPath != "" {
		if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
			return nil, fmt.Errorf("create daemon socket dir: %w", err)
		}
		if err := EnsureSocketPathAvailable(socketPath); err != nil {
			return nil, err
		}
		listener, err := net.Listen("unix", socketPath)
		if err != nil {
			return nil, fmt.Errorf("listen daemon socket: %w", err)
		}
		_ = os.Chmod(socketPath, 0o660)
		s.infof("socket_listening", "path=%s", socketPath)
		return listener, nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("daemon needs a socket path or listen address")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	s.infof("tcp_listening", "addr=%s", listener.Addr())
	return listener, nil
}

// Handler returns the daemon's router.
func (s *Service) Handler() http.Handler {
	secureHeaders := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders.Handler)
	r.Use(s.metrics.middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/records", s.handleRecords)
		r.Get("/layout", s.handleLayout)
		r.Group(func(gr chi.Router) {
			gr.Use(httprate.Limit(s.cfg.WriteLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
			gr.Put("/records/{date}", s.handleUpsert)
		})
	})
	return r
}

// EnsureSocketPathAvailable removes a stale socket at socketPath. It fails
// when another daemon answers there or the path is not a socket.
func EnsureSocketPathAvailable(socketPath string) error {
	socketPath = strings.TrimSpace(socketPath)
	if socketPath == "" {
		return fmt.Errorf("socket path is empty")
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat socket path %s: %w", socketPath, err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("socket path %s already exists and is not a socket", socketPath)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 450*time.Millisecond)
	defer cancel()
	dialer := net.Dialer{Timeout: 450 * time.Millisecond}
	conn, dialErr := dialer.DialContext(dialCtx, "unix", socketPath)
	if dialErr == nil {
		_ = conn.Close()
		return fmt.Errorf("calgrid daemon already running on socket %s", socketPath)
	}

	if err := os.Remove(socketPath); err != nil {
		return fmt.Errorf("remove stale daemon socket %s: %w", socketPath, err)
	}
	return nil
}

// --- Store access ---

// fetchAll collapses concurrent fetches into one store call. The returned
// slice is shared between callers and must not be modified.
func (s *Service) fetchAll(ctx context.Context) ([]core.Record, error) {
	ch := s.fetchGroup.DoChan(fetchAllKey, func() (any, error) {
		s.storeMu.Lock()
		defer s.storeMu.Unlock()
		return s.src.FetchAll(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		records, _ := res.Val.([]core.Record)
		return records, nil
	}
}

func (s *Service) upsert(ctx context.Context, key string, value *float64) (core.UpsertResult, error) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	s.fetchGroup.Forget(fetchAllKey)
	return s.src.Upsert(ctx, key, value)
}

// --- Handlers ---

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		DaemonVersion: strings.TrimSpace(version.Version),
		APIVersion:    APIVersion,
	})
}

func (s *Service) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.fetchAll(r.Context())
	if err != nil {
		s.warnf("fetch_all_error", "error=%v", err)
		writeJSONError(w, http.StatusBadGateway, "fetch records failed")
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Service) handleUpsert(w http.ResponseWriter, r *http.Request) {
	param := dateParam{Date: chi.URLParam(r, "date")}
	if err := s.validate.Struct(param); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q", param.Date))
		return
	}

	var req UpsertRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<10))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "body must be {\"value\": number|null}")
		return
	}

	res, err := s.upsert(r.Context(), param.Date, req.Value)
	if err != nil {
		s.warnf("upsert_error", "date=%s error=%v", param.Date, err)
		if errors.Is(err, core.ErrInvalidDateKey) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSONError(w, http.StatusBadGateway, "upsert failed")
		return
	}
	s.metrics.upsertsTotal.WithLabelValues(res.Action).Inc()
	s.infof("upsert", "date=%s action=%s", param.Date, res.Action)
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleLayout(w http.ResponseWriter, r *http.Request) {
	q, err := parseLayoutQuery(r)
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid layout query")
		return
	}

	records, err := s.fetchAll(r.Context())
	if err != nil {
		s.warnf("layout_fetch_error", "error=%v", err)
		writeJSONError(w, http.StatusBadGateway, "fetch records failed")
		return
	}
	writeJSON(w, http.StatusOK, s.computeLayout(records, q))
}

func (s *Service) computeLayout(records []core.Record, q LayoutQuery) LayoutResponse {
	model := calendar.NewModel(s.now)
	model.Load(records)

	coord := viewstate.NewCoordinator(nil, model, s.cfg.Grid)
	if q.Rows > 0 {
		coord.SetRows(float64(q.Rows))
	}
	if q.Width > 0 || q.Height > 0 {
		f := coord.Frame()
		w, h := f.State.ViewportW, f.State.ViewportH
		if q.Width > 0 {
			w = q.Width
		}
		if q.Height > 0 {
			h = q.Height
		}
		coord.SetViewport(w, h)
	}
	if q.Mode != "" {
		coord.SetGraphMode(core.ParseAggregateMode(q.Mode))
	}

	f := coord.Frame()
	resp := LayoutResponse{
		Rows:       f.State.Rows,
		Mode:       f.State.GraphMode,
		Metrics:    f.Metrics,
		Padding:    f.Padding,
		Layout:     f.Layout,
		Cells:      f.Cells,
		TodayIndex: f.TodayIndex,
		Series:     f.Series,
		Data:       f.Data,
		Axis:       f.Axis,
	}
	if f.HeatOK {
		heat := f.Heat
		resp.Heat = &heat
	}
	return resp
}

func parseLayoutQuery(r *http.Request) (LayoutQuery, error) {
	values := r.URL.Query()
	var q LayoutQuery
	var err error
	if v := strings.TrimSpace(values.Get("rows")); v != "" {
		if q.Rows, err = strconv.Atoi(v); err != nil {
			return q, err
		}
	}
	if v := strings.TrimSpace(values.Get("width")); v != "" {
		if q.Width, err = strconv.ParseFloat(v, 64); err != nil {
			return q, err
		}
	}
	if v := strings.TrimSpace(values.Get("height")); v != "" {
		if q.Height, err = strconv.ParseFloat(v, 64); err != nil {
			return q, err
		}
	}
	q.Mode = strings.TrimSpace(values.Get("mode"))
	return q, nil
}

// --- Logging ---

func (s *Service) infof(event, format string, args ...any) {
	if s == nil || !s.cfg.Verbose {
		return
	}
	if strings.TrimSpace(format) == "" {
		log.Printf("daemon level=info event=%s", event)
		return
	}
	log.Printf("daemon level=info event=%s "+format, append([]any{event}, args...)...)
}

func (s *Service) warnf(event, format string, args ...any) {
	if s == nil || !s.cfg.Verbose {
		return
	}
	if strings.TrimSpace(format) == "" {
		log.Printf("daemon level=warn event=%s", event)
		return
	}
	log.Printf("daemon level=warn event=%s "+format, append([]any{event}, args...)...)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: core.UpsertStatusError, Message: message})
}
