// Package api provides the HTTP API for newsimpact.
//
// It exposes single, batch, daily and by-date news analysis, daily
// summaries of existing results, key status, and a WebSocket stream of
// batch progress.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"

	"github.com/seenimoa/newsimpact/internal/agent"
	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Version is reported by /health.
var Version = "dev"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	svc      *agent.Service
	wsHub    *WSHub
	validate *validator.Validate
	logger   *log.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, svc *agent.Service, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		validate: validator.New(),
		logger:   logging.OrNop(logger),
	}
	s.wsHub = NewWSHub(s.logger)
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Minute))
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/analyze/batch", s.handleAnalyzeBatch)
			r.Post("/analyze/daily", s.handleAnalyzeDaily)
			r.Post("/analyze/by-date", s.handleAnalyzeByDate)
			r.Post("/summarize", s.handleSummarize)
		})

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("elapsed", time.Since(start).Round(time.Microsecond).String()).
			Msg("http request")
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchRequest is the body for POST /api/v1/analyze/batch.
type BatchRequest struct {
	Items       []models.NewsItem `json:"items"       validate:"required,dive"`
	Concurrency int               `json:"concurrency" validate:"gte=0,lte=64"`
}

// DailyRequest is the body for POST /api/v1/analyze/daily.
type DailyRequest struct {
	Date  string            `json:"date"  validate:"omitempty,datetime=2006-01-02"`
	Items []models.NewsItem `json:"items" validate:"dive"`
}

// ByDateRequest is the body for POST /api/v1/analyze/by-date.
type ByDateRequest struct {
	Dates map[string][]models.NewsItem `json:"dates" validate:"required"`
}

// SummarizeRequest is the body for POST /api/v1/summarize.
type SummarizeRequest struct {
	Date    string                  `json:"date"    validate:"omitempty,datetime=2006-01-02"`
	Results []models.AnalysisResult `json:"results"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"version":       Version,
			"model":         s.svc.Model(),
			"market_status": utils.MarketStatus(),
			"time_cst":      utils.FormatDateTimeCST(utils.NowCST()),
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var item models.NewsItem
	if !s.decode(w, r, &item) {
		return
	}

	res := s.svc.AnalyzeSingle(r.Context(), item)

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]any{
			"title":      item.Title,
			"model_used": res.ModelUsed,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	batch := s.svc.AnalyzeBatch(r.Context(), req.Items, req.Concurrency, s.broadcastProgress)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: batch})
}

func (s *Server) handleAnalyzeDaily(w http.ResponseWriter, r *http.Request) {
	var req DailyRequest
	if !s.decode(w, r, &req) {
		return
	}

	daily := s.svc.AnalyzeDailyNews(r.Context(), req.Date, req.Items, s.broadcastProgress)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: daily})
}

func (s *Server) handleAnalyzeByDate(w http.ResponseWriter, r *http.Request) {
	var req ByDateRequest
	if !s.decode(w, r, &req) {
		return
	}
	for date, items := range req.Dates {
		if !utils.ValidDate(date) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
			return
		}
		for i := range items {
			if err := s.validate.Struct(items[i]); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("%s item %d: %v", date, i, err))
				return
			}
		}
	}

	out := s.svc.BatchAnalyzeByDate(r.Context(), req.Dates, s.broadcastProgress)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i, res := range req.Results {
		if err := res.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("result %d: %v", i, err))
			return
		}
	}
	date := req.Date
	if date == "" {
		date = utils.Today()
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.svc.Summarizer().Summarize(date, req.Results),
	})
}

func (s *Server) broadcastProgress(p agent.Progress) {
	s.wsHub.Broadcast(WSMessage{Type: "batch_progress", Data: p})
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
