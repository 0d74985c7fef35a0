package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banshee-data/mutant.report/internal/dna"
	"github.com/banshee-data/mutant.report/internal/evaluation"
	"github.com/banshee-data/mutant.report/internal/httputil"
	"github.com/banshee-data/mutant.report/internal/monitoring"
	"github.com/banshee-data/mutant.report/internal/stats"
	"github.com/banshee-data/mutant.report/internal/version"
)

// maxBodyBytes caps a POST /mutant body.
const maxBodyBytes = 1 << 20

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Evaluator is the evaluation flow the server fronts.
type Evaluator interface {
	Evaluate(ctx context.Context, rows []string) (bool, error)
	Report(ctx context.Context) (stats.Stats, error)
}

type Server struct {
	eval   Evaluator
	logger *zap.Logger
}

// NewServer returns a Server. A nil logger uses the process logger.
func NewServer(eval Evaluator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = monitoring.L()
	}
	return &Server{eval: eval, logger: logger}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware tags each request with an id and logs method, path,
// status and duration once it completes.
func LoggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		level := zap.InfoLevel
		if lrw.statusCode >= http.StatusInternalServerError {
			level = zap.ErrorLevel
		}
		logger.Log(level, "http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/mutant", s.handleMutant)
	mux.HandleFunc("/mutant/", s.handleMutant)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/", s.handleStats)
	mux.HandleFunc("/stats/chart", s.handleStatsChart)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Handler is ServeMux wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.logger, s.ServeMux())
}

type mutantRequest struct {
	DNA []string `json:"dna"`
}

func (s *Server) handleMutant(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/mutant" && r.URL.Path != "/mutant/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req mutantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteRequestError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	_, err := s.eval.Evaluate(r.Context(), req.DNA)
	var verr *dna.ValidationError
	switch {
	case err == nil:
		httputil.OK(w)
	case errors.Is(err, evaluation.ErrRejected):
		httputil.Forbidden(w)
	case errors.As(err, &verr):
		httputil.WriteRequestError(w, r, http.StatusBadRequest, verr.Error())
	default:
		s.logger.Error("evaluation failed", zap.Error(err))
		httputil.WriteRequestError(w, r, http.StatusInternalServerError, "evaluation failed")
	}
}

// statsResponse is the GET /stats body. Ratio is count_mutant_dna divided
// by count_total_dna, and null before anything has been recorded.
type statsResponse struct {
	CountMutantDNA int64 `json:"count_mutant_dna"`
	// Deprecated: CountHumanDNA counts every distinct evaluated grid, mutant
	// grids included. It equals CountTotalDNA and stays only for clients of
	// the existing contract; read count_total_dna instead.
	CountHumanDNA int64    `json:"count_human_dna"`
	CountTotalDNA int64    `json:"count_total_dna"`
	Ratio         *float64 `json:"ratio"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/stats" && r.URL.Path != "/stats/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	st, err := s.eval.Report(r.Context())
	switch {
	case errors.Is(err, stats.ErrDivisionUndefined):
		httputil.WriteJSONOK(w, statsResponse{})
		return
	case err != nil:
		s.logger.Error("failed to build stats", zap.Error(err))
		httputil.WriteRequestError(w, r, http.StatusInternalServerError, "failed to load stats")
		return
	}

	ratio := st.Ratio
	httputil.WriteJSONOK(w, statsResponse{
		CountMutantDNA: st.Qualifying,
		CountHumanDNA:  st.Total,
		CountTotalDNA:  st.Total,
		Ratio:          &ratio,
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, healthResponse{
		Status:  "ok",
		Version: version.Version,
		GitSHA:  version.GitSHA,
	})
}
