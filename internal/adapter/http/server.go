package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportProvider returns the report of the most recent completed run.
type ReportProvider interface {
	LastReport() (domain.Report, bool)
}

// Server exposes health, readiness, metrics, and run report HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /report routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /report", handleReport(reports))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type failureView struct {
	Analysis string `json:"analysis"`
	Subject  string `json:"subject"`
	Error    string `json:"error"`
}

// trendView mirrors domain.TrendResult with NaN replaced by null, which
// encoding/json cannot represent.
type trendView struct {
	Variable    string   `json:"variable"`
	Slope       *float64 `json:"slope"`
	Intercept   *float64 `json:"intercept"`
	RSquared    *float64 `json:"r_squared"`
	PValue      *float64 `json:"p_value"`
	N           int      `json:"n"`
	Significant bool     `json:"significant"`
	Direction   string   `json:"direction"`
}

type correlationView struct {
	Left        string   `json:"left"`
	Right       string   `json:"right"`
	Coefficient *float64 `json:"coefficient"`
	N           int      `json:"n"`
	Defined     bool     `json:"defined"`
}

type reportView struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	Region       string            `json:"region"`
	AnnualRows   int               `json:"annual_rows"`
	MonthlyRows  int               `json:"monthly_rows"`
	Trends       []trendView       `json:"trends"`
	Correlations []correlationView `json:"correlations"`
	Failures     []failureView     `json:"failures"`
	Outputs      []string          `json:"outputs"`
}

func handleReport(reports ReportProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report, ok := reports.LastReport()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no completed run"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, newReportView(report))
	}
}

func newReportView(r domain.Report) reportView {
	v := reportView{
		GeneratedAt:  r.GeneratedAt,
		Region:       r.Region,
		AnnualRows:   r.Annual.Len(),
		MonthlyRows:  r.Monthly.Len(),
		Trends:       make([]trendView, 0, len(r.Trends)),
		Correlations: make([]correlationView, 0, len(r.Correlations)),
		Failures:     make([]failureView, 0, len(r.Failures)),
		Outputs:      append([]string{}, r.Outputs...),
	}
	for _, t := range r.Trends {
		v.Trends = append(v.Trends, trendView{
			Variable:    t.Variable,
			Slope:       finite(t.Slope),
			Intercept:   finite(t.Intercept),
			RSquared:    finite(t.RSquared),
			PValue:      finite(t.PValue),
			N:           t.N,
			Significant: t.Significant,
			Direction:   t.Direction(),
		})
	}
	for _, c := range r.Correlations {
		v.Correlations = append(v.Correlations, correlationView{
			Left:        c.Left,
			Right:       c.Right,
			Coefficient: finite(c.Coefficient),
			N:           c.N,
			Defined:     c.Defined,
		})
	}
	for _, f := range r.Failures {
		v.Failures = append(v.Failures, failureView{Analysis: f.Analysis, Subject: f.Subject, Error: f.Err.Error()})
	}
	return v
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
