package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointsops_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pointsops_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// NewRouter mounts every endpoint under /api/v1 plus /health and /metrics.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.instrument)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/auth/register", h.RegisterHandler).Methods("POST")
	v1.HandleFunc("/auth/login", h.LoginHandler).Methods("POST")

	v1.HandleFunc("/users", h.ListUsersHandler).Methods("GET")
	v1.HandleFunc("/users/{id}", h.GetUserHandler).Methods("GET")
	v1.HandleFunc("/users/{id}", h.UpdateUserHandler).Methods("PUT")

	v1.HandleFunc("/transactions", h.ListTransactionsHandler).Methods("GET")
	v1.HandleFunc("/transactions", h.CreateTransferHandler).Methods("POST")
	v1.HandleFunc("/analytics/transactions", h.TransactionAnalyticsHandler).Methods("GET")

	v1.HandleFunc("/polls", h.ListPollsHandler).Methods("GET")
	v1.HandleFunc("/polls", h.CreatePollHandler).Methods("POST")
	v1.HandleFunc("/polls/{id}", h.GetPollHandler).Methods("GET")
	v1.HandleFunc("/polls/{id}/vote", h.VoteHandler).Methods("POST")
	v1.HandleFunc("/polls/{id}/toggle", h.TogglePollHandler).Methods("POST")

	v1.HandleFunc("/chats", h.ListChatsHandler).Methods("GET")
	v1.HandleFunc("/chats", h.PostChatHandler).Methods("POST")
	v1.HandleFunc("/analysis-history", h.ListAnalysisHandler).Methods("GET")
	v1.HandleFunc("/analysis-history", h.SaveAnalysisHandler).Methods("POST")
	v1.HandleFunc("/analysis-history", h.ClearAnalysisHandler).Methods("DELETE")

	v1.HandleFunc("/admin-requests", h.ListAdminRequestsHandler).Methods("GET")
	v1.HandleFunc("/admin-requests", h.CreateAdminRequestHandler).Methods("POST")
	v1.HandleFunc("/admin-requests/user/{id}", h.UserAdminRequestsHandler).Methods("GET")
	v1.HandleFunc("/admin-requests/{id}/approve", h.ApproveAdminRequestHandler).Methods("POST")
	v1.HandleFunc("/admin-requests/{id}/reject", h.RejectAdminRequestHandler).Methods("POST")
	v1.HandleFunc("/admin-requests/{id}/reapply", h.ReapplyAdminRequestHandler).Methods("POST")

	v1.HandleFunc("/admin/make-admin", h.MakeAdminHandler).Methods("POST")
	v1.HandleFunc("/admin/remove-admin", h.RemoveAdminHandler).Methods("POST")
	v1.HandleFunc("/admin/delete-user/{id}", h.DeleteUserHandler).Methods("DELETE")
	v1.HandleFunc("/admin/delete-poll/{id}", h.DeletePollHandler).Methods("DELETE")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics by route template and logs each request.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		h.log.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed))
	})
}
