package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"subwatch/internal/core"
	"subwatch/internal/log"
	"subwatch/internal/services"
)

// SubscriptionAPI is the service surface the HTTP layer exposes.
type SubscriptionAPI interface {
	DetectSubscriptions(ctx context.Context, ownerID string) ([]core.DetectedSubscription, error)
	Create(ctx context.Context, ownerID string, input services.CreateSubscriptionInput) (core.Subscription, error)
	Update(ctx context.Context, ownerID, id string, patch services.UpdateSubscriptionPatch) (core.Subscription, error)
	Pause(ctx context.Context, ownerID, id string) (core.Subscription, error)
	Resume(ctx context.Context, ownerID, id string) (core.Subscription, error)
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string) ([]core.Subscription, error)
	ListPlannedPayments(ctx context.Context, ownerID, id string) ([]core.PlannedPayment, error)
}

type Server struct {
	http.Server
	api         SubscriptionAPI
	rateLimiter *rateLimiter
	logger      *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api SubscriptionAPI, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		api:         api,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/subscriptions/detected", s.withMiddleware(s.handleDetected))
	mux.HandleFunc("/api/subscriptions", s.withMiddleware(s.handleSubscriptions))
	mux.HandleFunc("/api/subscriptions/update", s.withMiddleware(s.handleUpdate))
	mux.HandleFunc("/api/subscriptions/pause", s.withMiddleware(s.handlePause))
	mux.HandleFunc("/api/subscriptions/resume", s.withMiddleware(s.handleResume))
	mux.HandleFunc("/api/subscriptions/delete", s.withMiddleware(s.handleDelete))
	mux.HandleFunc("/api/subscriptions/payments", s.withMiddleware(s.handlePlannedPayments))

	return s
}

// withMiddleware adds security headers, rate limiting, request ids, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		// Mutations are rate limited per client, reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.Warn("rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
