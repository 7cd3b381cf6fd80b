// Package http serves the web UI: server-rendered pages with htmx-driven
// partial swaps. Every user action becomes one or more calls to the remote
// budget API; responses replace the relevant view region wholesale, so the
// UI always reflects the latest successful fetch.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/api"
	"tally/internal/session"
	appweb "tally/web"
)

const sessionCookieName = "tally_session"

type contextKey string

const sessionContextKey contextKey = "session"

type Server struct {
	http.Server
	templates   *template.Template
	client      *api.Client
	sessions    *session.Store
	rateLimiter *rateLimiter
}

// Simple in-memory rate limiter for mutating requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute.
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, client *api.Client, sessions *session.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		client:      client,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Auth screens are the only unauthenticated pages.
	mux.HandleFunc("GET /login", s.withRequestContext(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.withRequestContext(s.handleLogin))
	mux.HandleFunc("GET /register", s.withRequestContext(s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.withRequestContext(s.handleRegister))
	mux.HandleFunc("POST /logout", s.withRequestContext(s.handleLogout))

	// Everything else is gated behind a session.
	mux.HandleFunc("GET /{$}", s.withRequestContext(s.requireAuth(s.handleRoot)))
	mux.HandleFunc("GET /dashboard", s.withRequestContext(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("GET /ui/summary", s.withRequestContext(s.requireAuth(s.handleSummaryPartial)))

	mux.HandleFunc("GET /transactions", s.withRequestContext(s.requireAuth(s.handleTransactionsPage)))
	mux.HandleFunc("GET /ui/transactions", s.withRequestContext(s.requireAuth(s.handleTransactionTable)))
	mux.HandleFunc("POST /transactions", s.withRequestContext(s.requireAuth(s.handleCreateTransaction)))
	mux.HandleFunc("GET /transactions/{id}/edit", s.withRequestContext(s.requireAuth(s.handleEditTransactionForm)))
	mux.HandleFunc("POST /transactions/{id}", s.withRequestContext(s.requireAuth(s.handleUpdateTransaction)))
	mux.HandleFunc("POST /transactions/{id}/delete", s.withRequestContext(s.requireAuth(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /ui/category-options", s.withRequestContext(s.requireAuth(s.handleCategoryOptions)))
	mux.HandleFunc("POST /categories", s.withRequestContext(s.requireAuth(s.handleCreateCategory)))

	mux.HandleFunc("GET /budgets", s.withRequestContext(s.requireAuth(s.handleBudgetsPage)))
	mux.HandleFunc("GET /ui/budget-overview", s.withRequestContext(s.requireAuth(s.handleBudgetOverview)))
	mux.HandleFunc("POST /budgets", s.withRequestContext(s.requireAuth(s.handleSubmitBudget)))

	return s
}

// Shutdown stops the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}
	return s.Server.Shutdown(ctx)
}

// withRequestContext adds security headers, rate limiting on mutations,
// a request id, and request logging.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireAuth loads the session for the request cookie. Without one the
// user is sent to the login screen; htmx requests get an HX-Redirect so
// the full page navigates rather than swapping a fragment.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			redirectToLogin(w, r)
			return
		}

		sess, err := s.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			clearSessionCookie(w)
			redirectToLogin(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next(w, r.WithContext(ctx))
	}
}

// sessionFrom returns the authenticated session placed by requireAuth.
func sessionFrom(r *http.Request) session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(session.Session)
	return sess
}

// expireSession destroys the local session after the API rejected its
// token and sends the user back to login.
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess.ID != "" {
		if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete rejected session", "error", err)
		}
	}
	clearSessionCookie(w)
	redirectToLogin(w, r)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}
