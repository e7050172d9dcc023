package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Saturate/YellowLabTools/internal/controller"
	"github.com/Saturate/YellowLabTools/internal/engine"
	"github.com/Saturate/YellowLabTools/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const loginTTL = 24 * time.Hour

// UserSession is a logged-in dashboard user.
type UserSession struct {
	Token      string
	Username   string
	Role       string
	ExpireTime time.Time
}

// Relauncher starts a new test of a page and returns its run id.
type Relauncher interface {
	Relaunch(ctx context.Context, pageURL string) (string, error)
}

// principal is the authenticated caller attached to a request context.
type principal struct {
	Name string
	Role string
}

type principalKey struct{}

// TimelineServer serves the timeline API.
type TimelineServer struct {
	metaStore  *controller.Store
	sessions   *session.Store
	loader     session.Loader
	relauncher Relauncher
	stats      *engine.Stats
	registry   *prometheus.Registry
	settle     time.Duration

	logins   map[string]UserSession
	loginsMu sync.RWMutex
	srv      *http.Server
}

// NewTimelineServer wires the API. relauncher may be nil, which disables
// the retest endpoint.
func NewTimelineServer(ms *controller.Store, sessions *session.Store, l session.Loader, relauncher Relauncher, stats *engine.Stats, settle time.Duration) (*TimelineServer, error) {
	s := &TimelineServer{
		metaStore:  ms,
		sessions:   sessions,
		loader:     &countingLoader{next: l, stats: stats},
		relauncher: relauncher,
		stats:      stats,
		registry:   prometheus.NewRegistry(),
		settle:     settle,
		logins:     make(map[string]UserSession),
	}

	if err := stats.Register(s.registry); err != nil {
		return nil, err
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ylt_active_sessions",
		Help: "Dashboard sessions currently open.",
	}, func() float64 { return float64(sessions.Len()) })
	if err := s.registry.Register(gauge); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the routed API.
func (s *TimelineServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/system/status", s.handleSystemStatus)
	mux.HandleFunc("/api/system/init", s.handleSystemInit)
	mux.Handle("/api/system/config", s.AuthMiddleware(http.HandlerFunc(s.handleSystemConfig)))

	mux.Handle("/api/tokens", s.AuthMiddleware(http.HandlerFunc(s.handleTokens)))
	mux.Handle("/api/tokens/", s.AuthMiddleware(http.HandlerFunc(s.handleTokenItem)))

	mux.Handle("POST /api/sessions", s.AuthMiddleware(http.HandlerFunc(s.handleCreateSession)))
	mux.Handle("GET /api/timeline/{runId}", s.AuthMiddleware(http.HandlerFunc(s.handleTimeline)))
	mux.Handle("GET /api/timeline/{runId}/profiler", s.AuthMiddleware(http.HandlerFunc(s.handleProfiler)))
	mux.Handle("GET /api/timeline/{runId}/locate", s.AuthMiddleware(http.HandlerFunc(s.handleLocate)))
	mux.Handle("GET /api/timeline/{runId}/search", s.AuthMiddleware(http.HandlerFunc(s.handleSearch)))
	mux.Handle("POST /api/timeline/{runId}/details", s.AuthMiddleware(http.HandlerFunc(s.handleDetails)))
	mux.Handle("POST /api/timeline/{runId}/retest", s.AuthMiddleware(http.HandlerFunc(s.handleRetest)))
	mux.Handle("/api/stats", s.AuthMiddleware(http.HandlerFunc(s.handleStats)))

	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start runs the HTTP server.
func (s *TimelineServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *TimelineServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// AuthMiddleware accepts an API token or a login token, from the
// Authorization header or the token query parameter.
func (s *TimelineServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="YellowLab"`)
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		// API token
		if apiToken, ok := s.metaStore.VerifyToken(token); ok {
			ctx := context.WithValue(r.Context(), principalKey{}, principal{Name: apiToken.Name, Role: "api"})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Dashboard login
		s.loginsMu.RLock()
		login, exists := s.logins[token]
		s.loginsMu.RUnlock()

		if exists {
			if time.Now().Before(login.ExpireTime) {
				if _, ok := s.metaStore.GetUser(login.Username); !ok {
					http.Error(w, "User no longer exists", http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), principalKey{}, principal{Name: login.Username, Role: login.Role})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			s.loginsMu.Lock()
			delete(s.logins, token)
			s.loginsMu.Unlock()
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="YellowLab"`)
		http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
	})
}

func caller(r *http.Request) principal {
	p, _ := r.Context().Value(principalKey{}).(principal)
	return p
}

// handleSystemStatus returns the system initialization status.
func (s *TimelineServer) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"initialized": s.metaStore.IsInitialized(),
	})
}

// handleSystemInit initializes the system with the first super_admin.
func (s *TimelineServer) handleSystemInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password required", http.StatusBadRequest)
		return
	}

	if err := s.metaStore.InitializeSystem(req.Username, req.Password); err != nil {
		if errors.Is(err, os.ErrExist) {
			http.Error(w, "System already initialized", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("[System] Initialized with admin %q", req.Username)
	s.createLogin(w, req.Username, "super_admin")
}

func (s *TimelineServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := s.metaStore.Authenticate(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	s.createLogin(w, user.Username, user.Role)
}

func (s *TimelineServer) createLogin(w http.ResponseWriter, username, role string) {
	token := randomHex(16)

	s.loginsMu.Lock()
	s.logins[token] = UserSession{
		Token:      token,
		Username:   username,
		Role:       role,
		ExpireTime: time.Now().Add(loginTTL),
	}
	s.loginsMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"username": username,
		"role":     role,
	})
}

func (s *TimelineServer) handleSystemConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.metaStore.Config())

	case http.MethodPost:
		if caller(r).Role != "super_admin" {
			http.Error(w, "Forbidden: SuperAdmin required", http.StatusForbidden)
			return
		}

		var cfg controller.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := s.metaStore.UpdateConfig(cfg); err != nil {
			if errors.Is(err, controller.ErrInvalidConfig) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Takes effect on next restart.
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *TimelineServer) handleTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.metaStore.Tokens())

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		val, tok, err := s.metaStore.CreateToken(req.Name, caller(r).Name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"token": val, "id": tok.ID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *TimelineServer) handleTokenItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/tokens/")
	if err := s.metaStore.DeleteToken(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns the activity counters.
func (s *TimelineServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, engine.SystemStats{
		PersistentStats: s.stats.Snapshot(),
		ActiveSessions:  s.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
