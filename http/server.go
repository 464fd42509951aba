package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/swampdaddy/bships/auth"
	"github.com/swampdaddy/bships/game"
	"github.com/swampdaddy/bships/store"
	"github.com/swampdaddy/bships/ws"
)

type Server struct {
	router   *mux.Router
	handlers *Handlers
}

func NewServer(authService *auth.Service, lobby *game.Lobby, engine *game.Engine, wsManager *ws.Manager, lobbyFeed *ws.LobbyFeed, store store.Store) *Server {
	router := mux.NewRouter()
	handlers := NewHandlers(authService, lobby, engine, wsManager, lobbyFeed, store)

	server := &Server{
		router:   router,
		handlers: handlers,
	}

	server.setupRoutes(authService)
	return server
}

func (s *Server) setupRoutes(authService *auth.Service) {
	s.router.Use(LoggingMiddleware)
	s.router.Use(SecurityHeadersMiddleware)

	// CSRF note: SameSite=Lax on the session cookie prevents cross-site POST
	// requests from including the cookie, providing CSRF protection for all
	// state-changing endpoints without needing a token-based scheme.

	// Rate limiters for the endpoints reachable without a session
	loginLimiter := NewRateLimiter(5.0/60.0, 5)
	registerLimiter := NewRateLimiter(3.0/60.0, 3)

	s.router.Handle("/api/auth/register", registerLimiter.Middleware(http.HandlerFunc(s.handlers.Register))).Methods("POST")
	s.router.Handle("/api/auth/login", loginLimiter.Middleware(http.HandlerFunc(s.handlers.Login))).Methods("POST")

	// Protected routes
	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(AuthMiddleware(authService))

	protected.HandleFunc("/auth/logout", s.handlers.Logout).Methods("POST")
	protected.HandleFunc("/matches", s.handlers.ListMatches).Methods("GET")
	protected.HandleFunc("/matches", s.handlers.CreateMatch).Methods("POST")
	protected.HandleFunc("/matches/{matchId}", s.handlers.GetMatch).Methods("GET")
	protected.HandleFunc("/matches/{matchId}/shots", s.handlers.GetShots).Methods("GET")
	protected.HandleFunc("/matches/{matchId}/commit", s.handlers.Commit).Methods("POST")
	protected.HandleFunc("/matches/{matchId}/start", s.handlers.StartMatch).Methods("POST")
	protected.HandleFunc("/matches/{matchId}/fire", s.handlers.Fire).Methods("POST")
	protected.HandleFunc("/matches/{matchId}/reveal", s.handlers.Reveal).Methods("POST")

	// WebSocket routes (protected)
	wsRouter := s.router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(AuthMiddleware(authService))
	wsRouter.HandleFunc("/match/{matchId}", s.handlers.HandleWebSocket)
	wsRouter.HandleFunc("/lobby", s.handlers.HandleLobbyWebSocket)

	// Catch-all for unmatched API routes
	s.router.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
}

func (s *Server) GetHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
