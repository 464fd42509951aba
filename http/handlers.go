package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/swampdaddy/bships/auth"
	"github.com/swampdaddy/bships/game"
	"github.com/swampdaddy/bships/store"
	"github.com/swampdaddy/bships/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Only allow same origin until a deployment needs more.
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

type Handlers struct {
	authService *auth.Service
	lobby       *game.Lobby
	engine      *game.Engine
	wsManager   *ws.Manager
	lobbyFeed   *ws.LobbyFeed
	store       store.Store
}

func NewHandlers(authService *auth.Service, lobby *game.Lobby, engine *game.Engine, wsManager *ws.Manager, lobbyFeed *ws.LobbyFeed, store store.Store) *Handlers {
	return &Handlers{
		authService: authService,
		lobby:       lobby,
		engine:      engine,
		wsManager:   wsManager,
		lobbyFeed:   lobbyFeed,
		store:       store,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write JSON response: %v", err)
	}
}

// writeEngineError maps the engine's sentinel errors onto HTTP statuses.
// Anything unrecognized is a server-side failure.
func writeEngineError(w http.ResponseWriter, err error) {
	switch err {
	case game.ErrMatchNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case game.ErrInvalidPlayer:
		http.Error(w, err.Error(), http.StatusForbidden)
	case game.ErrInvalidState, game.ErrAlreadyCommitted, game.ErrCommitmentMissing,
		game.ErrInvalidCoordinate, game.ErrNoCommitment, game.ErrRevealMismatch,
		game.ErrSelfMatch, game.ErrBadCommitment:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Engine error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// Auth handlers

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authService.Register(req.Username, req.Password); err != nil {
		switch err {
		case auth.ErrInvalidUsername, auth.ErrInvalidPassword, auth.ErrUserExists:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Register error: %v", err)
			http.Error(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sessionID, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		} else {
			log.Printf("Login error: %v", err)
			http.Error(w, "Login failed", http.StatusInternalServerError)
		}
		return
	}

	if err := h.authService.GetSessionManager().SetSessionCookie(w, sessionID); err != nil {
		log.Printf("Login: failed to set session cookie: %v", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	user, err := h.store.GetUserByUsername(auth.SanitizeUsername(req.Username))
	if err != nil || user == nil {
		log.Printf("Login: failed to get user info for %s: %v", req.Username, err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Login successful",
		"userId":   user.ID,
		"username": user.Username,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.authService.GetSessionManager().SessionFromRequest(r)
	if sessionID != "" {
		h.authService.Logout(sessionID)
		h.authService.GetSessionManager().ClearSessionCookie(w)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Match handlers

func (h *Handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.lobby.ListMatches()
	if err != nil {
		log.Printf("ListMatches error: %v", err)
		http.Error(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

func (h *Handlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opponent string `json:"opponent"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	creatorID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	opponent, err := h.store.GetUserByUsername(auth.SanitizeUsername(req.Opponent))
	if err != nil {
		log.Printf("CreateMatch error: %v", err)
		http.Error(w, "Failed to create match", http.StatusInternalServerError)
		return
	}
	if opponent == nil {
		http.Error(w, "Opponent not found", http.StatusNotFound)
		return
	}

	event, err := h.engine.CreateMatch(creatorID, opponent.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcastLobby()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"matchId": event.MatchID,
	})
}

func (h *Handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.lobby.GetMatch(matchID)
	if err != nil {
		log.Printf("GetMatch error: %v", err)
		http.Error(w, "Failed to get match", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "Match not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) GetShots(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	shots, err := h.lobby.GetShots(matchID)
	if err != nil {
		if err == game.ErrMatchNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("GetShots error: %v", err)
		http.Error(w, "Failed to get shots", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, shots)
}

func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Commitment string `json:"commitment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	commitment, err := game.ParseCommitment(req.Commitment)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	event, err := h.engine.Commit(matchID, playerID, commitment)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcastEvent(event)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Board committed"})
}

func (h *Handlers) StartMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := h.engine.Start(matchID, playerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcastEvent(event)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Match started"})
}

func (h *Handlers) Fire(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Row int `json:"row"`
		Col int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.engine.Fire(matchID, playerID, req.Row, req.Col)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcastEvent(event)
	writeJSON(w, http.StatusOK, event.Payload)
}

func (h *Handlers) Reveal(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Board string `json:"board"`
		Salt  string `json:"salt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.engine.Reveal(matchID, playerID, req.Board, req.Salt)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcastEvent(event)
	if event.Type == "match_finished" {
		h.broadcastLobby()
	}

	writeJSON(w, http.StatusOK, event.Payload)
}

// WebSocket handler

func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromRequest(w, r)
	if !ok {
		return
	}

	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	h.wsManager.HandleConnection(conn, matchID, playerID)
}

func (h *Handlers) HandleLobbyWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID, ok := GetPlayerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	h.lobbyFeed.HandleConnection(conn, playerID)
}

func (h *Handlers) broadcastEvent(event *game.Event) {
	room := h.wsManager.GetRoom(event.MatchID)
	room.Broadcast(ws.OutgoingMessage{
		Type:    event.Type,
		Payload: event.Payload,
	})
}

func (h *Handlers) broadcastLobby() {
	matches, err := h.lobby.ListMatches()
	if err != nil {
		log.Printf("Failed to list matches for lobby feed: %v", err)
		return
	}
	h.lobbyFeed.BroadcastUpdate(matches)
}

func matchIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	matchID, err := strconv.ParseInt(vars["matchId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return 0, false
	}
	return matchID, true
}
