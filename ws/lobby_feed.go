package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// LobbyFeed pushes open-match list updates to everyone sitting in the
// lobby. It is one-way: clients only listen.
type LobbyFeed struct {
	clients map[int64]*lobbyClient
	mu      sync.RWMutex
}

type lobbyClient struct {
	conn     *websocket.Conn
	playerID int64
	send     chan []byte
}

func NewLobbyFeed() *LobbyFeed {
	return &LobbyFeed{
		clients: make(map[int64]*lobbyClient),
	}
}

func (lf *LobbyFeed) HandleConnection(conn *websocket.Conn, playerID int64) {
	client := &lobbyClient{
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, 256),
	}

	lf.mu.Lock()
	if old, ok := lf.clients[playerID]; ok {
		// A newer lobby tab displaces the old one. Shut the old
		// connection down here so its exit cannot tear down this one.
		close(old.send)
		old.conn.Close()
	}
	lf.clients[playerID] = client
	lf.mu.Unlock()

	go client.writePump()
	client.readPump(lf)
}

// BroadcastUpdate sends the current match list to all lobby clients.
func (lf *LobbyFeed) BroadcastUpdate(matches interface{}) {
	data, err := json.Marshal(OutgoingMessage{
		Type:    "matches_update",
		Payload: matches,
	})
	if err != nil {
		log.Printf("Failed to marshal lobby update: %v", err)
		return
	}

	lf.mu.RLock()
	defer lf.mu.RUnlock()

	for _, client := range lf.clients {
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip
		}
	}
}

func (c *lobbyClient) readPump(lf *LobbyFeed) {
	defer func() {
		lf.removeClient(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Lobby WebSocket error: %v", err)
			}
			break
		}
		// The lobby ignores incoming messages; reading only keeps the
		// connection alive.
	}
}

func (c *lobbyClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// removeClient unregisters a client only if it still owns its map slot; a
// client displaced by a newer connection was already closed and must not
// take the newer one down with it.
func (lf *LobbyFeed) removeClient(c *lobbyClient) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.clients[c.playerID] == c {
		close(c.send)
		delete(lf.clients, c.playerID)
	}
}
