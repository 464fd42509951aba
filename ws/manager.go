package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swampdaddy/bships/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Manager routes websocket connections into per-match rooms. Incoming fire
// messages are dispatched to the engine; everything else a client sees is a
// broadcast of a match event.
type Manager struct {
	rooms  map[int64]*Room
	engine *game.Engine
	mu     sync.RWMutex
}

func NewManager(engine *game.Engine) *Manager {
	return &Manager{
		rooms:  make(map[int64]*Room),
		engine: engine,
	}
}

func (m *Manager) GetRoom(matchID int64) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[matchID]
	if !exists {
		room = NewRoom(matchID)
		m.rooms[matchID] = room
	}
	return room
}

func (m *Manager) HandleConnection(conn *websocket.Conn, matchID, playerID int64) {
	client := &Client{
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, 256),
	}

	room := m.GetRoom(matchID)
	room.AddClient(client)

	go m.writePump(client)
	go m.readPump(client, room)
}

func (m *Manager) readPump(client *Client, room *Room) {
	defer func() {
		room.RemoveClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var inMsg IncomingMessage
		if err := json.Unmarshal(message, &inMsg); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			continue
		}

		m.handleMessage(client, room, &inMsg)
	}
}

func (m *Manager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket message
			n := len(client.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-client.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) handleMessage(client *Client, room *Room, msg *IncomingMessage) {
	switch msg.Type {
	case "fire":
		var fire FirePayload
		if err := json.Unmarshal(msg.Payload, &fire); err != nil {
			m.sendError(client, "fire requires integer row and col")
			return
		}

		event, err := m.engine.Fire(room.matchID, client.playerID, fire.Row, fire.Col)
		if err != nil {
			m.sendError(client, err.Error())
			return
		}

		room.Broadcast(OutgoingMessage{
			Type:    event.Type,
			Payload: event.Payload,
		})

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

func (m *Manager) sendError(client *Client, message string) {
	errorMsg := OutgoingMessage{
		Type:    "error",
		Payload: map[string]string{"message": message},
	}
	data, _ := json.Marshal(errorMsg)
	select {
	case client.send <- data:
	default:
	}
}
