package ws

import "encoding/json"

// IncomingMessage is the client-to-server envelope. Fire is the only match
// action playable over the socket; the payload is decoded per message type.
type IncomingMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FirePayload carries the target cell of a fire message. Coordinates must be
// whole JSON numbers; fractional values fail to decode.
type FirePayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type OutgoingMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
