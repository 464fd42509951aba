package game

const (
	StatusCreated  = "created"
	StatusActive   = "active"
	StatusFinished = "finished"
)

type PlayerView struct {
	UserID        int64  `json:"userId"`
	Username      string `json:"username"`
	Committed     bool   `json:"committed"`
	RevealedBoard string `json:"revealedBoard,omitempty"`
}

type MatchState struct {
	ID         int64       `json:"id"`
	Status     string      `json:"status"`
	Player1    *PlayerView `json:"player1"`
	Player2    *PlayerView `json:"player2"`
	NextTurnID int64       `json:"nextTurnId,omitempty"`
	WinnerID   int64       `json:"winnerId,omitempty"`
	ShotCount  int         `json:"shotCount"`
}

type ShotRecord struct {
	Seq    int64 `json:"seq"`
	Firer  int64 `json:"firer"`
	Target int64 `json:"target"`
	Row    int   `json:"row"`
	Col    int   `json:"col"`
}

type Event struct {
	Type    string      `json:"type"`
	MatchID int64       `json:"matchId"`
	Payload interface{} `json:"payload"`
}

type MatchCreatedPayload struct {
	MatchID int64 `json:"matchId"`
	Player1 int64 `json:"player1"`
	Player2 int64 `json:"player2"`
}

type BoardCommittedPayload struct {
	UserID int64 `json:"userId"`
}

type MatchStartedPayload struct {
	NextTurnID int64 `json:"nextTurnId"`
}

type ShotFiredPayload struct {
	Seq        int64 `json:"seq"`
	Firer      int64 `json:"firer"`
	Target     int64 `json:"target"`
	Row        int   `json:"row"`
	Col        int   `json:"col"`
	NextTurnID int64 `json:"nextTurnId"`
}

type BoardRevealedPayload struct {
	UserID    int64 `json:"userId"`
	Hits      int   `json:"hits"`
	ShipCells int   `json:"shipCells"`
}

type MatchFinishedPayload struct {
	WinnerID   int64 `json:"winnerId"`
	RevealedBy int64 `json:"revealedBy"`
	Hits       int   `json:"hits"`
	ShipCells  int   `json:"shipCells"`
}
