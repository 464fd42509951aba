package game

import (
	"github.com/swampdaddy/bships/store"
)

// Lobby serves the read side: match listings, match state views and shot
// logs. Commitments are surfaced only as set/unset — the digests themselves
// stay opaque until a player reveals.
type Lobby struct {
	store store.Store
}

func NewLobby(store store.Store) *Lobby {
	return &Lobby{store: store}
}

func (l *Lobby) ListMatches() ([]*MatchState, error) {
	matches, err := l.store.ListMatches()
	if err != nil {
		return nil, err
	}

	states := make([]*MatchState, 0, len(matches))
	for _, match := range matches {
		state, err := l.buildState(match)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func (l *Lobby) GetMatch(matchID int64) (*MatchState, error) {
	match, err := l.store.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}
	return l.buildState(match)
}

// GetShots returns the combat log in recording order. Read back in order it
// reconstructs the full turn history of the match.
func (l *Lobby) GetShots(matchID int64) ([]*ShotRecord, error) {
	match, err := l.store.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	shots, err := l.store.GetShots(matchID)
	if err != nil {
		return nil, err
	}

	records := make([]*ShotRecord, len(shots))
	for i, shot := range shots {
		records[i] = &ShotRecord{
			Seq: shot.Seq, Firer: shot.Firer, Target: shot.Target,
			Row: shot.Row, Col: shot.Col,
		}
	}
	return records, nil
}

func (l *Lobby) buildState(match *store.Match) (*MatchState, error) {
	player1, err := l.playerView(match.Player1, match.Player1Commitment, match.Player1Revealed)
	if err != nil {
		return nil, err
	}
	player2, err := l.playerView(match.Player2, match.Player2Commitment, match.Player2Revealed)
	if err != nil {
		return nil, err
	}

	shots, err := l.store.GetShots(match.ID)
	if err != nil {
		return nil, err
	}

	return &MatchState{
		ID:         match.ID,
		Status:     match.Status,
		Player1:    player1,
		Player2:    player2,
		NextTurnID: match.NextTurn,
		WinnerID:   match.Winner,
		ShotCount:  len(shots),
	}, nil
}

func (l *Lobby) playerView(userID int64, commitment, revealed string) (*PlayerView, error) {
	user, err := l.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	view := &PlayerView{
		UserID:        userID,
		Committed:     commitment != "",
		RevealedBoard: revealed,
	}
	if user != nil {
		view.Username = user.Username
	}
	return view, nil
}
