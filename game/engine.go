package game

import (
	"errors"

	"github.com/swampdaddy/bships/store"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrInvalidPlayer     = errors.New("not a player in this match")
	ErrInvalidState      = errors.New("match is not in the right state for that")
	ErrAlreadyCommitted  = errors.New("board already committed")
	ErrCommitmentMissing = errors.New("both players must commit a board first")
	ErrInvalidCoordinate = errors.New("coordinates must be within [0..9]")
	ErrNoCommitment      = errors.New("no committed board for this player")
	ErrRevealMismatch    = errors.New("revealed board does not match the committed digest")
	ErrSelfMatch         = errors.New("cannot play a match against yourself")
)

// Engine owns the match state machine. Every method is one atomic action:
// it reads the current match record, validates, and commits the transition
// through a single guarded store call. Callers are identified by user ID;
// the transport layer has already authenticated them.
type Engine struct {
	store store.Store
}

func NewEngine(store store.Store) *Engine {
	return &Engine{store: store}
}

// CreateMatch allocates a new match in the created state. The caller is
// player1.
func (e *Engine) CreateMatch(creatorID, opponentID int64) (*Event, error) {
	if creatorID == opponentID {
		return nil, ErrSelfMatch
	}

	matchID, err := e.store.CreateMatch(creatorID, opponentID)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:    "match_created",
		MatchID: matchID,
		Payload: MatchCreatedPayload{
			MatchID: matchID,
			Player1: creatorID,
			Player2: opponentID,
		},
	}, nil
}

// Commit binds a player to a board digest. Each player commits exactly once,
// and only while the match is still in the created state.
func (e *Engine) Commit(matchID, playerID int64, commitment Commitment) (*Event, error) {
	match, err := e.getMatch(matchID)
	if err != nil {
		return nil, err
	}

	slot := slotOf(match, playerID)
	if slot == 0 {
		return nil, ErrInvalidPlayer
	}
	if match.Status != StatusCreated {
		return nil, ErrInvalidState
	}
	if commitmentOf(match, slot) != "" {
		return nil, ErrAlreadyCommitted
	}

	if err := e.store.SetCommitment(matchID, slot, commitment.String()); err != nil {
		return nil, err
	}

	return &Event{
		Type:    "board_committed",
		MatchID: matchID,
		Payload: BoardCommittedPayload{UserID: playerID},
	}, nil
}

// Start transitions the match to active and hands the first turn to player1.
// This is the sole gate into active play: it refuses to open until both
// boards are committed, so neither player can adapt their board to the
// other's shots.
func (e *Engine) Start(matchID, callerID int64) (*Event, error) {
	match, err := e.getMatch(matchID)
	if err != nil {
		return nil, err
	}

	if callerID != match.Player1 {
		return nil, ErrInvalidPlayer
	}
	if match.Status != StatusCreated {
		return nil, ErrInvalidState
	}
	if match.Player1Commitment == "" || match.Player2Commitment == "" {
		return nil, ErrCommitmentMissing
	}

	if err := e.store.ActivateMatch(matchID, match.Player1); err != nil {
		return nil, err
	}

	return &Event{
		Type:    "match_started",
		MatchID: matchID,
		Payload: MatchStartedPayload{NextTurnID: match.Player1},
	}, nil
}

// Fire records a shot for the player who currently holds the turn. The firer
// is never a parameter: it is the match's own turn pointer, which is what
// makes out-of-turn shots impossible rather than merely forbidden. Repeat
// shots at an already-hit cell are legal and simply waste the turn.
func (e *Engine) Fire(matchID, callerID int64, row, col int) (*Event, error) {
	if !ValidCoordinate(row, col) {
		return nil, ErrInvalidCoordinate
	}

	match, err := e.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != StatusActive {
		return nil, ErrInvalidState
	}
	if callerID != match.NextTurn {
		return nil, ErrInvalidPlayer
	}

	firer := match.NextTurn
	opponent := opponentOf(match, firer)

	shot, err := e.store.AppendShot(matchID, firer, opponent, row, col, opponent)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:    "shot_fired",
		MatchID: matchID,
		Payload: ShotFiredPayload{
			Seq:        shot.Seq,
			Firer:      shot.Firer,
			Target:     shot.Target,
			Row:        shot.Row,
			Col:        shot.Col,
			NextTurnID: opponent,
		},
	}, nil
}

// Reveal discloses a player's board and salt, verifies them against the
// stored commitment, and scores every logged shot at that player. When the
// opponent's hits cover every ship cell the match finishes with the opponent
// as winner. An all-water board never produces a win. A finished match
// rejects further reveals with ErrInvalidState.
func (e *Engine) Reveal(matchID, playerID int64, board, salt string) (*Event, error) {
	match, err := e.getMatch(matchID)
	if err != nil {
		return nil, err
	}

	slot := slotOf(match, playerID)
	if slot == 0 {
		return nil, ErrInvalidPlayer
	}
	if match.Status != StatusActive {
		return nil, ErrInvalidState
	}

	stored := commitmentOf(match, slot)
	if stored == "" {
		// An active match always has both commitments; this guards
		// against an inconsistent record.
		return nil, ErrNoCommitment
	}
	if ComputeCommitment(board, salt).String() != stored {
		return nil, ErrRevealMismatch
	}

	shots, err := e.store.GetShots(matchID)
	if err != nil {
		return nil, err
	}

	var targeted []*ShotRecord
	for _, shot := range shots {
		if shot.Target == playerID {
			targeted = append(targeted, &ShotRecord{
				Seq: shot.Seq, Firer: shot.Firer, Target: shot.Target,
				Row: shot.Row, Col: shot.Col,
			})
		}
	}

	hits := CountHits(board, targeted)
	shipCells := CountShipCells(board)

	var winner int64
	if shipCells > 0 && hits >= shipCells {
		winner = opponentOf(match, playerID)
	}

	if err := e.store.ApplyReveal(matchID, slot, board, winner); err != nil {
		return nil, err
	}

	if winner != 0 {
		return &Event{
			Type:    "match_finished",
			MatchID: matchID,
			Payload: MatchFinishedPayload{
				WinnerID:   winner,
				RevealedBy: playerID,
				Hits:       hits,
				ShipCells:  shipCells,
			},
		}, nil
	}

	return &Event{
		Type:    "board_revealed",
		MatchID: matchID,
		Payload: BoardRevealedPayload{
			UserID:    playerID,
			Hits:      hits,
			ShipCells: shipCells,
		},
	}, nil
}

func (e *Engine) getMatch(matchID int64) (*store.Match, error) {
	if matchID <= 0 {
		return nil, ErrMatchNotFound
	}

	match, err := e.store.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

func slotOf(m *store.Match, playerID int64) int {
	switch playerID {
	case m.Player1:
		return 1
	case m.Player2:
		return 2
	default:
		return 0
	}
}

func commitmentOf(m *store.Match, slot int) string {
	if slot == 1 {
		return m.Player1Commitment
	}
	return m.Player2Commitment
}

func opponentOf(m *store.Match, playerID int64) int64 {
	if playerID == m.Player1 {
		return m.Player2
	}
	return m.Player1
}
