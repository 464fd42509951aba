package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrConflict is returned when a guarded update finds the record changed
// underneath it. The engine validates before writing, so hitting this means
// another call won the race for the same match record.
var ErrConflict = errors.New("match record changed concurrently")

type Store interface {
	CreateUser(username, passwordHash string) (int64, error)
	GetUserByUsername(username string) (*User, error)
	GetUserByID(userID int64) (*User, error)
	CreateMatch(player1, player2 int64) (int64, error)
	GetMatch(matchID int64) (*Match, error)
	ListMatches() ([]*Match, error)
	SetCommitment(matchID int64, slot int, digest string) error
	ActivateMatch(matchID, firstTurn int64) error
	AppendShot(matchID, firer, target int64, row, col int, nextTurn int64) (*Shot, error)
	ApplyReveal(matchID int64, slot int, board string, winner int64) error
	GetShots(matchID int64) ([]*Shot, error)
	Close() error
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    string
}

// Match mirrors one row of the matches table. Empty commitment and revealed
// strings mean "not set"; NextTurn and Winner are 0 while unset.
type Match struct {
	ID                int64
	Player1           int64
	Player2           int64
	Player1Commitment string
	Player2Commitment string
	Player1Revealed   string
	Player2Revealed   string
	NextTurn          int64
	Winner            int64
	Status            string
	CreatedAt         string
}

// Shot is one append-only combat log entry. Seq starts at 1 and is assigned
// in recording order within its match.
type Shot struct {
	MatchID int64
	Seq     int64
	Firer   int64
	Target  int64
	Row     int
	Col     int
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateUser(username, passwordHash string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(userID int64) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) CreateMatch(player1, player2 int64) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO matches (player1, player2, status) VALUES (?, ?, 'created')",
		player1, player2,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create match: %w", err)
	}
	return result.LastInsertId()
}

func scanMatch(row *sql.Row) (*Match, error) {
	m := &Match{}
	err := row.Scan(
		&m.ID, &m.Player1, &m.Player2,
		&m.Player1Commitment, &m.Player2Commitment,
		&m.Player1Revealed, &m.Player2Revealed,
		&m.NextTurn, &m.Winner, &m.Status, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return m, nil
}

const matchColumns = `id, player1, player2,
	player1_commitment, player2_commitment,
	player1_revealed, player2_revealed,
	next_turn, winner, status, created_at`

func (s *SQLiteStore) GetMatch(matchID int64) (*Match, error) {
	return scanMatch(s.db.QueryRow(
		"SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID,
	))
}

func (s *SQLiteStore) ListMatches() ([]*Match, error) {
	rows, err := s.db.Query(
		"SELECT " + matchColumns + " FROM matches WHERE status != 'finished' ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m := &Match{}
		if err := rows.Scan(
			&m.ID, &m.Player1, &m.Player2,
			&m.Player1Commitment, &m.Player2Commitment,
			&m.Player1Revealed, &m.Player2Revealed,
			&m.NextTurn, &m.Winner, &m.Status, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SetCommitment fills one player's commitment slot. The WHERE clause repeats
// the engine's preconditions so a racing commit cannot overwrite a slot that
// was filled after the engine's read.
func (s *SQLiteStore) SetCommitment(matchID int64, slot int, digest string) error {
	column := commitmentColumn(slot)
	result, err := s.db.Exec(
		"UPDATE matches SET "+column+" = ? WHERE id = ? AND status = 'created' AND "+column+" = ''",
		digest, matchID,
	)
	if err != nil {
		return fmt.Errorf("failed to set commitment: %w", err)
	}
	return requireOneRow(result)
}

// ActivateMatch is the single transition into the active state.
func (s *SQLiteStore) ActivateMatch(matchID, firstTurn int64) error {
	result, err := s.db.Exec(
		`UPDATE matches SET status = 'active', next_turn = ?
		 WHERE id = ? AND status = 'created'
		   AND player1_commitment != '' AND player2_commitment != ''`,
		firstTurn, matchID,
	)
	if err != nil {
		return fmt.Errorf("failed to activate match: %w", err)
	}
	return requireOneRow(result)
}

// AppendShot records one shot and flips the turn in a single transaction.
// The turn-flip UPDATE is guarded on next_turn = firer, so two interleaved
// fire calls can never both land for the same turn.
func (s *SQLiteStore) AppendShot(matchID, firer, target int64, row, col int, nextTurn int64) (*Shot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"UPDATE matches SET next_turn = ? WHERE id = ? AND status = 'active' AND next_turn = ?",
		nextTurn, matchID, firer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to flip turn: %w", err)
	}
	if err := requireOneRow(result); err != nil {
		return nil, err
	}

	var seq int64
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM shots WHERE match_id = ?", matchID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("failed to allocate shot seq: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO shots (match_id, seq, firer, target, row, col) VALUES (?, ?, ?, ?, ?, ?)",
		matchID, seq, firer, target, row, col,
	); err != nil {
		return nil, fmt.Errorf("failed to record shot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Shot{MatchID: matchID, Seq: seq, Firer: firer, Target: target, Row: row, Col: col}, nil
}

// ApplyReveal stores a revealed board and, when winner is non-zero, finishes
// the match in the same transaction. next_turn is cleared on finish so only
// active matches carry a turn pointer.
func (s *SQLiteStore) ApplyReveal(matchID int64, slot int, board string, winner int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"UPDATE matches SET "+revealedColumn(slot)+" = ? WHERE id = ? AND status = 'active'",
		board, matchID,
	)
	if err != nil {
		return fmt.Errorf("failed to store revealed board: %w", err)
	}
	if err := requireOneRow(result); err != nil {
		return err
	}

	if winner != 0 {
		result, err := tx.Exec(
			"UPDATE matches SET status = 'finished', winner = ?, next_turn = 0 WHERE id = ? AND status = 'active'",
			winner, matchID,
		)
		if err != nil {
			return fmt.Errorf("failed to finish match: %w", err)
		}
		if err := requireOneRow(result); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetShots(matchID int64) ([]*Shot, error) {
	rows, err := s.db.Query(
		"SELECT match_id, seq, firer, target, row, col FROM shots WHERE match_id = ? ORDER BY seq",
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shots: %w", err)
	}
	defer rows.Close()

	var shots []*Shot
	for rows.Next() {
		shot := &Shot{}
		if err := rows.Scan(&shot.MatchID, &shot.Seq, &shot.Firer, &shot.Target, &shot.Row, &shot.Col); err != nil {
			return nil, fmt.Errorf("failed to scan shot: %w", err)
		}
		shots = append(shots, shot)
	}
	return shots, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func commitmentColumn(slot int) string {
	if slot == 1 {
		return "player1_commitment"
	}
	return "player2_commitment"
}

func revealedColumn(slot int) string {
	if slot == 1 {
		return "player1_revealed"
	}
	return "player2_revealed"
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
