package game

import (
	"path/filepath"
	"testing"

	"github.com/swampdaddy/bships/store"
)

type testMatch struct {
	engine *Engine
	store  store.Store
	alice  int64
	bob    int64
}

func newTestEngine(t *testing.T) *testMatch {
	t.Helper()

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	alice, err := db.CreateUser("alice", "hash")
	if err != nil {
		t.Fatalf("failed to create alice: %v", err)
	}
	bob, err := db.CreateUser("bob", "hash")
	if err != nil {
		t.Fatalf("failed to create bob: %v", err)
	}

	return &testMatch{engine: NewEngine(db), store: db, alice: alice, bob: bob}
}

// startedMatch creates a match, commits both boards and starts it.
// Alice is player1 and holds the first turn.
func startedMatch(t *testing.T, tm *testMatch, aliceBoard, bobBoard, salt string) int64 {
	t.Helper()

	event, err := tm.engine.CreateMatch(tm.alice, tm.bob)
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	matchID := event.MatchID

	if _, err := tm.engine.Commit(matchID, tm.alice, ComputeCommitment(aliceBoard, salt)); err != nil {
		t.Fatalf("alice commit failed: %v", err)
	}
	if _, err := tm.engine.Commit(matchID, tm.bob, ComputeCommitment(bobBoard, salt)); err != nil {
		t.Fatalf("bob commit failed: %v", err)
	}
	if _, err := tm.engine.Start(matchID, tm.alice); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return matchID
}

func mustFire(t *testing.T, tm *testMatch, matchID, playerID int64, row, col int) {
	t.Helper()
	if _, err := tm.engine.Fire(matchID, playerID, row, col); err != nil {
		t.Fatalf("Fire(%d, %d) by %d failed: %v", row, col, playerID, err)
	}
}

func getMatch(t *testing.T, tm *testMatch, matchID int64) *store.Match {
	t.Helper()
	match, err := tm.store.GetMatch(matchID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if match == nil {
		t.Fatalf("match %d not found", matchID)
	}
	return match
}

func TestCreateMatch(t *testing.T) {
	tm := newTestEngine(t)

	event, err := tm.engine.CreateMatch(tm.alice, tm.bob)
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	if event.Type != "match_created" {
		t.Fatalf("event type = %q, want match_created", event.Type)
	}

	match := getMatch(t, tm, event.MatchID)
	if match.Status != StatusCreated {
		t.Fatalf("status = %q, want created", match.Status)
	}
	if match.Player1 != tm.alice || match.Player2 != tm.bob {
		t.Fatalf("players = (%d, %d), want (%d, %d)", match.Player1, match.Player2, tm.alice, tm.bob)
	}
	if match.NextTurn != 0 || match.Winner != 0 {
		t.Fatalf("new match already has next_turn=%d winner=%d", match.NextTurn, match.Winner)
	}
	if match.Player1Commitment != "" || match.Player2Commitment != "" {
		t.Fatalf("new match already has commitments")
	}
}

func TestCreateMatchAgainstSelf(t *testing.T) {
	tm := newTestEngine(t)

	if _, err := tm.engine.CreateMatch(tm.alice, tm.alice); err != ErrSelfMatch {
		t.Fatalf("CreateMatch(alice, alice) = %v, want ErrSelfMatch", err)
	}
}

func TestCommit(t *testing.T) {
	tm := newTestEngine(t)
	carol, err := tm.store.CreateUser("carol", "hash")
	if err != nil {
		t.Fatalf("failed to create carol: %v", err)
	}

	event, _ := tm.engine.CreateMatch(tm.alice, tm.bob)
	matchID := event.MatchID
	committed := ComputeCommitment(boardWith(0), "salt")

	if _, err := tm.engine.Commit(99999, tm.alice, committed); err != ErrMatchNotFound {
		t.Fatalf("commit to unknown match = %v, want ErrMatchNotFound", err)
	}
	if _, err := tm.engine.Commit(matchID, carol, committed); err != ErrInvalidPlayer {
		t.Fatalf("commit by outsider = %v, want ErrInvalidPlayer", err)
	}

	if _, err := tm.engine.Commit(matchID, tm.alice, committed); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if _, err := tm.engine.Commit(matchID, tm.alice, committed); err != ErrAlreadyCommitted {
		t.Fatalf("second commit = %v, want ErrAlreadyCommitted", err)
	}

	match := getMatch(t, tm, matchID)
	if match.Player1Commitment != committed.String() {
		t.Fatalf("stored commitment = %q, want %q", match.Player1Commitment, committed.String())
	}
	if match.Player2Commitment != "" {
		t.Fatalf("bob's slot was touched by alice's commit")
	}
}

func TestStart(t *testing.T) {
	tm := newTestEngine(t)

	event, _ := tm.engine.CreateMatch(tm.alice, tm.bob)
	matchID := event.MatchID
	committed := ComputeCommitment(boardWith(0), "salt")

	if _, err := tm.engine.Start(matchID, tm.bob); err != ErrInvalidPlayer {
		t.Fatalf("start by player2 = %v, want ErrInvalidPlayer", err)
	}
	if _, err := tm.engine.Start(matchID, tm.alice); err != ErrCommitmentMissing {
		t.Fatalf("start with no commitments = %v, want ErrCommitmentMissing", err)
	}

	tm.engine.Commit(matchID, tm.alice, committed)
	if _, err := tm.engine.Start(matchID, tm.alice); err != ErrCommitmentMissing {
		t.Fatalf("start with one commitment = %v, want ErrCommitmentMissing", err)
	}

	tm.engine.Commit(matchID, tm.bob, committed)
	startEvent, err := tm.engine.Start(matchID, tm.alice)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if startEvent.Type != "match_started" {
		t.Fatalf("event type = %q, want match_started", startEvent.Type)
	}

	match := getMatch(t, tm, matchID)
	if match.Status != StatusActive {
		t.Fatalf("status = %q, want active", match.Status)
	}
	if match.NextTurn != tm.alice {
		t.Fatalf("next_turn = %d, want player1 %d", match.NextTurn, tm.alice)
	}

	// The gate is one-way.
	if _, err := tm.engine.Start(matchID, tm.alice); err != ErrInvalidState {
		t.Fatalf("second start = %v, want ErrInvalidState", err)
	}
	if _, err := tm.engine.Commit(matchID, tm.alice, committed); err != ErrInvalidState {
		t.Fatalf("commit after start = %v, want ErrInvalidState", err)
	}
}

func TestFireTurnAlternation(t *testing.T) {
	tm := newTestEngine(t)
	matchID := startedMatch(t, tm, boardWith(0), boardWith(99), "salt")

	// Bob does not hold the first turn.
	if _, err := tm.engine.Fire(matchID, tm.bob, 0, 0); err != ErrInvalidPlayer {
		t.Fatalf("out-of-turn fire = %v, want ErrInvalidPlayer", err)
	}
	if shots, _ := tm.store.GetShots(matchID); len(shots) != 0 {
		t.Fatalf("rejected fire still recorded a shot")
	}

	event, err := tm.engine.Fire(matchID, tm.alice, 3, 4)
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	payload := event.Payload.(ShotFiredPayload)
	if payload.Firer != tm.alice || payload.Target != tm.bob {
		t.Fatalf("shot recorded firer=%d target=%d, want %d -> %d", payload.Firer, payload.Target, tm.alice, tm.bob)
	}
	if payload.NextTurnID != tm.bob {
		t.Fatalf("turn did not flip to bob")
	}

	if match := getMatch(t, tm, matchID); match.NextTurn != tm.bob {
		t.Fatalf("next_turn = %d, want %d", match.NextTurn, tm.bob)
	}

	// Alice cannot fire twice in a row.
	if _, err := tm.engine.Fire(matchID, tm.alice, 4, 4); err != ErrInvalidPlayer {
		t.Fatalf("double fire = %v, want ErrInvalidPlayer", err)
	}

	mustFire(t, tm, matchID, tm.bob, 5, 5)
	if match := getMatch(t, tm, matchID); match.NextTurn != tm.alice {
		t.Fatalf("turn did not flip back to alice")
	}
}

func TestFireValidation(t *testing.T) {
	tm := newTestEngine(t)

	event, _ := tm.engine.CreateMatch(tm.alice, tm.bob)
	matchID := event.MatchID

	// Coordinates are checked before anything else.
	if _, err := tm.engine.Fire(99999, tm.alice, 10, 0); err != ErrInvalidCoordinate {
		t.Fatalf("fire at (10,0) = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := tm.engine.Fire(matchID, tm.alice, -1, 5); err != ErrInvalidCoordinate {
		t.Fatalf("fire at (-1,5) = %v, want ErrInvalidCoordinate", err)
	}

	if _, err := tm.engine.Fire(99999, tm.alice, 0, 0); err != ErrMatchNotFound {
		t.Fatalf("fire at unknown match = %v, want ErrMatchNotFound", err)
	}
	if _, err := tm.engine.Fire(matchID, tm.alice, 0, 0); err != ErrInvalidState {
		t.Fatalf("fire before start = %v, want ErrInvalidState", err)
	}

	if shots, _ := tm.store.GetShots(matchID); len(shots) != 0 {
		t.Fatalf("rejected fires recorded shots")
	}
}

func TestRevealMismatch(t *testing.T) {
	tm := newTestEngine(t)
	board := boardWith(12, 13, 14)
	matchID := startedMatch(t, tm, board, boardWith(0), "salt")

	if _, err := tm.engine.Reveal(matchID, tm.alice, board, "wrongsalt"); err != ErrRevealMismatch {
		t.Fatalf("reveal with wrong salt = %v, want ErrRevealMismatch", err)
	}
	if _, err := tm.engine.Reveal(matchID, tm.alice, boardWith(12, 13, 15), "salt"); err != ErrRevealMismatch {
		t.Fatalf("reveal with wrong board = %v, want ErrRevealMismatch", err)
	}

	if match := getMatch(t, tm, matchID); match.Player1Revealed != "" {
		t.Fatalf("failed reveal still stored the board")
	}
}

func TestRevealWithoutWin(t *testing.T) {
	tm := newTestEngine(t)
	board := boardWith(12, 13, 14)
	matchID := startedMatch(t, tm, board, boardWith(0), "salt")

	// One hit out of three ship cells.
	mustFire(t, tm, matchID, tm.alice, 9, 9)
	mustFire(t, tm, matchID, tm.bob, 1, 2)

	event, err := tm.engine.Reveal(matchID, tm.alice, board, "salt")
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if event.Type != "board_revealed" {
		t.Fatalf("event type = %q, want board_revealed", event.Type)
	}
	payload := event.Payload.(BoardRevealedPayload)
	if payload.Hits != 1 || payload.ShipCells != 3 {
		t.Fatalf("hits=%d shipCells=%d, want 1 and 3", payload.Hits, payload.ShipCells)
	}

	match := getMatch(t, tm, matchID)
	if match.Status != StatusActive {
		t.Fatalf("partial reveal finished the match")
	}
	if match.Player1Revealed != board {
		t.Fatalf("revealed board not stored")
	}
}

func TestRevealRepeatWhileActiveOverwrites(t *testing.T) {
	tm := newTestEngine(t)
	board := boardWith(12, 13, 14)
	matchID := startedMatch(t, tm, board, boardWith(0), "salt")

	mustFire(t, tm, matchID, tm.alice, 9, 9)
	mustFire(t, tm, matchID, tm.bob, 1, 2)

	if _, err := tm.engine.Reveal(matchID, tm.alice, board, "salt"); err != nil {
		t.Fatalf("first Reveal failed: %v", err)
	}

	// While the match is still active a repeat reveal of the same board
	// is a plain overwrite, not an error.
	event, err := tm.engine.Reveal(matchID, tm.alice, board, "salt")
	if err != nil {
		t.Fatalf("second Reveal failed: %v", err)
	}
	if event.Type != "board_revealed" {
		t.Fatalf("second reveal event = %q, want board_revealed", event.Type)
	}
	payload := event.Payload.(BoardRevealedPayload)
	if payload.Hits != 1 || payload.ShipCells != 3 {
		t.Fatalf("second reveal scored hits=%d shipCells=%d, want 1 and 3", payload.Hits, payload.ShipCells)
	}

	match := getMatch(t, tm, matchID)
	if match.Player1Revealed != board {
		t.Fatalf("stored board = %q after repeat reveal, want the revealed board", match.Player1Revealed)
	}
	if match.Status != StatusActive {
		t.Fatalf("repeat reveal changed status to %q", match.Status)
	}
}

func TestRevealDecidesWinner(t *testing.T) {
	tm := newTestEngine(t)
	aliceBoard := boardWith(12, 13, 14) // (1,2) (1,3) (1,4)
	matchID := startedMatch(t, tm, aliceBoard, boardWith(0), "salt")

	// Bob finds all three of alice's ship cells; alice fires into water.
	mustFire(t, tm, matchID, tm.alice, 9, 9)
	mustFire(t, tm, matchID, tm.bob, 1, 2)
	mustFire(t, tm, matchID, tm.alice, 8, 8)
	mustFire(t, tm, matchID, tm.bob, 1, 3)
	mustFire(t, tm, matchID, tm.alice, 7, 7)
	mustFire(t, tm, matchID, tm.bob, 1, 4)

	event, err := tm.engine.Reveal(matchID, tm.alice, aliceBoard, "salt")
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if event.Type != "match_finished" {
		t.Fatalf("event type = %q, want match_finished", event.Type)
	}
	payload := event.Payload.(MatchFinishedPayload)
	if payload.WinnerID != tm.bob {
		t.Fatalf("winner = %d, want bob %d", payload.WinnerID, tm.bob)
	}
	if payload.Hits != 3 || payload.ShipCells != 3 {
		t.Fatalf("hits=%d shipCells=%d, want 3 and 3", payload.Hits, payload.ShipCells)
	}

	match := getMatch(t, tm, matchID)
	if match.Status != StatusFinished {
		t.Fatalf("status = %q, want finished", match.Status)
	}
	if match.Winner != tm.bob {
		t.Fatalf("stored winner = %d, want %d", match.Winner, tm.bob)
	}
	if match.NextTurn != 0 {
		t.Fatalf("finished match still holds a turn pointer")
	}

	// Everything is rejected once finished.
	if _, err := tm.engine.Fire(matchID, tm.bob, 0, 0); err != ErrInvalidState {
		t.Fatalf("fire after finish = %v, want ErrInvalidState", err)
	}
	if _, err := tm.engine.Reveal(matchID, tm.alice, aliceBoard, "salt"); err != ErrInvalidState {
		t.Fatalf("reveal after finish = %v, want ErrInvalidState", err)
	}
}

func TestRevealDuplicateHitsCount(t *testing.T) {
	tm := newTestEngine(t)
	aliceBoard := boardWith(0, 1) // two ship cells
	matchID := startedMatch(t, tm, aliceBoard, boardWith(99), "salt")

	// Bob hits the same ship cell twice; each counts, so two hits cover
	// two ship cells without touching the second one.
	mustFire(t, tm, matchID, tm.alice, 9, 9)
	mustFire(t, tm, matchID, tm.bob, 0, 0)
	mustFire(t, tm, matchID, tm.alice, 8, 8)
	mustFire(t, tm, matchID, tm.bob, 0, 0)

	event, err := tm.engine.Reveal(matchID, tm.alice, aliceBoard, "salt")
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if event.Type != "match_finished" {
		t.Fatalf("duplicate hits did not finish the match; event = %q", event.Type)
	}
	payload := event.Payload.(MatchFinishedPayload)
	if payload.Hits != 2 || payload.WinnerID != tm.bob {
		t.Fatalf("hits=%d winner=%d, want 2 and %d", payload.Hits, payload.WinnerID, tm.bob)
	}
}

func TestRevealAllWaterBoardNeverWins(t *testing.T) {
	tm := newTestEngine(t)
	aliceBoard := boardWith() // no ships at all
	matchID := startedMatch(t, tm, aliceBoard, boardWith(0), "salt")

	mustFire(t, tm, matchID, tm.alice, 0, 0)
	mustFire(t, tm, matchID, tm.bob, 0, 0)

	event, err := tm.engine.Reveal(matchID, tm.alice, aliceBoard, "salt")
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if event.Type != "board_revealed" {
		t.Fatalf("all-water board produced event %q, want board_revealed", event.Type)
	}

	if match := getMatch(t, tm, matchID); match.Status != StatusActive {
		t.Fatalf("all-water reveal finished the match")
	}
}

func TestRevealOnlyCountsShotsAtRevealer(t *testing.T) {
	tm := newTestEngine(t)
	aliceBoard := boardWith(0)
	bobBoard := boardWith(0)
	matchID := startedMatch(t, tm, aliceBoard, bobBoard, "salt")

	// Alice hits bob's ship cell; bob misses. Alice's reveal must not
	// count her own shot against herself.
	mustFire(t, tm, matchID, tm.alice, 0, 0)
	mustFire(t, tm, matchID, tm.bob, 9, 9)

	event, err := tm.engine.Reveal(matchID, tm.alice, aliceBoard, "salt")
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	payload := event.Payload.(BoardRevealedPayload)
	if payload.Hits != 0 {
		t.Fatalf("alice's own shot counted against her board: hits=%d", payload.Hits)
	}
}

func TestRevealStateValidation(t *testing.T) {
	tm := newTestEngine(t)

	event, _ := tm.engine.CreateMatch(tm.alice, tm.bob)
	matchID := event.MatchID
	board := boardWith(0)

	if _, err := tm.engine.Reveal(99999, tm.alice, board, "salt"); err != ErrMatchNotFound {
		t.Fatalf("reveal on unknown match = %v, want ErrMatchNotFound", err)
	}
	if _, err := tm.engine.Reveal(matchID, tm.alice, board, "salt"); err != ErrInvalidState {
		t.Fatalf("reveal before start = %v, want ErrInvalidState", err)
	}
}

func TestShotLogReconstructsHistory(t *testing.T) {
	tm := newTestEngine(t)
	matchID := startedMatch(t, tm, boardWith(0), boardWith(1), "salt")

	mustFire(t, tm, matchID, tm.alice, 0, 1)
	mustFire(t, tm, matchID, tm.bob, 2, 3)
	mustFire(t, tm, matchID, tm.alice, 4, 5)

	shots, err := tm.store.GetShots(matchID)
	if err != nil {
		t.Fatalf("GetShots failed: %v", err)
	}
	if len(shots) != 3 {
		t.Fatalf("recorded %d shots, want 3", len(shots))
	}

	wantFirers := []int64{tm.alice, tm.bob, tm.alice}
	for i, shot := range shots {
		if shot.Seq != int64(i+1) {
			t.Errorf("shot %d has seq %d, want %d", i, shot.Seq, i+1)
		}
		if shot.Firer != wantFirers[i] {
			t.Errorf("shot %d fired by %d, want %d", i, shot.Firer, wantFirers[i])
		}
	}
}
