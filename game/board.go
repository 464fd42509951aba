package game

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// BoardSize is the side length of the grid; boards are flat row-major
	// strings of BoardSize*BoardSize characters.
	BoardSize = 10

	// ShipMarker denotes an occupied ship cell. Any other character is
	// water.
	ShipMarker = 'X'
)

// Commitment is the 256-bit digest a player binds their board to before the
// match starts.
type Commitment [sha256.Size]byte

var ErrBadCommitment = errors.New("commitment must be a 64-character hex digest")

// ComputeCommitment digests the board string concatenated with the player's
// secret salt. The combination is a plain concatenation with no length
// separator, matching the committed wire format; salts must not be
// confusable with board content boundaries.
func ComputeCommitment(board, salt string) Commitment {
	return sha256.Sum256([]byte(board + salt))
}

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

func ParseCommitment(s string) (Commitment, error) {
	var c Commitment
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != sha256.Size {
		return c, ErrBadCommitment
	}
	copy(c[:], raw)
	return c, nil
}

// ValidCoordinate reports whether (row, col) is on the grid.
func ValidCoordinate(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// CountShipCells counts marker characters in a revealed board string. The
// board's shape is trusted as revealed; this only tallies markers.
func CountShipCells(board string) int {
	return strings.Count(board, string(ShipMarker))
}

// CountHits tallies how many of the given shots land on marker cells of the
// revealed board. Shots indexing past the end of the board miss. Repeated
// shots at the same cell each count: the combat log does not deduplicate,
// so neither does scoring.
func CountHits(board string, shots []*ShotRecord) int {
	hits := 0
	for _, shot := range shots {
		idx := shot.Row*BoardSize + shot.Col
		if idx < len(board) && board[idx] == ShipMarker {
			hits++
		}
	}
	return hits
}
