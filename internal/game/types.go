// internal/game/types.go
//
// Core type definitions for the word game rules.
// Defines:
//   - LetterStatus: per-letter result of a guess (correct/present/absent).
//   - Status: lifecycle of a single game (playing/won/lost).
//   - WordLength: the supported board widths.
//   - GameState: state for a single in-progress or finished game.

package game

// LetterStatus represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "correct": letter is in the target at the same position.
//   - "present": letter exists in the target but in a different position.
//   - "absent":  letter does not exist in the remaining target letters.
type LetterStatus string

const (
	Correct LetterStatus = "correct"
	Present LetterStatus = "present"
	Absent  LetterStatus = "absent"
)

// rank orders statuses so that a merge can keep the strongest one.
func (s LetterStatus) rank() int {
	switch s {
	case Correct:
		return 2
	case Present:
		return 1
	default:
		return 0
	}
}

// Status is the coarse state of a game.
type Status string

const (
	Playing Status = "playing"
	Won     Status = "won"
	Lost    Status = "lost"
)

// Over reports whether the game reached a terminal state.
func (s Status) Over() bool { return s == Won || s == Lost }

// WordLength selects the board width and therefore which GameState is active.
type WordLength int

// MaxAttempts is the number of rows on every board.
const MaxAttempts = 6

// DefaultLength is the board shown on first load.
const DefaultLength WordLength = 5

// Lengths lists every supported word length in display order.
var Lengths = []WordLength{4, 5, 6}

// Valid reports whether n is one of Lengths.
func (n WordLength) Valid() bool {
	for _, l := range Lengths {
		if l == n {
			return true
		}
	}
	return false
}

// GameState holds the state of a single board.
type GameState struct {
	CurrentAttempt int                     `json:"currentAttempt"` // Row receiving input; frozen on the terminal row.
	CurrentGuess   string                  `json:"currentGuess"`   // Letters typed into the current row (uppercase).
	Guesses        []string                `json:"guesses"`        // Always MaxAttempts long; empty strings are unused rows.
	Target         string                  `json:"targetWord"`     // The solution word (uppercase).
	Status         Status                  `json:"status"`
	Letters        map[string]LetterStatus `json:"letterStatuses"` // Cumulative keyboard colouring.
}

// Attempts returns the number of submitted rows.
func (g GameState) Attempts() int {
	if g.Status.Over() {
		return g.CurrentAttempt + 1
	}
	return g.CurrentAttempt
}

// Clone returns a deep copy so callers can hand states out without sharing
// the guesses slice or the letters map.
func (g GameState) Clone() GameState {
	out := g
	out.Guesses = append([]string(nil), g.Guesses...)
	out.Letters = make(map[string]LetterStatus, len(g.Letters))
	for k, v := range g.Letters {
		out.Letters[k] = v
	}
	return out
}
