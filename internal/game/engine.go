// internal/game/engine.go
//
// Pure rules for a single board.
// Responsibilities:
//   - Create fresh states for a target word.
//   - Score guesses using the classic two-pass algorithm.
//   - Apply raw key input: letters, Backspace, Enter.
//   - Track state transitions: playing → won/lost.
//
// Nothing here touches clocks, storage or the network; the engine package
// wraps these functions with scheduling and persistence.
package game

import (
	"strings"
)

// Raw key identifiers forwarded by the presentation layer.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
)

// NewState constructs a fresh board for target.
func NewState(target string) GameState {
	return GameState{
		Guesses: make([]string, MaxAttempts),
		Target:  strings.ToUpper(target),
		Status:  Playing,
		Letters: map[string]LetterStatus{},
	}
}

// Apply feeds one key into g and returns the next state.
// The bool reports whether anything changed; ignored keys return g untouched.
//
// Rules:
//   - Finished games reject every key.
//   - Backspace drops the last typed letter.
//   - Enter only submits a full-length guess.
//   - A single ASCII letter is appended while the row has room.
func Apply(g GameState, key string) (GameState, bool) {
	if g.Status.Over() {
		return g, false
	}
	switch {
	case strings.EqualFold(key, KeyBackspace):
		if g.CurrentGuess == "" {
			return g, false
		}
		next := g.Clone()
		next.CurrentGuess = g.CurrentGuess[:len(g.CurrentGuess)-1]
		return next, true

	case strings.EqualFold(key, KeyEnter):
		if len(g.CurrentGuess) != len(g.Target) {
			return g, false
		}
		return submit(g), true

	case len(key) == 1 && isLetter(key[0]):
		if len(g.CurrentGuess) >= len(g.Target) {
			return g, false
		}
		next := g.Clone()
		next.CurrentGuess += strings.ToUpper(key)
		return next, true
	}
	return g, false
}

// submit records the current guess and resolves the row.
func submit(g GameState) GameState {
	next := g.Clone()
	guess := next.CurrentGuess
	next.Guesses[next.CurrentAttempt] = guess
	next.CurrentGuess = ""
	next.Letters = FoldLetters(next.Guesses[:next.CurrentAttempt+1], next.Target)

	switch {
	case guess == next.Target:
		next.Status = Won
	case next.CurrentAttempt >= MaxAttempts-1:
		next.Status = Lost
	default:
		next.CurrentAttempt++
	}
	return next
}

// Validate implements the standard two-pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches as Correct.
//   - Count remaining (non-correct) target letters.
//
// Pass 2:
//   - For each other guess letter: if the pool still holds that letter,
//     mark Present and consume one occurrence; otherwise mark Absent.
//
// Guesses whose length differs from the target score all Absent.
func Validate(guess, target string) []LetterStatus {
	n := len(target)
	res := make([]LetterStatus, n)
	for i := range res {
		res[i] = Absent
	}
	if len(guess) != n {
		return res
	}

	pool := make(map[byte]int, n)
	for i := 0; i < n; i++ {
		if guess[i] == target[i] {
			res[i] = Correct
		} else {
			pool[target[i]]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == Correct {
			continue
		}
		if c := guess[i]; pool[c] > 0 {
			res[i] = Present
			pool[c]--
		}
	}
	return res
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
