// internal/game/snapshot.go
//
// Persisted snapshot of everything a player has on screen: one board per
// word length plus the selected length, mode and theme flags, the last
// daily reset date and the remaining cooldown.
//
// DecodeSnapshot checks every board invariant. Anything that does not parse
// or does not hold up is reported as ErrCorruptSnapshot so callers can treat
// it as absent.

package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SnapshotVersion is bumped whenever the JSON layout changes incompatibly.
const SnapshotVersion = 1

// ErrCorruptSnapshot marks a stored snapshot that cannot be trusted.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshot is the single persisted record.
type Snapshot struct {
	Version       int                      `json:"version"`
	Games         map[WordLength]GameState `json:"games"`
	WordLength    WordLength               `json:"wordLength"`
	Unlimited     bool                     `json:"unlimited"`
	DarkMode      bool                     `json:"darkMode"`
	LastResetDate string                   `json:"lastResetDate"`
	Cooldown      int                      `json:"cooldown"` // seconds left before a new unlimited game
}

// EncodeSnapshot serialises s.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	s.Version = SnapshotVersion
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a stored snapshot.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	// Letter colouring is derived data; rebuild it rather than trust storage.
	for n, g := range s.Games {
		g.Letters = FoldLetters(g.Guesses, g.Target)
		s.Games[n] = g
	}
	return &s, nil
}

func (s *Snapshot) validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("version %d", s.Version)
	}
	if !s.WordLength.Valid() {
		return fmt.Errorf("word length %d", s.WordLength)
	}
	if s.Cooldown < 0 {
		return errors.New("negative cooldown")
	}
	for _, n := range Lengths {
		g, ok := s.Games[n]
		if !ok {
			return fmt.Errorf("missing board %d", n)
		}
		if err := g.validate(n); err != nil {
			return fmt.Errorf("board %d: %w", n, err)
		}
	}
	return nil
}

func (g GameState) validate(n WordLength) error {
	switch {
	case len(g.Target) != int(n) || !isUpperWord(g.Target):
		return fmt.Errorf("target %q", g.Target)
	case len(g.Guesses) != MaxAttempts:
		return fmt.Errorf("%d rows", len(g.Guesses))
	case g.CurrentAttempt < 0 || g.CurrentAttempt >= MaxAttempts:
		return fmt.Errorf("attempt %d", g.CurrentAttempt)
	case len(g.CurrentGuess) > int(n) || (g.CurrentGuess != "" && !isUpperWord(g.CurrentGuess)):
		return fmt.Errorf("current guess %q", g.CurrentGuess)
	}
	switch g.Status {
	case Playing, Won, Lost:
	default:
		return fmt.Errorf("status %q", g.Status)
	}

	last := g.CurrentAttempt
	if g.Status.Over() {
		last++
	}
	for i, row := range g.Guesses {
		if i < last {
			if len(row) != int(n) || !isUpperWord(row) {
				return fmt.Errorf("row %d %q", i, row)
			}
		} else if row != "" {
			return fmt.Errorf("row %d filled ahead of attempt", i)
		}
	}

	// Rows before the current one were submitted while playing, so none of
	// them can be the target.
	for i := 0; i < g.CurrentAttempt; i++ {
		if g.Guesses[i] == g.Target {
			return fmt.Errorf("row %d solved but game continued", i)
		}
	}
	terminal := g.Guesses[g.CurrentAttempt]
	switch g.Status {
	case Won:
		if terminal != g.Target {
			return fmt.Errorf("won on row %d without the target", g.CurrentAttempt)
		}
	case Lost:
		if g.CurrentAttempt != MaxAttempts-1 || terminal == g.Target {
			return fmt.Errorf("lost on row %d", g.CurrentAttempt)
		}
	}
	return nil
}

func isUpperWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return s != ""
}
