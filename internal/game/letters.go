// internal/game/letters.go
//
// Keyboard colouring derived from submitted rows.
// Responsibilities:
//   - Fold every scored row into one status per letter.
//   - Never downgrade a letter: correct beats present, present beats absent.

package game

// FoldLetters derives the keyboard colouring from the submitted rows.
// It is a pure fold: every row is scored against target and merged so that
// a letter keeps the strongest status it has ever shown. Because the merge
// is a max over rank, the result does not depend on row order.
func FoldLetters(guesses []string, target string) map[string]LetterStatus {
	out := make(map[string]LetterStatus)
	for _, g := range guesses {
		if g == "" {
			continue
		}
		for i, st := range Validate(g, target) {
			mergeLetter(out, g[i:i+1], st)
		}
	}
	return out
}

// mergeLetter never downgrades Correct; Present wins over Absent.
func mergeLetter(m map[string]LetterStatus, letter string, st LetterStatus) {
	if cur, ok := m[letter]; ok && cur.rank() >= st.rank() {
		return
	}
	m[letter] = st
}
