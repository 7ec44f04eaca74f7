// internal/words/words.go
//
// Provides target words for the game engine.
//
// Responsibilities:
//   - Define Source, the word provider contract used by the engine.
//   - Load the built-in per-length lists (embedded) with an optional
//     directory override, and pick random targets from them (Static).
//
// Word Lists:
//   - One list per word length, stored as assets/words/<n>.txt.
//   - WORDS_DIR=/path may provide <n>.txt files that replace the embedded list
//     for that length. Missing files keep the embedded list.
//
// Constraints:
//   • Words must be alphabetic (A–Z) and exactly n letters long; other lines
//     are dropped.
//   • Lists are normalized to uppercase.

package words

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/buttonwang/wordly/assets"
)

// Source produces a target word. Implementations never fail: they always
// return an uppercase word of exactly the requested length.
type Source interface {
	Word(ctx context.Context, length int) string
}

// Static picks random words from fixed lists.
type Static struct {
	lists map[int][]string
}

// NewStatic builds a Static source from raw lists, normalising every entry.
func NewStatic(lists map[int][]string) *Static {
	s := &Static{lists: make(map[int][]string, len(lists))}
	for n, list := range lists {
		s.lists[n] = normalize(list, n)
	}
	return s
}

// LoadStatic loads the embedded lists for lengths and applies overrides
// from dir (if non-empty).
func LoadStatic(dir string, lengths ...int) (*Static, error) {
	lists := make(map[int][]string, len(lengths))
	for _, n := range lengths {
		list, err := assets.WordList(n)
		if err != nil {
			return nil, err
		}
		if dir != "" {
			override, err := readWordFile(filepath.Join(dir, strconv.Itoa(n)+".txt"))
			switch {
			case err == nil:
				log.Info().Int("length", n).Int("words", len(override)).Str("dir", dir).Msg("word list override")
				list = override
			case !errors.Is(err, os.ErrNotExist):
				return nil, err
			}
		}
		lists[n] = list
	}
	s := NewStatic(lists)
	for _, n := range lengths {
		if len(s.lists[n]) == 0 {
			return nil, errors.New("words: empty list for length " + strconv.Itoa(n))
		}
	}
	return s, nil
}

// Word returns a cryptographically random word of the given length.
// If no list is loaded for that length, a built-in word is returned.
func (s *Static) Word(_ context.Context, length int) string {
	list := s.lists[length]
	if len(list) == 0 {
		return builtin(length)
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	return list[nBig.Int64()]
}

// List returns the loaded list for length. Callers must not modify it.
func (s *Static) List(length int) []string { return s.lists[length] }

// Stats returns the loaded list size per length.
func (s *Static) Stats() map[int]int {
	out := make(map[int]int, len(s.lists))
	for n, l := range s.lists {
		out[n] = len(l)
	}
	return out
}

var builtins = map[int]string{4: "WORD", 5: "CRANE", 6: "PLANET"}

// builtin is the last-resort word when every list is empty.
func builtin(length int) string {
	if w, ok := builtins[length]; ok {
		return w
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if length <= 0 {
		return ""
	}
	return strings.Repeat(alphabet, length/len(alphabet)+1)[:length]
}

// readWordFile loads one word per line from a file; # starts a comment.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// normalize uppercases, trims and keeps only alphabetic words of length n,
// dropping duplicates.
func normalize(list []string, n int) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, w := range list {
		w = strings.ToUpper(strings.TrimSpace(w))
		if len(w) != n || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
