// internal/words/daily.go
//
// Deterministic word of the day for limited mode.
// Every player gets the same word per length per local date; the index is
// HMAC(salt, date) over the static list (see daily.WordIndex).
//
// The date comes from the caller's clock when the context carries one
// (WithTime), so a board rolled over at midnight gets the new day's word even
// if the wall clock here reads a moment earlier.

package words

import (
	"context"
	"strconv"
	"time"

	"github.com/buttonwang/wordly/internal/daily"
)

type ctxTimeKey struct{}

// WithTime records the instant a word is drawn for.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxTimeKey{}, t)
}

// TimeFrom returns the instant set by WithTime.
func TimeFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(ctxTimeKey{}).(time.Time)
	return t, ok
}

// Daily selects the day's word from a static list.
type Daily struct {
	Words *Static
	Salt  string
	Now   func() time.Time // used when the context carries no time; defaults to time.Now
}

// Word returns the word for the draw date and length.
func (d *Daily) Word(ctx context.Context, length int) string {
	list := d.Words.List(length)
	if len(list) == 0 {
		return builtin(length)
	}
	idx := daily.WordIndex(d.at(ctx), d.Salt+"/"+strconv.Itoa(length), len(list))
	return list[idx]
}

func (d *Daily) at(ctx context.Context) time.Time {
	if t, ok := TimeFrom(ctx); ok {
		return t
	}
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
