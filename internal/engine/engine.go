// internal/engine/engine.go
//
// Engine owns every board of one player and is the only way to change them.
// Responsibilities:
//   - Load the persisted snapshot once; absent or corrupt snapshots start fresh.
//   - Route raw key input to the active board (game.Apply).
//   - Start the unlimited-mode cooldown and record results on game over.
//   - Gate new games (cooldown in unlimited mode, date in limited mode).
//   - Run the one-second tick: count the cooldown down and roll the daily
//     boards over at local midnight (limited mode only).
//   - Write the snapshot after every change.
//
// Every operation takes e.mu and runs to completion, so events never
// interleave. The word source is the only blocking call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/buttonwang/wordly/internal/daily"
	"github.com/buttonwang/wordly/internal/game"
	"github.com/buttonwang/wordly/internal/store"
	"github.com/buttonwang/wordly/internal/words"
)

var (
	ErrCooldownActive = errors.New("cooldown active")
	ErrDailyLimit     = errors.New("daily game already played")
	ErrInvalidLength  = errors.New("unsupported word length")
)

const (
	defaultCooldown     = 30 * time.Second
	defaultTickInterval = time.Second
)

// Recorder receives finished games.
type Recorder interface {
	Record(ctx context.Context, r daily.Result) error
}

// Config wires an Engine to its collaborators.
type Config struct {
	ID           string           // snapshot key (session ID)
	Words        words.Source     // unlimited-mode targets
	Daily        words.Source     // limited-mode targets; Words when nil
	Store        store.Store      // snapshot persistence
	Results      Recorder         // optional
	Cooldown     time.Duration    // unlimited-mode pause after a game; default 30s
	TickInterval time.Duration    // default 1s
	Now          func() time.Time // default time.Now
}

// View is a read-only copy of what the presentation layer renders.
type View struct {
	Game          game.GameState  `json:"game"`
	WordLength    game.WordLength `json:"wordLength"`
	Unlimited     bool            `json:"unlimited"`
	DarkMode      bool            `json:"darkMode"`
	Cooldown      int             `json:"cooldown"`      // seconds
	UntilMidnight int             `json:"untilMidnight"` // seconds, limited mode
	CanStartNew   bool            `json:"canStartNew"`
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg Config

	mu            sync.Mutex
	games         map[game.WordLength]game.GameState
	length        game.WordLength
	unlimited     bool
	dark          bool
	lastReset     string
	cooldown      int
	untilMidnight time.Duration

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New constructs an Engine. Call Load before use.
func New(cfg Config) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg, length: game.DefaultLength}
}

// Load reads the snapshot. Missing or corrupt snapshots reinitialise every
// board; other store errors are returned.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.cfg.Now()
	snap, err := e.cfg.Store.Load(ctx, e.cfg.ID)
	switch {
	case err == nil:
		e.restore(snap)
	case errors.Is(err, store.ErrNotFound):
		e.fresh(ctx, now)
	case errors.Is(err, game.ErrCorruptSnapshot):
		log.Warn().Err(err).Str("session", e.cfg.ID).Msg("discarding corrupt snapshot")
		e.fresh(ctx, now)
	default:
		return fmt.Errorf("load snapshot: %w", err)
	}

	if !e.unlimited && e.lastReset != daily.DateKey(now) {
		e.rollover(ctx, now)
	}
	e.untilMidnight = daily.UntilMidnight(now)
	e.persist(ctx)
	return nil
}

// Press forwards one raw key ("A".."Z", "Enter", "Backspace") to the active board.
func (e *Engine) Press(ctx context.Context, key string) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, changed := game.Apply(e.games[e.length], key)
	if !changed {
		return e.view()
	}
	e.games[e.length] = next
	if next.Status.Over() {
		e.finish(ctx, next)
	}
	e.persist(ctx)
	return e.view()
}

// NewGame starts another board of the active length when allowed.
func (e *Engine) NewGame(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.cfg.Now()
	if e.unlimited {
		if e.cooldown > 0 {
			return e.view(), ErrCooldownActive
		}
		e.games[e.length] = game.NewState(e.source().Word(words.WithTime(ctx, now), int(e.length)))
	} else {
		if e.lastReset == daily.DateKey(now) {
			return e.view(), ErrDailyLimit
		}
		e.rollover(ctx, now)
	}
	e.persist(ctx)
	return e.view(), nil
}

// Reset replaces every board and clears the cooldown, keeping the settings.
// It is the manual recovery offered after a presentation fault.
func (e *Engine) Reset(ctx context.Context) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.cfg.Now()
	e.games = e.freshGames(ctx, now)
	e.cooldown = 0
	e.lastReset = daily.DateKey(now)
	e.untilMidnight = daily.UntilMidnight(now)
	log.Info().Str("session", e.cfg.ID).Msg("manual reset")
	e.persist(ctx)
	return e.view()
}

// SetWordLength selects which board is active.
func (e *Engine) SetWordLength(ctx context.Context, n game.WordLength) (View, error) {
	if !n.Valid() {
		return e.View(), fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.length != n {
		e.length = n
		e.persist(ctx)
	}
	return e.view(), nil
}

// SetUnlimited switches play mode. A switch discards every board and the cooldown.
func (e *Engine) SetUnlimited(ctx context.Context, on bool) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unlimited == on {
		return e.view()
	}
	now := e.cfg.Now()
	e.unlimited = on
	e.cooldown = 0
	e.games = e.freshGames(ctx, now)
	e.lastReset = daily.DateKey(now)
	e.untilMidnight = daily.UntilMidnight(now)
	e.persist(ctx)
	return e.view()
}

// SetDarkMode stores the theme flag; it has no effect on play.
func (e *Engine) SetDarkMode(ctx context.Context, on bool) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dark != on {
		e.dark = on
		e.persist(ctx)
	}
	return e.view()
}

// View returns a copy of the current state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view()
}

// ------------------------------ internals ----------------------------------

// source picks the word source for the current mode.
func (e *Engine) source() words.Source {
	if e.unlimited || e.cfg.Daily == nil {
		return e.cfg.Words
	}
	return e.cfg.Daily
}

// freshGames draws a new board per length. now is passed to the source so
// the daily word matches the date the engine decided on.
func (e *Engine) freshGames(ctx context.Context, now time.Time) map[game.WordLength]game.GameState {
	ctx = words.WithTime(ctx, now)
	src := e.source()
	out := make(map[game.WordLength]game.GameState, len(game.Lengths))
	for _, n := range game.Lengths {
		out[n] = game.NewState(src.Word(ctx, int(n)))
	}
	return out
}

// fresh initialises every field as on a first visit.
func (e *Engine) fresh(ctx context.Context, now time.Time) {
	e.length = game.DefaultLength
	e.unlimited = false
	e.dark = false
	e.cooldown = 0
	e.games = e.freshGames(ctx, now)
	e.lastReset = daily.DateKey(now)
}

// rollover replaces every board with the new day's words.
func (e *Engine) rollover(ctx context.Context, now time.Time) {
	e.games = e.freshGames(ctx, now)
	e.lastReset = daily.DateKey(now)
	log.Info().Str("session", e.cfg.ID).Str("date", e.lastReset).Msg("daily rollover")
}

func (e *Engine) restore(s *game.Snapshot) {
	e.games = make(map[game.WordLength]game.GameState, len(s.Games))
	for n, g := range s.Games {
		e.games[n] = g.Clone()
	}
	e.length = s.WordLength
	e.unlimited = s.Unlimited
	e.dark = s.DarkMode
	e.lastReset = s.LastResetDate
	e.cooldown = s.Cooldown
}

func (e *Engine) snapshot() *game.Snapshot {
	s := &game.Snapshot{
		Games:         make(map[game.WordLength]game.GameState, len(e.games)),
		WordLength:    e.length,
		Unlimited:     e.unlimited,
		DarkMode:      e.dark,
		LastResetDate: e.lastReset,
		Cooldown:      e.cooldown,
	}
	for n, g := range e.games {
		s.Games[n] = g.Clone()
	}
	return s
}

// finish handles a board that just reached won or lost.
func (e *Engine) finish(ctx context.Context, g game.GameState) {
	if e.unlimited {
		e.cooldown = int(e.cfg.Cooldown / time.Second)
	}
	log.Info().
		Str("session", e.cfg.ID).
		Int("length", int(e.length)).
		Str("status", string(g.Status)).
		Int("attempts", g.Attempts()).
		Msg("game over")

	if e.cfg.Results == nil {
		return
	}
	r := daily.Result{
		Session:    e.cfg.ID,
		Date:       daily.DateKey(e.cfg.Now()),
		WordLength: int(e.length),
		Unlimited:  e.unlimited,
		Attempts:   g.Attempts(),
		Won:        g.Status == game.Won,
	}
	if err := e.cfg.Results.Record(context.WithoutCancel(ctx), r); err != nil {
		log.Warn().Err(err).Str("session", e.cfg.ID).Msg("record result")
	}
}

// persist writes the snapshot; failures are logged and the in-memory state
// stays authoritative.
func (e *Engine) persist(ctx context.Context) {
	if err := e.cfg.Store.Save(context.WithoutCancel(ctx), e.cfg.ID, e.snapshot()); err != nil {
		log.Warn().Err(err).Str("session", e.cfg.ID).Msg("save snapshot")
	}
}

func (e *Engine) view() View {
	return View{
		Game:          e.games[e.length].Clone(),
		WordLength:    e.length,
		Unlimited:     e.unlimited,
		DarkMode:      e.dark,
		Cooldown:      e.cooldown,
		UntilMidnight: int(e.untilMidnight / time.Second),
		CanStartNew:   e.unlimited && e.cooldown == 0,
	}
}
