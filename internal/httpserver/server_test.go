package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buttonwang/wordly/internal/daily"
	"github.com/buttonwang/wordly/internal/engine"
	"github.com/buttonwang/wordly/internal/game"
	"github.com/buttonwang/wordly/internal/store"
	"github.com/buttonwang/wordly/internal/words"
)

type fakeStats struct {
	sessions []string
	err      error
}

func (f *fakeStats) Stats(_ context.Context, session string) (daily.Stats, error) {
	f.sessions = append(f.sessions, session)
	if f.err != nil {
		return daily.Stats{}, f.err
	}
	return daily.Stats{Played: 3, Wins: 2, CurrentStreak: 1, MaxStreak: 2, Distribution: map[int]int{3: 2}}, nil
}

type testEnv struct {
	srv    *Server
	ts     *httptest.Server
	client *http.Client
	stats  *fakeStats
}

func newEnv(t *testing.T, tweaks ...func(*Options)) *testEnv {
	t.Helper()
	snapshots := store.NewMemoryStore()
	list := words.NewStatic(map[int][]string{4: {"word"}, 5: {"react"}, 6: {"planet"}})
	now := func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	factory := func(ctx context.Context, sid string) (*engine.Engine, error) {
		e := engine.New(engine.Config{
			ID:           sid,
			Words:        list,
			Store:        snapshots,
			TickInterval: time.Hour,
			Now:          now,
		})
		if err := e.Load(ctx); err != nil {
			return nil, err
		}
		return e, nil
	}

	env := &testEnv{stats: &fakeStats{}}
	opts := Options{
		SessionSecret: "test-secret",
		ClientOrigin:  "http://example.test",
		Stats:         env.stats,
		WordStats:     list.Stats,
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}
	env.srv = New(factory, opts)
	env.ts = httptest.NewServer(env.srv.Router())
	t.Cleanup(func() {
		env.ts.Close()
		env.srv.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	res, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func (e *testEnv) press(t *testing.T, keys ...string) engine.View {
	t.Helper()
	var v engine.View
	for _, k := range keys {
		res := e.do(t, http.MethodPost, "/game/key", map[string]string{"key": k})
		require.Equal(t, http.StatusOK, res.StatusCode)
		v = decode[engine.View](t, res)
	}
	return v
}

func TestHealthAndIndex(t *testing.T) {
	env := newEnv(t)

	res := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, map[string]bool{"ok": true}, decode[map[string]bool](t, res))
	require.Equal(t, "http://example.test", res.Header.Get("Access-Control-Allow-Origin"))

	res = env.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/debug/words", nil)
	require.Equal(t, map[string]int{"4": 1, "5": 1, "6": 1}, decode[map[string]int](t, res))

	res = env.do(t, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t)
	res := env.do(t, http.MethodOptions, "/game/key", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
}

func TestGame_SessionCookieAndHiddenTarget(t *testing.T) {
	env := newEnv(t)

	res := env.do(t, http.MethodGet, "/game", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "first request mints a session")
	require.True(t, cookie.HttpOnly)

	v := decode[engine.View](t, res)
	require.Equal(t, game.DefaultLength, v.WordLength)
	require.False(t, v.Unlimited)
	require.Equal(t, game.Playing, v.Game.Status)
	require.Empty(t, v.Game.Target, "target stays hidden while playing")
	require.Len(t, v.Game.Guesses, game.MaxAttempts)

	// Same cookie, same engine.
	v = env.press(t, "r", "e")
	require.Equal(t, "RE", v.Game.CurrentGuess)
	res = env.do(t, http.MethodGet, "/game", nil)
	require.Equal(t, "RE", decode[engine.View](t, res).Game.CurrentGuess)

	// A fresh client gets its own session.
	other := &http.Client{}
	res2, err := other.Get(env.ts.URL + "/game")
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Empty(t, decode[engine.View](t, res2).Game.CurrentGuess)
}

func TestGame_BearerTokenSelectsSession(t *testing.T) {
	env := newEnv(t)
	env.press(t, "W")

	tok, _, err := env.srv.signSession("bearer-session")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/game/key", bytes.NewBufferString(`{"key":"Q"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Empty(t, res.Cookies(), "valid bearer token is not reissued")
	require.Equal(t, "Q", decode[engine.View](t, res).Game.CurrentGuess)
}

func TestGame_WinRevealsTargetAndGatesDailyGame(t *testing.T) {
	env := newEnv(t)

	v := env.press(t, "R", "E", "A", "C", "T", "Enter")
	require.Equal(t, game.Won, v.Game.Status)
	require.Equal(t, "REACT", v.Game.Target)
	require.Equal(t, game.Correct, v.Game.Letters["R"])
	require.False(t, v.CanStartNew)

	// Finished boards ignore further keys but still answer 200.
	v = env.press(t, "A")
	require.Equal(t, "", v.Game.CurrentGuess)

	res := env.do(t, http.MethodPost, "/game/new", nil)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	body := decode[map[string]any](t, res)
	require.Equal(t, "daily_limit", body["error"])
	require.EqualValues(t, 12*60*60, body["untilMidnight"])
}

func TestGame_UnlimitedCooldown(t *testing.T) {
	env := newEnv(t)

	res := env.do(t, http.MethodPost, "/settings", map[string]any{"unlimited": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, decode[engine.View](t, res).Unlimited)

	v := env.press(t, "R", "E", "A", "C", "T", "Enter")
	require.Equal(t, game.Won, v.Game.Status)
	require.Equal(t, 30, v.Cooldown)

	res = env.do(t, http.MethodPost, "/game/new", nil)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	body := decode[map[string]any](t, res)
	require.Equal(t, "cooldown_active", body["error"])
	require.EqualValues(t, 30, body["cooldown"])

	res = env.do(t, http.MethodPost, "/game/reset", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	v = decode[engine.View](t, res)
	require.Zero(t, v.Cooldown)
	require.Equal(t, game.Playing, v.Game.Status)
	require.True(t, v.Unlimited, "reset keeps settings")

	res = env.do(t, http.MethodPost, "/game/new", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestSettings(t *testing.T) {
	env := newEnv(t)

	res := env.do(t, http.MethodPost, "/settings", map[string]any{"wordLength": 7, "darkMode": true})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	res = env.do(t, http.MethodGet, "/game", nil)
	require.False(t, decode[engine.View](t, res).DarkMode, "rejected requests apply nothing")

	res = env.do(t, http.MethodPost, "/settings", map[string]any{"wordLength": 6, "darkMode": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	v := decode[engine.View](t, res)
	assert.Equal(t, game.WordLength(6), v.WordLength)
	assert.True(t, v.DarkMode)
	assert.Len(t, v.Game.Guesses, game.MaxAttempts)

	v = env.press(t, "P", "L", "A", "N", "E", "T", "Enter")
	require.Equal(t, "PLANET", v.Game.Target)

	res = env.do(t, http.MethodPost, "/settings", "{")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestKey_BadRequest(t *testing.T) {
	env := newEnv(t)
	res := env.do(t, http.MethodPost, "/game/key", map[string]string{"key": ""})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestStats_UsesSessionID(t *testing.T) {
	env := newEnv(t)
	env.do(t, http.MethodGet, "/game", nil)

	res := env.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	st := decode[daily.Stats](t, res)
	require.Equal(t, 3, st.Played)
	require.Len(t, env.stats.sessions, 1)
	require.NotEmpty(t, env.stats.sessions[0])

	env.stats.err = errors.New("disk full")
	res = env.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Equal(t, env.stats.sessions[0], env.stats.sessions[1], "stats stay on one session")
}

func TestSession_FactoryErrorIs500(t *testing.T) {
	s := New(func(context.Context, string) (*engine.Engine, error) {
		return nil, errors.New("store offline")
	}, Options{})
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/game", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "load_failed")
}

func TestParseSession_RejectsForeignSecret(t *testing.T) {
	a := New(nil, Options{SessionSecret: "a"})
	defer a.Close()
	b := New(nil, Options{SessionSecret: "b"})
	defer b.Close()
	tok, _, err := a.signSession("sid-1")
	require.NoError(t, err)

	sid, ok := a.parseSession(tok)
	require.True(t, ok)
	require.Equal(t, "sid-1", sid)

	_, ok = b.parseSession(tok)
	require.False(t, ok)
	_, ok = a.parseSession("garbage")
	require.False(t, ok)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// serve drives the router directly so no network goroutines are involved.
func serve(s *Server, method, path string, cookie *http.Cookie, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestSweep_StopsIdleEnginesAndReloads(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	env := newEnv(t, func(o *Options) {
		o.IdleTTL = 10 * time.Minute
		o.SweepInterval = time.Hour
		o.Now = clk.Now
	})
	s := env.srv
	baseline := runtime.NumGoroutine()

	rec := serve(s, http.MethodGet, "/game", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	player := sessionCookie(t, rec)
	serve(s, http.MethodPost, "/game/key", player, `{"key":"R"}`)
	serve(s, http.MethodPost, "/game/key", player, `{"key":"E"}`)

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/game", nil, "").Code)
	}
	require.Equal(t, 51, s.sessions())
	require.Zero(t, s.sweep(), "nothing is idle yet")

	clk.Add(11 * time.Minute)
	rec = serve(s, http.MethodGet, "/game", player, "")
	require.Equal(t, "RE", decode[engine.View](t, rec.Result()).Game.CurrentGuess)

	require.Equal(t, 50, s.sweep())
	require.Equal(t, 1, s.sessions(), "the active session is kept")
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline+1
	}, 2*time.Second, 10*time.Millisecond, "evicted tickers exit")

	clk.Add(11 * time.Minute)
	require.Equal(t, 1, s.sweep())
	require.Zero(t, s.sessions())

	// The snapshot survives eviction.
	rec = serve(s, http.MethodGet, "/game", player, "")
	require.Equal(t, "RE", decode[engine.View](t, rec.Result()).Game.CurrentGuess)
	require.Equal(t, 1, s.sessions())
}

func TestEngineFor_LoadsOncePerSessionOutsideLock(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	snapshots := store.NewMemoryStore()
	list := words.NewStatic(map[int][]string{4: {"word"}, 5: {"react"}, 6: {"planet"}})
	s := New(func(ctx context.Context, sid string) (*engine.Engine, error) {
		if sid == "slow" {
			calls.Add(1)
			<-release
		}
		e := engine.New(engine.Config{ID: sid, Words: list, Store: snapshots, TickInterval: time.Hour})
		return e, e.Load(ctx)
	}, Options{})
	defer s.Close()

	got := make(chan *engine.Engine, 3)
	for i := 0; i < 3; i++ {
		go func() {
			e, err := s.engineFor(context.Background(), "slow")
			if err != nil {
				e = nil
			}
			got <- e
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Another session is not held up by the slow load.
	fast, err := s.engineFor(context.Background(), "fast")
	require.NoError(t, err)
	require.NotNil(t, fast)

	close(release)
	first := <-got
	require.NotNil(t, first)
	require.Same(t, first, <-got)
	require.Same(t, first, <-got)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 2, s.sessions())
}

func TestEngineFor_AfterCloseFails(t *testing.T) {
	env := newEnv(t)
	env.srv.Close()
	rec := serve(env.srv, http.MethodGet, "/game", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Zero(t, env.srv.sessions())
}
