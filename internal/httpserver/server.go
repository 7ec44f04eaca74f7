// internal/httpserver/server.go
//
// HTTP server wiring for the word game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, logging).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Game endpoints (session-scoped): mounted by mountGame.
//   - Session registry: one engine per signed session cookie, started on first
//     use, stopped when idle past Options.IdleTTL, and stopped on shutdown.
//     Snapshots are persisted on every change, so an evicted session simply
//     reloads on its next request.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The server is the presentation boundary: it forwards raw keys and
//     returns engine views; it never touches game rules directly.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/buttonwang/wordly/internal/daily"
	"github.com/buttonwang/wordly/internal/engine"
)

var errServerClosed = errors.New("server closed")

// EngineFactory builds and loads the engine for a session ID.
type EngineFactory func(ctx context.Context, sessionID string) (*engine.Engine, error)

// StatsReader serves GET /stats.
type StatsReader interface {
	Stats(ctx context.Context, session string) (daily.Stats, error)
}

// Options configures a Server.
type Options struct {
	SessionSecret string
	SecureCookies bool               // production: Secure + SameSite=None
	ClientOrigin  string             // CORS origin
	Stats         StatsReader        // optional
	WordStats     func() map[int]int // optional, /debug/words
	IdleTTL       time.Duration      // evict engines unused this long; default 30m
	SweepInterval time.Duration      // how often to look for idle engines; default 1m
	Now           func() time.Time   // default time.Now
}

// entry is one live session engine.
type entry struct {
	engine   *engine.Engine
	lastSeen time.Time
}

// Server bundles router, session registry and options.
type Server struct {
	r         *chi.Mux
	opts      Options
	newEngine EngineFactory
	http      *http.Server

	loads singleflight.Group // one factory call per session ID at a time

	mu      sync.Mutex        // guards engines, closed
	engines map[string]*entry // keyed by session ID
	closed  bool

	quit        chan struct{}
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

// New constructs a Server, installs middleware, and registers routes.
func New(factory EngineFactory, opts Options) *Server {
	if opts.SessionSecret == "" {
		opts.SessionSecret = "dev_secret_change_me"
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		r:           chi.NewRouter(),
		opts:        opts,
		newEngine:   factory,
		engines:     make(map[string]*entry),
		quit:        make(chan struct{}),
		sweeperDone: make(chan struct{}),
	}
	go s.sweeper()

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics; clients offer POST /game/reset
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordly","endpoints":["/health","GET /game","POST /game/key","POST /game/new","POST /game/reset","POST /settings","GET /stats"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		counts := map[int]int{}
		if s.opts.WordStats != nil {
			counts = s.opts.WordStats()
		}
		_ = json.NewEncoder(w).Encode(counts)
	})

	// Game endpoints: every request is bound to a session engine.
	s.r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		s.mountGame(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.http = &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	srv := s.http
	s.mu.Unlock()
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests, then stops every session engine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.Close()
	return err
}

// Close stops the idle sweeper and every session engine's ticker.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.sweeperDone
	})
	s.mu.Lock()
	engines := s.engines
	s.engines = make(map[string]*entry)
	s.closed = true
	s.mu.Unlock()
	for _, ent := range engines {
		ent.engine.Stop()
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// engineFor returns the running engine for sid, creating it on first use.
// The factory runs outside s.mu; concurrent first requests for the same sid
// share one load.
func (s *Server) engineFor(ctx context.Context, sid string) (*engine.Engine, error) {
	if e := s.touch(sid); e != nil {
		return e, nil
	}
	v, err, _ := s.loads.Do(sid, func() (any, error) {
		if e := s.touch(sid); e != nil {
			return e, nil
		}
		// The load is shared, so it must not die with the first caller's request.
		e, err := s.newEngine(context.WithoutCancel(ctx), sid)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, errServerClosed
		}
		// The ticker outlives the request that created it.
		e.Start(context.Background())
		s.engines[sid] = &entry{engine: e, lastSeen: s.opts.Now()}
		n := len(s.engines)
		s.mu.Unlock()

		log.Debug().Str("session", sid).Int("sessions", n).Msg("engine started")
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.Engine), nil
}

// touch returns the live engine for sid and marks it used.
func (s *Server) touch(sid string) *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.engines[sid]
	if !ok {
		return nil
	}
	ent.lastSeen = s.opts.Now()
	return ent.engine
}

// sweep stops and forgets engines idle longer than IdleTTL. It returns how
// many were evicted.
func (s *Server) sweep() int {
	cutoff := s.opts.Now().Add(-s.opts.IdleTTL)
	var idle []*engine.Engine
	s.mu.Lock()
	for sid, ent := range s.engines {
		if ent.lastSeen.Before(cutoff) {
			idle = append(idle, ent.engine)
			delete(s.engines, sid)
		}
	}
	left := len(s.engines)
	s.mu.Unlock()

	for _, e := range idle {
		e.Stop()
	}
	if len(idle) > 0 {
		log.Debug().Int("evicted", len(idle)).Int("sessions", left).Msg("idle sessions swept")
	}
	return len(idle)
}

func (s *Server) sweeper() {
	defer close(s.sweeperDone)
	t := time.NewTicker(s.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

// sessions reports how many engines are live.
func (s *Server) sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("requestId", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}
