package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buttonwang/wordly/assets"
	"github.com/buttonwang/wordly/internal/config"
	"github.com/buttonwang/wordly/internal/daily"
	"github.com/buttonwang/wordly/internal/engine"
	"github.com/buttonwang/wordly/internal/game"
	"github.com/buttonwang/wordly/internal/httpserver"
	"github.com/buttonwang/wordly/internal/store"
	"github.com/buttonwang/wordly/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	lengths := make([]int, 0, len(game.Lengths))
	for _, n := range game.Lengths {
		lengths = append(lengths, int(n))
	}
	static, err := words.LoadStatic(cfg.WordsDir, lengths...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	lookup := words.NewLookup(cfg.WordAPIURL, cfg.WordTimeout, static)
	today := &words.Daily{Words: static, Salt: cfg.DailySalt}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	snapshots := store.NewSQLiteStore(db)
	results := daily.NewStore(db)

	factory := func(ctx context.Context, sid string) (*engine.Engine, error) {
		e := engine.New(engine.Config{
			ID:       sid,
			Words:    lookup,
			Daily:    today,
			Store:    snapshots,
			Results:  results,
			Cooldown: cfg.Cooldown,
		})
		if err := e.Load(ctx); err != nil {
			return nil, err
		}
		return e, nil
	}

	srv := httpserver.New(factory, httpserver.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.Production,
		ClientOrigin:  cfg.ClientOrigin,
		Stats:         results,
		WordStats:     static.Stats,
		IdleTTL:       cfg.IdleTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Bool("wordLookup", cfg.WordAPIURL != "").Msg("starting wordly")
	if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	<-drained
}
