package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/scheduler"
	"github.com/jacokyle01/chess-scheduler/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  chess-scheduler serve [-config path]     - Run the game server")
	fmt.Println("  chess-scheduler selfplay [-config path]  - Play one engine-vs-engine game and log it")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	path := fs.String("config", "", "YAML settings file")
	_ = fs.Parse(os.Args[2:])

	cfg := config.Default()
	if *path != "" {
		var err error
		if cfg, err = config.Load(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, cfg, log)
	case "selfplay":
		err = selfplay(ctx, cfg, log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	hub := server.NewHub()
	archive := server.NewArchive(log.With().Str("component", "archive").Logger())
	sched, err := scheduler.New(cfg, scheduler.Options{
		Listener: scheduler.Multi(hub, archive),
		Log:      log.With().Str("component", "scheduler").Logger(),
	})
	if err != nil {
		return err
	}
	srv := server.New(sched, hub, archive, config.NewStore(cfg), log.With().Str("component", "http").Logger())
	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv.Router()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Listen).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		return nil
	})
	return g.Wait()
}

// moveLogger prints a self-play game as it is played.
type moveLogger struct {
	scheduler.NopListener
	log  zerolog.Logger
	done chan rules.Ending
}

func (m *moveLogger) BoardChanged(u scheduler.BoardUpdate) {
	if u.LastMove == "" {
		return
	}
	m.log.Info().Int("ply", len(u.Moves)).Str("move", u.LastSAN).Str("fen", u.FEN).Msg("move")
}

func (m *moveLogger) EngineError(err error) {
	m.log.Warn().Err(err).Msg("engine error")
}

func (m *moveLogger) GameOver(e rules.Ending) {
	select {
	case m.done <- e:
	default:
	}
}

func selfplay(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if len(cfg.Engines) == 0 {
		return errors.New("selfplay needs at least one engine")
	}
	if len(cfg.Engines) == 1 {
		cfg.Engines = append(cfg.Engines, cfg.Engines[0])
	}
	cfg.GameMode = models.EngineVsEngine.String()

	ml := &moveLogger{log: log, done: make(chan rules.Ending, 1)}
	sched, err := scheduler.New(cfg, scheduler.Options{
		Listener: ml,
		Log:      log.With().Str("component", "scheduler").Logger(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		select {
		case e := <-ml.done:
			log.Info().Str("outcome", string(e.Outcome)).Str("reason", e.Reason).Msg("game over")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	return g.Wait()
}
