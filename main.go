package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"snake-grid/ai"
	"snake-grid/config"
	"snake-grid/game"
	"snake-grid/game/manager"
	"snake-grid/session"
	"snake-grid/spectate"
	"snake-grid/terminal"
	"snake-grid/ui"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

const (
	maxHistory      = 200
	terminalLogFile = "snake.log"
)

func main() {
	cfg, help, err := parseArgs(os.Args[1:])
	if help {
		return
	}
	if err != nil {
		log.WithError(err).Fatal("bad arguments")
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		log.WithError(err).Fatal("logging setup")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("snake exited")
		closeLog()
		os.Exit(1)
	}
}

// parseArgs reports help when -h was given; the flag package has already
// printed the usage.
func parseArgs(args []string) (config.Config, bool, error) {
	cfg, err := config.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return cfg, true, nil
	}
	return cfg, false, err
}

func setupLogging(cfg config.Config) (func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	path := cfg.LogFile
	if path == "" && cfg.Mode == config.ModeTerminal {
		// stderr would draw over the game.
		path = terminalLogFile
	}
	if path == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

func run(ctx context.Context, cfg config.Config) error {
	var opts []game.Option
	if cfg.Seed != 0 {
		opts = append(opts, game.WithSeed(cfg.Seed))
	}
	engine := game.NewEngine(opts...)
	stats := manager.NewStatsManager(maxHistory)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sinks []session.Sink
	errs := make(chan error, 2)

	if cfg.Spectate != "" {
		hub := spectate.NewHub(stats.GetStats)
		sinks = append(sinks, hub)
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Spectate); err != nil {
				log.WithError(err).Error("spectator feed stopped")
				errs <- err
			}
		}()
	}

	if cfg.Autopilot {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(os.Getpid())
		}
		agent := ai.NewQLearning(rand.New(rand.NewSource(seed)))
		sinks = append(sinks, ai.NewPilot(agent, engine.SetDirection))
		log.Info("autopilot enabled")
	}

	log.WithFields(log.Fields{
		"mode":   cfg.Mode,
		"period": cfg.Period,
		"seed":   cfg.Seed,
	}).Info("starting")

	switch cfg.Mode {
	case config.ModeHeadless:
		runner := session.NewRunner(engine, session.FixedGrid(cfg.GridWidth, cfg.GridHeight), cfg.Period,
			session.WithSinks(sinks...),
			session.WithStats(stats),
			session.WithRestartDelay(cfg.RestartDelay),
			session.WithMaxGames(cfg.MaxGames))
		return runAll(ctx, runner, errs)

	case config.ModeTerminal:
		screen, err := terminal.NewScreen()
		if err != nil {
			return err
		}
		term, err := terminal.New(screen, cfg.Palette)
		if err != nil {
			return err
		}
		defer term.Close()

		runner := session.NewRunner(engine, term.Grid, cfg.Period,
			append(hostOptions(cfg, term), session.WithSinks(append([]session.Sink{term}, sinks...)...), session.WithStats(stats))...)

		go func() {
			errs <- term.Run(ctx, terminal.Controls{
				Steer: runner.Steer,
				Pause: runner.TogglePause,
				Quit:  cancel,
			})
		}()
		return runAll(ctx, runner, errs)

	default:
		win := ui.Open(cfg)
		defer win.Close()

		scores := session.SinkFunc(func(s game.State) {
			if s.Alive && s.Tick > 0 {
				return
			}
			history := stats.GetScoreHistory()
			points := make([]int, len(history))
			for i, rec := range history {
				points[i] = rec.Score
			}
			win.SetStats(stats.GetStats().HighScore, points)
		})
		runner := session.NewRunner(engine, win.Grid, cfg.Period,
			append(hostOptions(cfg, win), session.WithSinks(append([]session.Sink{win, scores}, sinks...)...), session.WithStats(stats))...)

		done := make(chan error, 1)
		go func() {
			err := runner.Run(ctx)
			cancel()
			done <- err
		}()

		// raylib owns this goroutine until the window closes.
		win.Loop(ctx, ui.Controls{Steer: runner.Steer, Pause: runner.TogglePause})
		cancel()
		return <-done
	}
}

// hostOptions waits for the player at game over unless the autopilot is
// playing, in which case games restart on their own.
func hostOptions(cfg config.Config, notifier session.Notifier) []session.Option {
	opts := []session.Option{session.WithMaxGames(cfg.MaxGames)}
	if cfg.Autopilot {
		return append(opts, session.WithRestartDelay(cfg.RestartDelay))
	}
	return append(opts, session.WithNotifier(notifier))
}

// runAll runs the session until it or a helper goroutine stops.
func runAll(ctx context.Context, runner *session.Runner, errs <-chan error) error {
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case err := <-errs:
		if err != nil && ctx.Err() == nil {
			return err
		}
		return <-done
	}
}
