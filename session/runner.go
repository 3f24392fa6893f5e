// Package session drives a game engine on a fixed interval and hands every
// resulting snapshot to the attached renderers.
package session

import (
	"context"
	"sync"
	"time"

	"snake-grid/game"
	"snake-grid/game/manager"
	"snake-grid/game/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Sink consumes snapshots. Render is called from the runner goroutine and
// must not block.
type Sink interface {
	Render(state game.State)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(state game.State)

func (f SinkFunc) Render(state game.State) { f(state) }

// Notifier is told once per game over and blocks until the player
// acknowledges it or ctx ends.
type Notifier interface {
	GameOver(ctx context.Context, state game.State) error
}

// GridFunc supplies the grid size, in cells, for the next game.
type GridFunc func() (width, height int)

// FixedGrid always returns the same size.
func FixedGrid(width, height int) GridFunc {
	return func() (int, int) { return width, height }
}

type Option func(*Runner)

func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) {
		r.sinks = append(r.sinks, sinks...)
	}
}

func WithNotifier(n Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithTicks replaces the internal ticker; every value received advances the
// game once.
func WithTicks(ticks <-chan time.Time) Option {
	return func(r *Runner) {
		r.ticks = ticks
	}
}

// WithRestartDelay sets how long a finished game stays on screen when there
// is no notifier.
func WithRestartDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.restartDelay = d
	}
}

// WithMaxGames makes Run return nil once n games have ended. Zero means no
// limit.
func WithMaxGames(n int) Option {
	return func(r *Runner) {
		r.maxGames = n
	}
}

func WithStats(stats *manager.StatsManager) Option {
	return func(r *Runner) {
		r.stats = stats
	}
}

// Runner is the only caller of Engine.Step. Steps never overlap because a
// single goroutine consumes the ticks.
type Runner struct {
	engine       *game.Engine
	grid         GridFunc
	period       time.Duration
	restartDelay time.Duration
	sinks        []Sink
	notifier     Notifier
	stats        *manager.StatsManager
	ticks        <-chan time.Time
	maxGames     int

	mutex   sync.RWMutex
	paused  bool
	running bool
}

func NewRunner(engine *game.Engine, grid GridFunc, period time.Duration, opts ...Option) *Runner {
	r := &Runner{
		engine:       engine,
		grid:         grid,
		period:       period,
		restartDelay: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.stats == nil {
		r.stats = manager.NewStatsManager(0)
	}
	return r
}

// Steer forwards a direction request to the engine. It is safe to call from
// any goroutine and never waits for a tick.
func (r *Runner) Steer(d types.Direction) bool {
	return r.engine.SetDirection(d)
}

// TogglePause flips the pause flag and returns the new value.
func (r *Runner) TogglePause() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.paused = !r.paused
	return r.paused
}

func (r *Runner) Paused() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.paused
}

func (r *Runner) Stats() manager.GameStats {
	return r.stats.GetStats()
}

// State returns the engine's current snapshot.
func (r *Runner) State() game.State {
	return r.engine.State()
}

// Run resets the engine and steps it on every tick until ctx is cancelled.
// It returns ctx.Err() on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.mutex.Lock()
	if r.running {
		r.mutex.Unlock()
		return errors.New("runner already running")
	}
	r.running = true
	r.mutex.Unlock()

	defer func() {
		r.mutex.Lock()
		r.running = false
		r.mutex.Unlock()
	}()

	ticks := r.ticks
	var ticker *time.Ticker
	if ticks == nil {
		ticker = time.NewTicker(r.period)
		defer ticker.Stop()
		ticks = ticker.C
	}

	if err := r.reset(); err != nil {
		return err
	}

	played := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if r.Paused() {
				continue
			}

			state := r.engine.Step()
			r.render(state)
			if state.Alive {
				continue
			}

			r.record(state)
			played++
			if r.maxGames > 0 && played >= r.maxGames {
				log.WithField("games", played).Info("game limit reached")
				return nil
			}
			if err := r.awaitRestart(ctx, state); err != nil {
				return err
			}

			// Ticks that fired during game over are stale.
			select {
			case <-ticks:
			default:
			}
			if err := r.reset(); err != nil {
				return err
			}
			if ticker != nil {
				ticker.Reset(r.period)
			}
		}
	}
}

func (r *Runner) reset() error {
	width, height := r.grid()
	state, err := r.engine.Reset(width, height)
	if err != nil {
		return errors.Wrap(err, "reset game")
	}
	log.WithFields(log.Fields{
		"game":   state.ID,
		"width":  width,
		"height": height,
	}).Info("new game")
	r.render(state)
	return nil
}

func (r *Runner) render(state game.State) {
	for _, sink := range r.sinks {
		sink.Render(state)
	}
}

func (r *Runner) record(state game.State) {
	stats := r.stats.AddGame(manager.GameRecord{
		ID:        state.ID,
		Score:     state.Score(),
		Ticks:     state.Tick,
		Outcome:   state.Outcome.String(),
		Duration:  state.Duration(),
		StartTime: state.StartTime,
	})
	log.WithFields(log.Fields{
		"game":    state.ID,
		"score":   state.Score(),
		"ticks":   state.Tick,
		"outcome": state.Outcome.String(),
		"best":    stats.HighScore,
		"played":  stats.GamesPlayed,
		"average": stats.AverageScore,
	}).Info("game over")
}

func (r *Runner) awaitRestart(ctx context.Context, state game.State) error {
	if r.notifier != nil {
		err := r.notifier.GameOver(ctx, state)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "game over notifier")
	}

	if r.restartDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.restartDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
