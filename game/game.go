package game

import (
	"sync"
	"time"

	"snake-grid/game/entity"
	"snake-grid/game/manager"
	"snake-grid/game/types"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

var (
	ErrInvalidGrid  = errors.New("grid dimensions must be positive")
	ErrGridTooSmall = errors.New("grid needs at least two cells")
)

// Engine advances one snake over a bounded grid. All methods are safe for
// concurrent use; each call holds the engine lock for its whole duration.
type Engine struct {
	mutex sync.Mutex

	id        string
	grid      types.Grid
	snake     *entity.Snake
	direction types.Direction
	pending   types.Direction
	food      types.Point
	hasFood   bool
	alive     bool
	outcome   Outcome
	tick      int
	startTime time.Time
	endTime   time.Time

	rng          *rand.Rand
	now          func() time.Time
	collisionMgr *manager.CollisionManager
	foodMgr      *manager.FoodManager
}

type Option func(*Engine)

// WithSeed makes food placement reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithClock replaces time.Now for game start timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an engine in the GameOver state; call Reset to play.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return e
}

// Reset starts a new game on a width x height grid with a single-cell snake
// in the center heading right.
func (e *Engine) Reset(width, height int) (State, error) {
	if width < 1 || height < 1 {
		return State{}, errors.Wrapf(ErrInvalidGrid, "got %dx%d", width, height)
	}
	grid := types.Grid{Width: width, Height: height}
	if grid.Cells() < 2 {
		return State{}, errors.Wrapf(ErrGridTooSmall, "got %dx%d", width, height)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.grid = grid
	e.collisionMgr = manager.NewCollisionManager(grid)
	e.foodMgr = manager.NewFoodManager(grid, e.collisionMgr, e.rng)
	e.snake = entity.NewSnake(grid.Center())
	e.direction = types.Right
	e.pending = types.Right
	e.alive = true
	e.outcome = OutcomeNone
	e.tick = 0
	e.id = uuid.New().String()
	e.startTime = e.now()
	e.endTime = time.Time{}
	e.placeFood()

	return e.stateLocked(), nil
}

// SetDirection records the direction for the next Step. Requests along the
// current axis (reversals and repeats) are ignored. It reports whether the
// request was accepted.
func (e *Engine) SetDirection(d types.Direction) bool {
	if !d.Valid() {
		return false
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.direction.Perpendicular(d) {
		return false
	}
	e.pending = d
	return true
}

// Step advances the game by one cell. Once the snake is dead it returns the
// frozen state unchanged until the next Reset.
func (e *Engine) Step() State {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.alive {
		return e.stateLocked()
	}

	e.tick++
	e.direction = e.pending
	newHead := e.snake.GetHead().Add(e.direction.Delta())

	switch e.collisionMgr.CheckCollision(newHead, e.snake) {
	case manager.WallCollision:
		return e.terminate(OutcomeWall)
	case manager.SelfCollision:
		return e.terminate(OutcomeSelf)
	}

	e.snake.Move(newHead)

	if e.collisionMgr.IsFoodCollision(newHead, e.food) {
		if !e.placeFood() {
			return e.terminate(OutcomeBoardFull)
		}
		e.outcome = OutcomeGrow
	} else {
		e.snake.RemoveTail()
		e.outcome = OutcomeTranslate
	}

	return e.stateLocked()
}

// State returns the current snapshot without advancing the game.
func (e *Engine) State() State {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.stateLocked()
}

func (e *Engine) Alive() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.alive
}

func (e *Engine) terminate(outcome Outcome) State {
	e.alive = false
	e.outcome = outcome
	e.endTime = e.now()
	return e.stateLocked()
}

func (e *Engine) placeFood() bool {
	food, ok := e.foodMgr.GenerateFood(e.snake)
	e.food = food
	e.hasFood = ok
	return ok
}

func (e *Engine) stateLocked() State {
	s := State{
		ID:        e.id,
		Width:     e.grid.Width,
		Height:    e.grid.Height,
		Direction: e.direction,
		Food:      e.food,
		HasFood:   e.hasFood,
		Alive:     e.alive,
		Outcome:   e.outcome,
		Tick:      e.tick,
		StartTime: e.startTime,
		EndTime:   e.endTime,
	}
	if e.snake != nil {
		s.Snake = e.snake.Copy()
	}
	return s
}
