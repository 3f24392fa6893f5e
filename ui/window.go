// Package ui hosts the game in a desktop window drawn with raylib.
//
// raylib must be driven from the thread that created the window, so the
// session hands snapshots over through a mailbox and Loop does all drawing
// and input polling on the caller's goroutine.
package ui

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"snake-grid/config"
	"snake-grid/game"
	"snake-grid/game/types"

	rl "github.com/gen2brain/raylib-go/raylib"
	log "github.com/sirupsen/logrus"
)

const (
	title     = "Snake"
	targetFPS = 60
	hudHeight = 28
	fontSize  = 20

	graphWidth  = 200
	graphPoints = 100
)

func init() {
	// Window and GL calls have to stay on the main OS thread.
	runtime.LockOSThread()
}

// Controls are the callbacks Loop drives from keyboard input.
type Controls struct {
	Steer func(types.Direction) bool
	Pause func() bool
}

type Window struct {
	cfg config.Config

	mutex    sync.Mutex
	latest   game.State
	hasState bool
	width    int
	height   int
	paused   bool
	best     int
	scores   []int

	ack chan struct{}
}

// Open creates the window. Close must be called on the same goroutine.
func Open(cfg config.Config) *Window {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.WindowWidth), int32(cfg.WindowHeight), title)
	rl.SetTargetFPS(targetFPS)

	return &Window{
		cfg:    cfg,
		width:  int(rl.GetScreenWidth()),
		height: int(rl.GetScreenHeight()),
		ack:    make(chan struct{}, 1),
	}
}

func (w *Window) Close() {
	rl.CloseWindow()
}

// Grid returns the grid that fits the current window. It reads the size
// cached by Loop and is safe from any goroutine.
func (w *Window) Grid() (int, int) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.cfg.GridFor(w.width, w.height-hudHeight)
}

// SetStats updates the best score and the recent scores graphed in the
// header.
func (w *Window) SetStats(best int, scores []int) {
	w.mutex.Lock()
	w.best = best
	w.scores = scores
	w.mutex.Unlock()
}

// Render implements session.Sink. It only stores the snapshot.
func (w *Window) Render(s game.State) {
	w.mutex.Lock()
	w.latest = s
	w.hasState = true
	w.mutex.Unlock()
	if s.Alive {
		// Drop an Enter left over from the previous game.
		select {
		case <-w.ack:
		default:
		}
	}
}

// GameOver implements session.Notifier. It waits for Enter, counting one
// pressed after the final frame was drawn.
func (w *Window) GameOver(ctx context.Context, s game.State) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ack:
		return nil
	}
}

// keyDirections maps raylib keys to directions.
var keyDirections = map[int32]types.Direction{
	rl.KeyUp:    types.Up,
	rl.KeyW:     types.Up,
	rl.KeyDown:  types.Down,
	rl.KeyS:     types.Down,
	rl.KeyLeft:  types.Left,
	rl.KeyA:     types.Left,
	rl.KeyRight: types.Right,
	rl.KeyD:     types.Right,
}

// DirectionForKey reports the direction bound to key.
func DirectionForKey(key int32) (types.Direction, bool) {
	d, ok := keyDirections[key]
	return d, ok
}

// Loop polls input and draws the latest snapshot until the window closes,
// the player quits or ctx is cancelled.
func (w *Window) Loop(ctx context.Context, controls Controls) {
	rl.SetExitKey(0)
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			return
		}
		if rl.IsKeyPressed(rl.KeyEscape) || rl.IsKeyPressed(rl.KeyQ) {
			log.Info("window: quit requested")
			return
		}
		w.handleInput(controls)

		w.mutex.Lock()
		w.width = int(rl.GetScreenWidth())
		w.height = int(rl.GetScreenHeight())
		state, ok := w.latest, w.hasState
		paused, best, scores := w.paused, w.best, w.scores
		width := int32(w.width)
		w.mutex.Unlock()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		if ok {
			w.draw(state, paused, best)
		}
		drawScores(scores, width-graphWidth-6, 2, graphWidth, hudHeight-4)
		rl.EndDrawing()
	}
}

func (w *Window) handleInput(controls Controls) {
	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		if d, ok := DirectionForKey(key); ok && controls.Steer != nil {
			controls.Steer(d)
		}
	}

	if rl.IsKeyPressed(rl.KeySpace) && controls.Pause != nil {
		paused := controls.Pause()
		w.mutex.Lock()
		w.paused = paused
		w.mutex.Unlock()
	}

	if rl.IsKeyPressed(rl.KeyEnter) {
		w.mutex.Lock()
		over := w.hasState && !w.latest.Alive
		w.mutex.Unlock()
		if over {
			select {
			case w.ack <- struct{}{}:
			default:
			}
		}
	}
}

func toColor(c config.Color) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: 255}
}

// cellRect is the pixel rectangle of grid cell p.
func cellRect(p types.Point, size int32) (int32, int32) {
	return int32(p.X) * size, hudHeight + int32(p.Y)*size
}

// headTriangle points from the middle of the head cell towards d.
func headTriangle(x, y, size int32, d types.Direction) [3]rl.Vector2 {
	fx, fy, s := float32(x), float32(y), float32(size)
	half := s / 2
	switch d {
	case types.Right:
		return [3]rl.Vector2{{X: fx + s, Y: fy + half}, {X: fx + half, Y: fy}, {X: fx + half, Y: fy + s}}
	case types.Left:
		return [3]rl.Vector2{{X: fx, Y: fy + half}, {X: fx + half, Y: fy + s}, {X: fx + half, Y: fy}}
	case types.Down:
		return [3]rl.Vector2{{X: fx + half, Y: fy + s}, {X: fx + s, Y: fy + half}, {X: fx, Y: fy + half}}
	default:
		return [3]rl.Vector2{{X: fx + half, Y: fy}, {X: fx, Y: fy + half}, {X: fx + s, Y: fy + half}}
	}
}

func (w *Window) draw(s game.State, paused bool, best int) {
	size := int32(w.cfg.CellSize)
	rl.DrawRectangle(0, hudHeight, int32(s.Width)*size, int32(s.Height)*size, toColor(w.cfg.Palette.Background))

	if s.HasFood {
		x, y := cellRect(s.Food, size)
		rl.DrawRectangle(x, y, size, size, toColor(w.cfg.Palette.Food))
	}

	snake := toColor(w.cfg.Palette.Snake)
	for _, p := range s.Snake {
		x, y := cellRect(p, size)
		rl.DrawRectangle(x, y, size, size, snake)
	}
	if s.Alive {
		x, y := cellRect(s.Head(), size)
		tri := headTriangle(x, y, size, s.Direction)
		rl.DrawTriangle(tri[0], tri[1], tri[2], rl.Yellow)
	}

	header := fmt.Sprintf("Score: %d   Best: %d", s.Score(), best)
	if paused {
		header += "   (paused)"
	}
	rl.DrawText(header, 6, 4, fontSize, rl.White)

	if !s.Alive && s.Outcome.Terminal() {
		msg := fmt.Sprintf("Game over (%s). Enter to restart", s.Outcome)
		textWidth := rl.MeasureText(msg, fontSize)
		rl.DrawText(msg,
			(int32(s.Width)*size-textWidth)/2,
			hudHeight+int32(s.Height)*size/2,
			fontSize, rl.White)
	}
}

// scoreLine scales the last graphPoints scores into a polyline inside the
// given box. The highest score touches the top edge.
func scoreLine(scores []int, x, y, width, height int32) []rl.Vector2 {
	if len(scores) > graphPoints {
		scores = scores[len(scores)-graphPoints:]
	}
	if len(scores) < 2 {
		return nil
	}

	top := 1
	for _, s := range scores {
		if s > top {
			top = s
		}
	}

	points := make([]rl.Vector2, len(scores))
	step := float32(width) / float32(len(scores)-1)
	for i, s := range scores {
		points[i] = rl.Vector2{
			X: float32(x) + step*float32(i),
			Y: float32(y+height) - float32(height)*float32(s)/float32(top),
		}
	}
	return points
}

func drawScores(scores []int, x, y, width, height int32) {
	points := scoreLine(scores, x, y, width, height)
	if points == nil {
		return
	}
	rl.DrawRectangleLines(x, y, width, height, rl.Gray)
	for i := 1; i < len(points); i++ {
		rl.DrawLineV(points[i-1], points[i], rl.Green)
	}
}
