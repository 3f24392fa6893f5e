// Package terminal hosts the game in a text terminal: it draws snapshots,
// turns key presses into direction requests and asks for acknowledgement
// when a game ends.
package terminal

import (
	"context"
	"fmt"
	"sync"

	"snake-grid/config"
	"snake-grid/game"
	"snake-grid/game/types"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Each grid cell is two columns wide so cells look roughly square.
const cellWidth = 2

// Controls are the callbacks the event loop drives.
type Controls struct {
	Steer func(types.Direction) bool
	Pause func() bool
	Quit  func()
}

type Terminal struct {
	screen  tcell.Screen
	palette config.Palette

	mutex    sync.Mutex
	gameOver bool
	ack      chan struct{}
}

// New initialises screen and returns a host drawing on it.
func New(screen tcell.Screen, palette config.Palette) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "terminal init")
	}
	screen.HideCursor()
	return &Terminal{
		screen:  screen,
		palette: palette,
		ack:     make(chan struct{}, 1),
	}, nil
}

// NewScreen opens the controlling terminal.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "open terminal")
	}
	return screen, nil
}

func (t *Terminal) Close() {
	t.screen.Fini()
}

// Grid returns the playable size in cells. The last row holds the status
// line.
func (t *Terminal) Grid() (int, int) {
	w, h := t.screen.Size()
	return w / cellWidth, h - 1
}

func toStyle(c config.Color) tcell.Style {
	return tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

// Render implements session.Sink.
func (t *Terminal) Render(s game.State) {
	t.mutex.Lock()
	t.gameOver = !s.Alive
	t.mutex.Unlock()
	if s.Alive {
		t.clearAck()
	}

	bg := toStyle(t.palette.Background)
	t.screen.Fill(' ', tcell.StyleDefault)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			t.fillCell(types.Point{X: x, Y: y}, bg)
		}
	}

	if s.HasFood {
		t.fillCell(s.Food, toStyle(t.palette.Food))
	}
	snake := toStyle(t.palette.Snake)
	for _, p := range s.Snake {
		t.fillCell(p, snake)
	}

	status := fmt.Sprintf(" score %d  %s ", s.Score(), s.Direction)
	if !s.Alive {
		status = fmt.Sprintf(" game over (%s), score %d. Enter to restart, q to quit ", s.Outcome, s.Score())
	}
	t.drawText(0, s.Height, status, tcell.StyleDefault.Reverse(true))
	t.screen.Show()
}

func (t *Terminal) fillCell(p types.Point, style tcell.Style) {
	for i := 0; i < cellWidth; i++ {
		t.screen.SetContent(p.X*cellWidth+i, p.Y, ' ', nil, style)
	}
}

func (t *Terminal) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}

// clearAck drops an Enter left over from a previous game.
func (t *Terminal) clearAck() {
	select {
	case <-t.ack:
	default:
	}
}

// GameOver implements session.Notifier. It waits for Enter, counting one
// pressed after the final frame was drawn.
func (t *Terminal) GameOver(ctx context.Context, s game.State) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ack:
		return nil
	}
}

// DirectionForKey maps arrows, WASD and hjkl to directions.
func DirectionForKey(ev *tcell.EventKey) (types.Direction, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return types.Up, true
	case tcell.KeyDown:
		return types.Down, true
	case tcell.KeyLeft:
		return types.Left, true
	case tcell.KeyRight:
		return types.Right, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W', 'k':
			return types.Up, true
		case 's', 'S', 'j':
			return types.Down, true
		case 'a', 'A', 'h':
			return types.Left, true
		case 'd', 'D', 'l':
			return types.Right, true
		}
	}
	return types.None, false
}

// Run polls terminal events until ctx is cancelled or the player quits.
func (t *Terminal) Run(ctx context.Context, controls Controls) error {
	go func() {
		<-ctx.Done()
		t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		ev := t.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.handleKey(ev, controls)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *Terminal) handleKey(ev *tcell.EventKey, controls Controls) {
	if dir, ok := DirectionForKey(ev); ok {
		if controls.Steer != nil {
			controls.Steer(dir)
		}
		return
	}

	switch {
	case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
		(ev.Key() == tcell.KeyRune && ev.Rune() == 'q'):
		if controls.Quit != nil {
			controls.Quit()
		}
	case ev.Key() == tcell.KeyEnter:
		t.mutex.Lock()
		over := t.gameOver
		t.mutex.Unlock()
		if over {
			select {
			case t.ack <- struct{}{}:
			default:
			}
		}
	case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
		if controls.Pause != nil {
			paused := controls.Pause()
			log.WithField("paused", paused).Debug("terminal: pause toggled")
		}
	}
}
