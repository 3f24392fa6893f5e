package terminal

import (
	"context"
	"testing"
	"time"

	"snake-grid/config"
	"snake-grid/game"
	"snake-grid/game/types"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	term, err := New(screen, config.Default().Palette)
	require.NoError(t, err)
	screen.SetSize(40, 11)
	t.Cleanup(term.Close)
	return term, screen
}

func background(screen tcell.Screen, x, y int) tcell.Color {
	_, _, style, _ := screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestGrid(t *testing.T) {
	term, _ := newTestTerminal(t)
	w, h := term.Grid()
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
}

func TestRenderDrawsCells(t *testing.T) {
	term, screen := newTestTerminal(t)
	palette := config.Default().Palette

	term.Render(game.State{
		Width:     5,
		Height:    4,
		Snake:     []types.Point{{X: 2, Y: 1}, {X: 1, Y: 1}},
		Direction: types.Right,
		Food:      types.Point{X: 4, Y: 3},
		HasFood:   true,
		Alive:     true,
	})

	color := func(c config.Color) tcell.Color {
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	assert.Equal(t, color(palette.Snake), background(screen, 4, 1))
	assert.Equal(t, color(palette.Snake), background(screen, 5, 1))
	assert.Equal(t, color(palette.Snake), background(screen, 2, 1))
	assert.Equal(t, color(palette.Food), background(screen, 8, 3))
	assert.Equal(t, color(palette.Background), background(screen, 0, 0))

	r, _, _, _ := screen.GetContent(1, 4)
	assert.Equal(t, 's', r)
}

func TestDirectionForKey(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		r    rune
		want types.Direction
		ok   bool
	}{
		{tcell.KeyUp, 0, types.Up, true},
		{tcell.KeyDown, 0, types.Down, true},
		{tcell.KeyLeft, 0, types.Left, true},
		{tcell.KeyRight, 0, types.Right, true},
		{tcell.KeyRune, 'w', types.Up, true},
		{tcell.KeyRune, 'a', types.Left, true},
		{tcell.KeyRune, 'j', types.Down, true},
		{tcell.KeyRune, 'l', types.Right, true},
		{tcell.KeyRune, 'x', types.None, false},
		{tcell.KeyEnter, 0, types.None, false},
	}

	for _, tt := range tests {
		got, ok := DirectionForKey(tcell.NewEventKey(tt.key, tt.r, tcell.ModNone))
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ok, ok)
	}
}

func TestKeysDriveControls(t *testing.T) {
	term, _ := newTestTerminal(t)

	var steered []types.Direction
	pauses, quits := 0, 0
	controls := Controls{
		Steer: func(d types.Direction) bool { steered = append(steered, d); return true },
		Pause: func() bool { pauses++; return pauses%2 == 1 },
		Quit:  func() { quits++ },
	}

	term.handleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), controls)
	term.handleKey(tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone), controls)
	term.handleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), controls)
	term.handleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), controls)
	term.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), controls)

	assert.Equal(t, []types.Direction{types.Up, types.Right}, steered)
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 2, quits)
}

func TestGameOverWaitsForEnter(t *testing.T) {
	term, _ := newTestTerminal(t)
	dead := game.State{Width: 3, Height: 3, Snake: []types.Point{{X: 0, Y: 0}}, Outcome: game.OutcomeWall}

	// Enter while alive is ignored.
	term.Render(game.State{Width: 3, Height: 3, Snake: []types.Point{{X: 1, Y: 1}}, Alive: true})
	term.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), Controls{})

	term.Render(dead)
	done := make(chan error, 1)
	go func() { done <- term.GameOver(context.Background(), dead) }()

	select {
	case <-done:
		t.Fatal("GameOver returned before Enter")
	case <-time.After(20 * time.Millisecond):
	}

	term.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), Controls{})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("GameOver did not return after Enter")
	}
}

func TestEnterBeforeGameOverCounts(t *testing.T) {
	term, _ := newTestTerminal(t)
	dead := game.State{Width: 3, Height: 3, Snake: []types.Point{{X: 0, Y: 0}}, Outcome: game.OutcomeSelf}

	// Enter lands between the final frame and the notifier call.
	term.Render(dead)
	term.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), Controls{})

	assert.NoError(t, term.GameOver(context.Background(), dead))

	// The next game starts without a leftover acknowledgement.
	term.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), Controls{})
	term.Render(game.State{Width: 3, Height: 3, Snake: []types.Point{{X: 1, Y: 1}}, Alive: true})
	assert.Empty(t, term.ack)
}

func TestGameOverCancelled(t *testing.T) {
	term, _ := newTestTerminal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, term.GameOver(ctx, game.State{}), context.Canceled)
}

func TestRunStopsOnCancel(t *testing.T) {
	term, _ := newTestTerminal(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- term.Run(ctx, Controls{}) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
