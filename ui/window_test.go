package ui

import (
	"context"
	"testing"
	"time"

	"snake-grid/config"
	"snake-grid/game"
	"snake-grid/game/types"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionForKey(t *testing.T) {
	d, ok := DirectionForKey(rl.KeyUp)
	assert.True(t, ok)
	assert.Equal(t, types.Up, d)

	d, ok = DirectionForKey(rl.KeyA)
	assert.True(t, ok)
	assert.Equal(t, types.Left, d)

	_, ok = DirectionForKey(rl.KeySpace)
	assert.False(t, ok)
}

func TestGridFromWindowSize(t *testing.T) {
	w := &Window{cfg: config.Default(), width: 400, height: 300 + hudHeight}
	gw, gh := w.Grid()
	assert.Equal(t, 20, gw)
	assert.Equal(t, 15, gh)
}

func TestHeadTrianglePointsAhead(t *testing.T) {
	x, y := cellRect(types.Point{X: 2, Y: 1}, 10)
	assert.Equal(t, int32(20), x)
	assert.Equal(t, int32(hudHeight+10), y)

	tip := map[types.Direction]rl.Vector2{
		types.Up:    {X: 25, Y: float32(y)},
		types.Down:  {X: 25, Y: float32(y + 10)},
		types.Left:  {X: 20, Y: float32(y + 5)},
		types.Right: {X: 30, Y: float32(y + 5)},
	}
	for d, want := range tip {
		tri := headTriangle(x, y, 10, d)
		assert.Equal(t, want, tri[0], d.String())

		// Same winding for every direction.
		cross := (tri[1].X-tri[0].X)*(tri[2].Y-tri[0].Y) - (tri[1].Y-tri[0].Y)*(tri[2].X-tri[0].X)
		assert.Less(t, cross, float32(0), d.String())
	}
}

func TestRenderKeepsLatest(t *testing.T) {
	w := &Window{cfg: config.Default(), ack: make(chan struct{}, 1)}
	w.Render(game.State{Tick: 1, Alive: true})
	w.Render(game.State{Tick: 2, Alive: true})
	assert.True(t, w.hasState)
	assert.Equal(t, 2, w.latest.Tick)
}

func TestEnterBeforeGameOverCounts(t *testing.T) {
	w := &Window{cfg: config.Default(), ack: make(chan struct{}, 1)}
	dead := game.State{Outcome: game.OutcomeWall}
	w.Render(dead)
	// Enter lands between the final frame and the notifier call.
	w.ack <- struct{}{}

	assert.NoError(t, w.GameOver(context.Background(), dead))
}

func TestGameOverAck(t *testing.T) {
	w := &Window{cfg: config.Default(), ack: make(chan struct{}, 1)}
	// An acknowledgement left from the previous game is dropped once a
	// live frame arrives.
	w.ack <- struct{}{}
	w.Render(game.State{Alive: true})
	w.Render(game.State{Outcome: game.OutcomeSelf})

	done := make(chan error, 1)
	go func() { done <- w.GameOver(context.Background(), game.State{}) }()

	select {
	case <-done:
		t.Fatal("GameOver returned on stale ack")
	case <-time.After(20 * time.Millisecond):
	}

	w.ack <- struct{}{}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("GameOver did not return")
	}
}

func TestScoreLine(t *testing.T) {
	assert.Nil(t, scoreLine([]int{3}, 0, 0, 100, 20))

	points := scoreLine([]int{0, 5, 10}, 10, 0, 100, 20)
	require.Len(t, points, 3)
	assert.Equal(t, rl.Vector2{X: 10, Y: 20}, points[0])
	assert.Equal(t, rl.Vector2{X: 60, Y: 10}, points[1])
	assert.Equal(t, rl.Vector2{X: 110, Y: 0}, points[2])

	long := make([]int, graphPoints+50)
	assert.Len(t, scoreLine(long, 0, 0, 100, 20), graphPoints)
}
