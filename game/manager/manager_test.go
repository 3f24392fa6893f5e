package manager

import (
	"testing"
	"time"

	"snake-grid/game/entity"
	"snake-grid/game/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestCheckCollision(t *testing.T) {
	cm := NewCollisionManager(types.Grid{Width: 4, Height: 3})
	snake := &entity.Snake{Body: []types.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}}}

	assert.Equal(t, WallCollision, cm.CheckCollision(types.Point{X: -1, Y: 0}, snake))
	assert.Equal(t, WallCollision, cm.CheckCollision(types.Point{X: 4, Y: 0}, snake))
	assert.Equal(t, WallCollision, cm.CheckCollision(types.Point{X: 0, Y: 3}, snake))
	assert.Equal(t, SelfCollision, cm.CheckCollision(types.Point{X: 2, Y: 1}, snake))
	assert.Equal(t, SelfCollision, cm.CheckCollision(types.Point{X: 3, Y: 1}, snake), "tail counts")
	assert.Equal(t, NoCollision, cm.CheckCollision(types.Point{X: 1, Y: 0}, snake))
}

func TestGenerateFoodAvoidsSnake(t *testing.T) {
	grid := types.Grid{Width: 3, Height: 2}
	cm := NewCollisionManager(grid)
	fm := NewFoodManager(grid, cm, rand.New(rand.NewSource(3)))
	snake := &entity.Snake{Body: []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}}}

	for i := 0; i < 100; i++ {
		food, ok := fm.GenerateFood(snake)
		require.True(t, ok)
		assert.Equal(t, types.Point{X: 0, Y: 1}, food)
	}
}

func TestGenerateFoodFullBoard(t *testing.T) {
	grid := types.Grid{Width: 2, Height: 1}
	fm := NewFoodManager(grid, NewCollisionManager(grid), rand.New(rand.NewSource(1)))
	snake := &entity.Snake{Body: []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}}

	_, ok := fm.GenerateFood(snake)
	assert.False(t, ok)
}

func TestGenerateFoodCoversFreeCells(t *testing.T) {
	grid := types.Grid{Width: 3, Height: 3}
	fm := NewFoodManager(grid, NewCollisionManager(grid), rand.New(rand.NewSource(11)))
	snake := entity.NewSnake(grid.Center())

	seen := make(map[types.Point]bool)
	for i := 0; i < 2000; i++ {
		food, ok := fm.GenerateFood(snake)
		require.True(t, ok)
		seen[food] = true
	}
	assert.Len(t, seen, 8)
	assert.False(t, seen[grid.Center()])
}

func TestStatsManager(t *testing.T) {
	sm := NewStatsManager(2)

	assert.Equal(t, GameStats{}, sm.GetStats())

	sm.AddGame(GameRecord{ID: "a", Score: 4})
	sm.AddGame(GameRecord{ID: "b", Score: 10})
	stats := sm.AddGame(GameRecord{ID: "c", Score: 1})

	assert.Equal(t, 3, stats.GamesPlayed)
	assert.Equal(t, 10, stats.HighScore)
	assert.Equal(t, 1, stats.LastScore)
	assert.InDelta(t, 5.0, stats.AverageScore, 1e-9)

	history := sm.GetScoreHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].ID)
	assert.Equal(t, "c", history[1].ID)
	// Median covers the retained games only.
	assert.InDelta(t, 5.5, stats.MedianScore, 1e-9)
}

func TestStatsDurations(t *testing.T) {
	sm := NewStatsManager(10)
	sm.AddGame(GameRecord{Score: 3, Duration: 2 * time.Second})
	sm.AddGame(GameRecord{Score: 9, Duration: 6 * time.Second})
	stats := sm.AddGame(GameRecord{Score: 5, Duration: time.Second})

	assert.Equal(t, 3*time.Second, stats.AverageDuration)
	assert.Equal(t, 6*time.Second, stats.MaxDuration)
	assert.InDelta(t, 5.0, stats.MedianScore, 1e-9)
}
