package ai

import (
	"math"
	"sync"

	"snake-grid/game"
	"snake-grid/game/types"

	"golang.org/x/exp/rand"
)

type Action int

const (
	Up Action = iota
	Right
	Down
	Left
)

// Direction maps an action onto the engine's direction type.
func (a Action) Direction() types.Direction {
	return types.Directions[a]
}

func actionFor(d types.Direction) Action {
	for i, dir := range types.Directions {
		if dir == d {
			return Action(i)
		}
	}
	return Right
}

// State is what the pilot sees of a snapshot.
type State struct {
	RelativeFoodDir [2]int  // Food direction relative to head (x, y)
	DangerDirs      [4]bool // Danger in each direction (up, right, down, left)
	Heading         Action
}

// ObserveState reduces a snapshot to the learning state.
func ObserveState(s game.State) State {
	head := s.Head()
	grid := s.Grid()

	body := make(map[types.Point]bool, len(s.Snake))
	for _, p := range s.Snake {
		body[p] = true
	}

	var dangers [4]bool
	for i, dir := range types.Directions {
		next := head.Add(dir.Delta())
		dangers[i] = !grid.Contains(next) || body[next]
	}

	return State{
		RelativeFoodDir: [2]int{sign(s.Food.X - head.X), sign(s.Food.Y - head.Y)},
		DangerDirs:      dangers,
		Heading:         actionFor(s.Direction),
	}
}

type QTable map[State][4]float64

type QLearning struct {
	mutex        sync.Mutex
	QTable       QTable
	LearningRate float64
	Discount     float64
	Epsilon      float64
	TotalReward  float64
	GamesPlayed  int
	rng          *rand.Rand
}

func NewQLearning(rng *rand.Rand) *QLearning {
	return &QLearning{
		QTable:       make(QTable),
		LearningRate: 0.1,
		Discount:     0.9,
		Epsilon:      0.1,
		rng:          rng,
	}
}

// allowedActions excludes the reversal, which the engine would ignore anyway.
func allowedActions(s State) []Action {
	reverse := actionFor(s.Heading.Direction().Opposite())
	actions := make([]Action, 0, 3)
	for a := Up; a <= Left; a++ {
		if a != reverse {
			actions = append(actions, a)
		}
	}
	return actions
}

// GetAction picks an action epsilon-greedily.
func (q *QLearning) GetAction(state State) Action {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	actions := allowedActions(state)
	if q.rng.Float64() < q.Epsilon {
		return actions[q.rng.Intn(len(actions))]
	}
	return q.bestActionLocked(state, actions)
}

func (q *QLearning) bestActionLocked(state State, actions []Action) Action {
	values := q.QTable[state]
	best := actions[0]
	bestValue := math.Inf(-1)
	for _, a := range actions {
		if values[a] > bestValue {
			bestValue = values[a]
			best = a
		}
	}
	return best
}

// Update applies one Q-learning step. Terminal transitions have no future
// value.
func (q *QLearning) Update(state State, action Action, reward float64, nextState State, done bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	target := reward
	if !done {
		maxNextQ := math.Inf(-1)
		next := q.QTable[nextState]
		for _, a := range allowedActions(nextState) {
			if next[a] > maxNextQ {
				maxNextQ = next[a]
			}
		}
		target += q.Discount * maxNextQ
	}

	values := q.QTable[state]
	values[action] += q.LearningRate * (target - values[action])
	q.QTable[state] = values
	q.TotalReward += reward
}

// Value returns the learned value of action in state.
func (q *QLearning) Value(state State, action Action) float64 {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.QTable[state][action]
}

// States is the number of distinct states seen so far.
func (q *QLearning) States() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.QTable)
}

func (q *QLearning) EndGame() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.GamesPlayed++
}

// Reward scores the transition between two consecutive snapshots of one game.
func Reward(prev, next game.State) float64 {
	switch {
	case !next.Alive && next.Outcome != game.OutcomeBoardFull:
		return -1.0
	case next.Score() > prev.Score():
		return 1.0
	}
	before := manhattan(prev.Head(), prev.Food)
	after := manhattan(next.Head(), next.Food)
	if after < before {
		return 0.5
	}
	return -0.3
}

func manhattan(a, b types.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func sign(x int) int {
	if x > 0 {
		return 1
	} else if x < 0 {
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
