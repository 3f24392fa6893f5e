package game

import (
	"fmt"
	"time"

	"snake-grid/game/types"
)

// Outcome is the result of the most recent transition.
type Outcome int

const (
	// OutcomeNone marks a freshly reset game.
	OutcomeNone Outcome = iota
	OutcomeTranslate
	OutcomeGrow
	OutcomeWall
	OutcomeSelf
	// OutcomeBoardFull is a growth that left no free cell for food.
	OutcomeBoardFull
)

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool {
	return o == OutcomeWall || o == OutcomeSelf || o == OutcomeBoardFull
}

func (o Outcome) String() string {
	switch o {
	case OutcomeTranslate:
		return "translate"
	case OutcomeGrow:
		return "grow"
	case OutcomeWall:
		return "wall"
	case OutcomeSelf:
		return "self"
	case OutcomeBoardFull:
		return "board-full"
	default:
		return "none"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomeNone; c <= OutcomeBoardFull; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// State is an immutable snapshot of the engine handed to renderers.
type State struct {
	ID        string          `json:"id"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Snake     []types.Point   `json:"snake"`
	Direction types.Direction `json:"direction"`
	Food      types.Point     `json:"food"`
	HasFood   bool            `json:"hasFood"`
	Alive     bool            `json:"alive"`
	Outcome   Outcome         `json:"outcome"`
	Tick      int             `json:"tick"`
	StartTime time.Time       `json:"startTime"`
	// EndTime is zero while the game is running.
	EndTime time.Time `json:"endTime"`
}

// Head returns the first body cell.
func (s State) Head() types.Point {
	if len(s.Snake) == 0 {
		return types.Point{}
	}
	return s.Snake[0]
}

// Score is the number of food cells eaten this game.
func (s State) Score() int {
	if len(s.Snake) == 0 {
		return 0
	}
	return len(s.Snake) - 1
}

// Duration is how long the game ran. It is zero until the game ends.
func (s State) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

func (s State) Grid() types.Grid {
	return types.Grid{Width: s.Width, Height: s.Height}
}
