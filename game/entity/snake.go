package entity

import (
	"snake-grid/game/types"
)

// Snake is the body of the player, head first and tail last.
type Snake struct {
	Body []types.Point
}

func NewSnake(startPos types.Point) *Snake {
	return &Snake{
		Body: []types.Point{startPos},
	}
}

// Move prepends newHead; the body grows by one until RemoveTail is called.
func (s *Snake) Move(newHead types.Point) {
	s.Body = append(s.Body, types.Point{})
	copy(s.Body[1:], s.Body)
	s.Body[0] = newHead
}

func (s *Snake) RemoveTail() {
	if len(s.Body) > 1 {
		s.Body = s.Body[:len(s.Body)-1]
	}
}

func (s *Snake) GetHead() types.Point {
	return s.Body[0]
}

func (s *Snake) GetTail() types.Point {
	return s.Body[len(s.Body)-1]
}

func (s *Snake) Len() int {
	return len(s.Body)
}

// Occupies reports whether any segment, tail included, sits on p.
func (s *Snake) Occupies(p types.Point) bool {
	for _, part := range s.Body {
		if part == p {
			return true
		}
	}
	return false
}

// Copy returns a detached copy of the body.
func (s *Snake) Copy() []types.Point {
	body := make([]types.Point, len(s.Body))
	copy(body, s.Body)
	return body
}
