package ai

import (
	"sync"

	"snake-grid/game"
	"snake-grid/game/types"

	log "github.com/sirupsen/logrus"
)

// Pilot is an input source that learns while it plays. Attach it as a render
// sink: each snapshot rewards the previous move and picks the next one.
type Pilot struct {
	agent *QLearning
	steer func(types.Direction) bool

	mutex      sync.Mutex
	prev       game.State
	lastState  State
	lastAction Action
	hasLast    bool
}

func NewPilot(agent *QLearning, steer func(types.Direction) bool) *Pilot {
	return &Pilot{
		agent: agent,
		steer: steer,
	}
}

func (p *Pilot) Render(s game.State) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.hasLast && s.ID == p.prev.ID && s.Tick > p.prev.Tick {
		p.agent.Update(p.lastState, p.lastAction, Reward(p.prev, s), ObserveState(s), !s.Alive)
	}

	if !s.Alive {
		if p.hasLast {
			p.agent.EndGame()
			log.WithFields(log.Fields{
				"game":   s.ID,
				"score":  s.Score(),
				"states": p.agent.States(),
			}).Debug("pilot finished game")
		}
		p.hasLast = false
		return
	}

	obs := ObserveState(s)
	action := p.agent.GetAction(obs)
	p.steer(action.Direction())

	p.prev = s
	p.lastState = obs
	p.lastAction = action
	p.hasLast = true
}
