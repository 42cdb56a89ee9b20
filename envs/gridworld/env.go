package gridworld

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/zeu5/gridverse-planning/core"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrEpisodeOver   = errors.New("step after terminal state")
	ErrNotReset      = errors.New("environment not reset")
)

// MaxViewSize bounds the side of the egocentric observation window
const MaxViewSize = 7

type Action uint8

const (
	MoveForward Action = iota
	MoveBackward
	MoveLeft
	MoveRight
	TurnLeft
	TurnRight
)

var allActions = []Action{MoveForward, MoveBackward, MoveLeft, MoveRight, TurnLeft, TurnRight}

func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

func (a Action) String() string {
	switch a {
	case MoveForward:
		return "move_forward"
	case MoveBackward:
		return "move_backward"
	case MoveLeft:
		return "move_left"
	case MoveRight:
		return "move_right"
	case TurnLeft:
		return "turn_left"
	case TurnRight:
		return "turn_right"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// ParseAction is the inverse of Action.String
func ParseAction(s string) (Action, error) {
	for _, a := range allActions {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

type State struct {
	Agent       Position
	Orientation Orientation
	Steps       int
}

func (s State) String() string {
	return fmt.Sprintf("(%d, %d) facing %s, step %d", s.Agent.Row, s.Agent.Col, s.Orientation, s.Steps)
}

// Observation is the egocentric window in front of the agent. Row 0 is the
// farthest row, the agent sits in the middle of the last row facing up.
type Observation struct {
	Size  int
	Cells [MaxViewSize * MaxViewSize]Cell
}

func (o Observation) At(row, col int) Cell {
	return o.Cells[row*o.Size+col]
}

// Model is the generative model of a grid domain
type Model struct {
	grid *Grid
}

var _ core.Simulator[State, Action, Observation] = &Model{}

func NewModel(grid *Grid) *Model {
	return &Model{grid: grid}
}

func (m *Model) Grid() *Grid {
	return m.grid
}

func (m *Model) FunctionalReset(rng *rand.Rand) State {
	starts := m.grid.Starts
	orients := m.grid.orientations
	s := State{Agent: starts[0], Orientation: orients[0]}
	if len(starts) > 1 {
		s.Agent = starts[rng.Intn(len(starts))]
	}
	if len(orients) > 1 {
		s.Orientation = orients[rng.Intn(len(orients))]
	}
	return s
}

func (m *Model) FunctionalStep(s State, a Action, rng *rand.Rand) (State, float64, bool) {
	config := m.grid.config
	next := s
	next.Steps++

	slipped := config.SlipProbability > 0 && rng.Float64() < config.SlipProbability
	if !slipped {
		switch a {
		case TurnLeft:
			next.Orientation = s.Orientation.rotateLeft()
		case TurnRight:
			next.Orientation = s.Orientation.rotateRight()
		default:
			target := s.Agent.add(m.direction(s.Orientation, a))
			if m.grid.At(target) != Wall {
				next.Agent = target
			}
		}
	}

	reward := config.StepReward
	if m.grid.At(next.Agent) == Goal {
		return next, reward + config.GoalReward, true
	}
	if config.MaxSteps > 0 && next.Steps >= config.MaxSteps {
		return next, reward, true
	}
	return next, reward, false
}

func (m *Model) direction(o Orientation, a Action) Position {
	switch a {
	case MoveForward:
		return o.forward()
	case MoveBackward:
		return o.forward().scale(-1)
	case MoveRight:
		return o.right()
	case MoveLeft:
		return o.right().scale(-1)
	default:
		return Position{}
	}
}

func (m *Model) FunctionalObservation(s State, _ *rand.Rand) Observation {
	size := m.grid.config.ViewSize
	obs := Observation{Size: size}
	forward := s.Orientation.forward()
	right := s.Orientation.right()
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			p := s.Agent.
				add(forward.scale(size - 1 - i)).
				add(right.scale(j - size/2))
			obs.Cells[i*size+j] = m.grid.At(p)
		}
	}
	return obs
}

func (m *Model) IsTerminal(s State) bool {
	config := m.grid.config
	return m.grid.At(s.Agent) == Goal || (config.MaxSteps > 0 && s.Steps >= config.MaxSteps)
}

// Env is the stateful environment built on top of Model
type Env struct {
	*Model
	rng *rand.Rand

	state    State
	obs      Observation
	reset    bool
	terminal bool
}

var _ core.Environment[State, Action, Observation] = &Env{}

func NewEnv(config Config, seed uint64) (*Env, error) {
	grid, err := NewGrid(config)
	if err != nil {
		return nil, err
	}
	return &Env{
		Model: NewModel(grid),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

func (e *Env) Reset() (State, error) {
	e.state = e.FunctionalReset(e.rng)
	e.obs = e.FunctionalObservation(e.state, e.rng)
	e.reset = true
	e.terminal = false
	return e.state, nil
}

func (e *Env) Step(a Action) (float64, bool, error) {
	if !e.reset {
		return 0, false, ErrNotReset
	}
	if e.terminal {
		return 0, true, ErrEpisodeOver
	}
	if a > TurnRight {
		return 0, false, fmt.Errorf("%w: %d", ErrInvalidAction, uint8(a))
	}
	next, reward, terminal := e.FunctionalStep(e.state, a, e.rng)
	e.state = next
	e.obs = e.FunctionalObservation(next, e.rng)
	e.terminal = terminal
	return reward, terminal, nil
}

func (e *Env) State() State {
	return e.state
}

func (e *Env) Observation() Observation {
	return e.obs
}

func (e *Env) Actions() []Action {
	return Actions()
}

// Constructor creates a fresh environment per episode
type Constructor struct {
	Config Config
}

var _ core.EnvironmentConstructor[State, Action, Observation] = &Constructor{}

func NewConstructor(config Config) *Constructor {
	return &Constructor{Config: config}
}

func (c *Constructor) NewEnvironment(seed uint64) (core.Environment[State, Action, Observation], error) {
	env, err := NewEnv(c.Config, seed)
	if err != nil {
		return nil, err
	}
	return env, nil
}
