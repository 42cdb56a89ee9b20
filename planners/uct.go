package planners

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/zeu5/gridverse-planning/core"
)

var ErrInvalidUCTConfig = errors.New("invalid uct configuration")

type UCTConfig struct {
	NumSimulations      int     `yaml:"num_sims" json:"num_sims"`
	ExplorationConstant float64 `yaml:"exploration_constant" json:"exploration_constant"`
	DiscountFactor      float64 `yaml:"discount_factor" json:"discount_factor"`
	SearchDepth         int     `yaml:"search_depth" json:"search_depth"`
	RolloutDepth        int     `yaml:"rollout_depth" json:"rollout_depth"`
	// Temperature > 0 samples the root action from a softmax over visit
	// counts, otherwise the most visited action is picked.
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

func DefaultUCTConfig() UCTConfig {
	return UCTConfig{
		NumSimulations:      128,
		ExplorationConstant: 1,
		DiscountFactor:      0.95,
		SearchDepth:         20,
		RolloutDepth:        20,
		Temperature:         0,
	}
}

func (c UCTConfig) Validate() error {
	if c.NumSimulations < 1 {
		return fmt.Errorf("%w: num_sims must be positive, got %d", ErrInvalidUCTConfig, c.NumSimulations)
	}
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("%w: discount_factor must be in (0, 1], got %f", ErrInvalidUCTConfig, c.DiscountFactor)
	}
	if c.ExplorationConstant < 0 {
		return fmt.Errorf("%w: exploration_constant must not be negative", ErrInvalidUCTConfig)
	}
	if c.SearchDepth < 1 {
		return fmt.Errorf("%w: search_depth must be positive, got %d", ErrInvalidUCTConfig, c.SearchDepth)
	}
	if c.RolloutDepth < 0 || c.Temperature < 0 {
		return fmt.Errorf("%w: rollout_depth and temperature must not be negative", ErrInvalidUCTConfig)
	}
	return nil
}

// UCT is Monte-Carlo tree search over action-observation histories. Every
// simulation starts from a fresh call to the state sampler, which makes it
// PO-UCT when given a belief and plain UCT when given the true state.
// The tree is rebuilt on every call to Plan.
type UCT[S any, A any, O comparable] struct {
	sim     core.Simulator[S, A, O]
	actions []A
	config  UCTConfig
	rand    *rand.Rand
}

var _ core.Planner[int, int] = &UCT[int, int, int]{}

func NewUCT[S any, A any, O comparable](sim core.Simulator[S, A, O], actions []A, config UCTConfig, rng *rand.Rand) (*UCT[S, A, O], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	return &UCT[S, A, O]{
		sim:     sim,
		actions: actions,
		config:  config,
		rand:    rng,
	}, nil
}

type actionNode[O comparable] struct {
	visits   int
	value    float64
	children map[O]*historyNode[O]
}

type historyNode[O comparable] struct {
	visits  int
	actions []*actionNode[O]
}

func newHistoryNode[O comparable](numActions int) *historyNode[O] {
	n := &historyNode[O]{actions: make([]*actionNode[O], numActions)}
	for i := range n.actions {
		n.actions[i] = &actionNode[O]{children: make(map[O]*historyNode[O])}
	}
	return n
}

func (u *UCT[S, A, O]) Plan(ctx context.Context, sample func() S) (A, core.Info, error) {
	root := newHistoryNode[O](len(u.actions))
	treeDepth := 0
	for i := 0; i < u.config.NumSimulations; i++ {
		if err := ctx.Err(); err != nil {
			var zero A
			return zero, nil, err
		}
		depth := 0
		u.simulate(root, sample(), 0, &depth)
		if depth > treeDepth {
			treeDepth = depth
		}
	}

	visits := make([]float64, len(u.actions))
	rootQ := make(map[string]float64, len(u.actions))
	rootVisits := make(map[string]int, len(u.actions))
	for i, a := range root.actions {
		visits[i] = float64(a.visits)
		key := fmt.Sprint(u.actions[i])
		rootQ[key] = a.value
		rootVisits[key] = a.visits
	}

	var chosen int
	if u.config.Temperature > 0 {
		i, ok := softmax(visits, u.config.Temperature, u.rand)
		if !ok {
			i = argmax(visits, u.rand)
		}
		chosen = i
	} else {
		chosen = argmax(visits, u.rand)
	}

	return u.actions[chosen], core.Info{
		"num_simulations": u.config.NumSimulations,
		"tree_depth":      treeDepth,
		"root_q":          rootQ,
		"root_visits":     rootVisits,
	}, nil
}

// simulate runs one trajectory from node and returns its discounted return
func (u *UCT[S, A, O]) simulate(node *historyNode[O], s S, depth int, maxDepth *int) float64 {
	if depth >= u.config.SearchDepth {
		return 0
	}
	if depth > *maxDepth {
		*maxDepth = depth
	}

	i := u.selectAction(node)
	next, reward, terminal := u.sim.FunctionalStep(s, u.actions[i], u.rand)

	ret := reward
	if !terminal {
		o := u.sim.FunctionalObservation(next, u.rand)
		an := node.actions[i]
		child, ok := an.children[o]
		if !ok {
			an.children[o] = newHistoryNode[O](len(u.actions))
			ret += u.config.DiscountFactor * u.rollout(next, depth+1)
		} else {
			ret += u.config.DiscountFactor * u.simulate(child, next, depth+1, maxDepth)
		}
	}

	node.visits++
	an := node.actions[i]
	an.visits++
	an.value += (ret - an.value) / float64(an.visits)
	return ret
}

// selectAction tries every action once, then maximizes the UCB score
func (u *UCT[S, A, O]) selectAction(node *historyNode[O]) int {
	scores := make([]float64, len(node.actions))
	logN := math.Log(float64(node.visits))
	for i, a := range node.actions {
		if a.visits == 0 {
			scores[i] = math.Inf(1)
			continue
		}
		scores[i] = a.value + u.config.ExplorationConstant*math.Sqrt(logN/float64(a.visits))
	}
	return argmax(scores, u.rand)
}

// rollout follows a uniformly random policy for at most RolloutDepth steps
func (u *UCT[S, A, O]) rollout(s S, depth int) float64 {
	ret := 0.0
	discount := 1.0
	for d := 0; d < u.config.RolloutDepth && depth+d < u.config.SearchDepth; d++ {
		a := u.actions[u.rand.Intn(len(u.actions))]
		next, reward, terminal := u.sim.FunctionalStep(s, a, u.rand)
		ret += discount * reward
		if terminal {
			break
		}
		discount *= u.config.DiscountFactor
		s = next
	}
	return ret
}

type UCTConstructor[S any, A any, O comparable] struct {
	Config UCTConfig
}

var _ core.PlannerConstructor[int, int, int] = &UCTConstructor[int, int, int]{}

func NewUCTConstructor[S any, A any, O comparable](config UCTConfig) *UCTConstructor[S, A, O] {
	return &UCTConstructor[S, A, O]{Config: config}
}

func (c *UCTConstructor[S, A, O]) NewPlanner(env core.Environment[S, A, O], seed uint64) (core.Planner[S, A], error) {
	u, err := NewUCT[S, A, O](env, env.Actions(), c.Config, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return u, nil
}
