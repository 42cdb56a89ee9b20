package gridworld

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidLayout = errors.New("invalid layout")

type Cell uint8

const (
	Floor Cell = iota
	Wall
	Goal
)

func (c Cell) String() string {
	switch c {
	case Floor:
		return "."
	case Wall:
		return "#"
	case Goal:
		return "G"
	default:
		return "?"
	}
}

type Position struct {
	Row int
	Col int
}

func (p Position) add(d Position) Position {
	return Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

func (p Position) scale(k int) Position {
	return Position{Row: p.Row * k, Col: p.Col * k}
}

// Config describes a domain. Layout characters: '#' wall, '.' floor,
// 'G' goal and 'S' a possible start position (a floor cell).
type Config struct {
	Layout          []string `yaml:"layout" json:"layout"`
	Orientation     string   `yaml:"orientation" json:"orientation"`
	SlipProbability float64  `yaml:"slip_probability" json:"slip_probability"`
	ViewSize        int      `yaml:"view_size" json:"view_size"`
	MaxSteps        int      `yaml:"max_steps" json:"max_steps"`
	GoalReward      float64  `yaml:"goal_reward" json:"goal_reward"`
	StepReward      float64  `yaml:"step_reward" json:"step_reward"`
}

func DefaultConfig() Config {
	return Config{
		Layout: []string{
			"S....",
			".....",
			".....",
			".....",
			"....G",
		},
		Orientation:     "random",
		SlipProbability: 0,
		ViewSize:        3,
		MaxSteps:        50,
		GoalReward:      1,
		StepReward:      0,
	}
}

// LoadConfig reads a domain yaml file on top of the default configuration
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading domain file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("parsing domain file %s: %w", path, err)
	}
	if _, err := NewGrid(config); err != nil {
		return config, err
	}
	return config, nil
}

// Grid is the static part of a domain
type Grid struct {
	Rows   int
	Cols   int
	cells  [][]Cell
	Starts []Position

	orientations []Orientation
	config       Config
}

func NewGrid(config Config) (*Grid, error) {
	if len(config.Layout) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidLayout)
	}
	if config.ViewSize < 1 || config.ViewSize > MaxViewSize || config.ViewSize%2 == 0 {
		return nil, fmt.Errorf("%w: view size must be odd and between 1 and %d, got %d", ErrInvalidLayout, MaxViewSize, config.ViewSize)
	}
	if config.SlipProbability < 0 || config.SlipProbability >= 1 {
		return nil, fmt.Errorf("%w: slip probability must be in [0, 1), got %f", ErrInvalidLayout, config.SlipProbability)
	}
	orientations, err := parseOrientation(config.Orientation)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		Rows:         len(config.Layout),
		Cols:         len(config.Layout[0]),
		cells:        make([][]Cell, len(config.Layout)),
		Starts:       make([]Position, 0),
		orientations: orientations,
		config:       config,
	}
	for r, line := range config.Layout {
		if len(line) != g.Cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidLayout, r, len(line), g.Cols)
		}
		g.cells[r] = make([]Cell, g.Cols)
		for c, ch := range line {
			switch ch {
			case '.':
				g.cells[r][c] = Floor
			case '#':
				g.cells[r][c] = Wall
			case 'G':
				g.cells[r][c] = Goal
			case 'S':
				g.cells[r][c] = Floor
				g.Starts = append(g.Starts, Position{Row: r, Col: c})
			default:
				return nil, fmt.Errorf("%w: unknown cell %q at (%d, %d)", ErrInvalidLayout, ch, r, c)
			}
		}
	}
	if len(g.Starts) == 0 {
		return nil, fmt.Errorf("%w: no start position", ErrInvalidLayout)
	}
	return g, nil
}

func (g *Grid) Config() Config {
	return g.config
}

func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.Rows && p.Col >= 0 && p.Col < g.Cols
}

// At returns the cell at p, positions outside the grid are walls
func (g *Grid) At(p Position) Cell {
	if !g.InBounds(p) {
		return Wall
	}
	return g.cells[p.Row][p.Col]
}

func (g *Grid) String() string {
	var b strings.Builder
	for _, row := range g.cells {
		for _, c := range row {
			b.WriteString(c.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type Orientation uint8

const (
	North Orientation = iota
	East
	South
	West
)

var orientations = []Orientation{North, East, South, West}

func (o Orientation) String() string {
	switch o {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

func (o Orientation) forward() Position {
	switch o {
	case North:
		return Position{Row: -1}
	case East:
		return Position{Col: 1}
	case South:
		return Position{Row: 1}
	default:
		return Position{Col: -1}
	}
}

func (o Orientation) right() Position {
	return o.rotateRight().forward()
}

func (o Orientation) rotateRight() Orientation {
	return (o + 1) % 4
}

func (o Orientation) rotateLeft() Orientation {
	return (o + 3) % 4
}

func parseOrientation(s string) ([]Orientation, error) {
	if s == "" || s == "random" {
		return orientations, nil
	}
	for _, o := range orientations {
		if o.String() == s {
			return []Orientation{o}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown orientation %q", ErrInvalidLayout, s)
}
