package gridworld

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Renderer prints states and observations of a grid domain
type Renderer struct {
	out  io.Writer
	au   aurora.Aurora
	grid *Grid
}

func NewRenderer(out io.Writer, grid *Grid, colors bool) *Renderer {
	return &Renderer{
		out:  out,
		au:   aurora.NewAurora(colors),
		grid: grid,
	}
}

func (r *Renderer) cell(c Cell) string {
	switch c {
	case Wall:
		return r.au.Gray(12, c.String()).String()
	case Goal:
		return r.au.Green(c.String()).Bold().String()
	default:
		return r.au.Faint(c.String()).String()
	}
}

func (r *Renderer) agent(o Orientation) string {
	arrow := map[Orientation]string{North: "^", East: ">", South: "v", West: "<"}[o]
	return r.au.Yellow(arrow).Bold().String()
}

func (r *Renderer) State(s State) string {
	var b strings.Builder
	for row := 0; row < r.grid.Rows; row++ {
		for col := 0; col < r.grid.Cols; col++ {
			p := Position{Row: row, Col: col}
			if p == s.Agent {
				b.WriteString(r.agent(s.Orientation))
			} else {
				b.WriteString(r.cell(r.grid.At(p)))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Observation draws the window with the agent on the bottom row facing up
func (r *Renderer) Observation(o Observation) string {
	var b strings.Builder
	for row := 0; row < o.Size; row++ {
		for col := 0; col < o.Size; col++ {
			if row == o.Size-1 && col == o.Size/2 {
				b.WriteString(r.agent(North))
			} else {
				b.WriteString(r.cell(o.At(row, col)))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Step prints the state, the observation and a status line for one timestep
func (r *Renderer) Step(s State, o Observation, status string) error {
	_, err := fmt.Fprintf(r.out, "%s\n%s\n%s\n", r.State(s), r.Observation(o), r.au.Cyan(status))
	return err
}
