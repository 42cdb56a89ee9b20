package belief

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gosuri/uilive"
)

const progressBarWidth = 30

// ProgressObserver draws a live progress bar of accepted particles
type ProgressObserver struct {
	mu     sync.Mutex
	writer *uilive.Writer
	// redraw after this many rejected trials
	every int

	total    int
	accepted int
	attempts int
}

var _ Observer = &ProgressObserver{}

func NewProgressObserver(out io.Writer) *ProgressObserver {
	writer := uilive.New()
	writer.Out = out
	return &ProgressObserver{
		writer: writer,
		every:  100,
	}
}

func (p *ProgressObserver) Begin(particles int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = particles
	p.accepted = 0
	p.attempts = 0
	p.draw()
}

func (p *ProgressObserver) Trial(accepted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if accepted {
		p.accepted++
	}
	if accepted || p.attempts%p.every == 0 {
		p.draw()
	}
}

func (p *ProgressObserver) End(stats Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accepted = stats.Accepted
	p.attempts = stats.Attempts
	p.draw()
}

func (p *ProgressObserver) draw() {
	fmt.Fprintln(p.writer, progressLine(p.accepted, p.attempts, p.total))
	p.writer.Flush()
}

func progressLine(accepted, attempts, total int) string {
	filled := 0
	if total > 0 {
		filled = accepted * progressBarWidth / total
	}
	return fmt.Sprintf(
		"belief update [%s%s] %d/%d accepted (%d attempts)",
		strings.Repeat("#", filled),
		strings.Repeat(".", progressBarWidth-filled),
		accepted, total, attempts,
	)
}
