package util

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TerminalPrinter periodically redraws one line per ParallelOutput,
// so concurrent workers can report progress without interleaving.
type TerminalPrinter struct {
	mu              *sync.Mutex
	parallelOutputs []*ParallelOutput
	writers         []io.Writer
	frequency       time.Duration
	doneCh          chan struct{}
	stopOnce        sync.Once

	writer *uilive.Writer
}

func NewTerminalPrinter(out io.Writer, frequency time.Duration) *TerminalPrinter {
	writer := uilive.New()
	writer.Out = out
	return &TerminalPrinter{
		mu:              new(sync.Mutex),
		parallelOutputs: make([]*ParallelOutput, 0),
		writers:         make([]io.Writer, 0),
		frequency:       frequency,
		doneCh:          make(chan struct{}),
		writer:          writer,
	}
}

func (p *TerminalPrinter) NewOutput() *ParallelOutput {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := NewParallelOutput()
	p.parallelOutputs = append(p.parallelOutputs, out)
	p.writers = append(p.writers, p.writer.Newline())
	return out
}

func (p *TerminalPrinter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.doneCh:
				p.print()
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

func (p *TerminalPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneCh)
	})
}

func (p *TerminalPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, output := range p.parallelOutputs {
		fmt.Fprint(p.writers[i], output.Get()+"\n")
	}
	p.writer.Flush()
}

// ParallelOutput holds the latest status line of one worker
type ParallelOutput struct {
	mu        *sync.Mutex
	printable string
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{
		mu:        new(sync.Mutex),
		printable: "",
	}
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// Try to set the output string (non-blocking)
func (p *ParallelOutput) TrySet(s string) bool {
	if p.mu.TryLock() {
		defer p.mu.Unlock()
		p.printable = s
		return true
	}
	return false
}

// Get the output string (blocking)
func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
