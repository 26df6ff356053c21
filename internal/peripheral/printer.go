// Package peripheral abstracts the receipt printer and the cash drawer
// attached to it.
package peripheral

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Printer is a receipt printer. Content arrives pre-formatted to Width
// characters.
type Printer interface {
	PrintLine(ctx context.Context, text string) error
	// Kickout opens the cash drawer.
	Kickout(ctx context.Context) error
	// Offline returns "" when the printer is ready, otherwise a reason.
	Offline() string
	Width() int
}

// LogPrinter writes receipt lines and drawer kicks to a logger. It is the
// printer for registers without one attached.
type LogPrinter struct {
	log   *zap.Logger
	width int

	mu      sync.Mutex
	kicks   int
	printed []string
}

func NewLogPrinter(log *zap.Logger, width int) *LogPrinter {
	if width <= 0 {
		width = 40
	}
	return &LogPrinter{log: log, width: width}
}

func (p *LogPrinter) PrintLine(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = append(p.printed, text)
	p.log.Debug("print", zap.String("line", text))
	return nil
}

func (p *LogPrinter) Kickout(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicks++
	p.log.Info("cash drawer kicked out")
	return nil
}

func (p *LogPrinter) Offline() string { return "" }

func (p *LogPrinter) Width() int { return p.width }

// Kicks returns how many times the drawer has been opened.
func (p *LogPrinter) Kicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kicks
}

// Lines returns everything printed so far.
func (p *LogPrinter) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.printed...)
}
