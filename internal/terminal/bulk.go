package terminal

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"codeberg.org/snonux/ynlb/internal/dispatcher"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/translation"
)

// BulkPrinter reports bulk run progress. On a terminal it draws a
// progress bar, otherwise it prints one line per finished item.
type BulkPrinter struct {
	dispatcher.NoopObserver

	out   io.Writer
	tty   bool
	bar   *progressbar.ProgressBar
	total int
	done  int
}

// NewBulkPrinter creates a printer writing to out
func NewBulkPrinter(out io.Writer) *BulkPrinter {
	return &BulkPrinter{out: out, tty: IsTerminal(out)}
}

func (p *BulkPrinter) OnRunStart(runID string, total, workers int) {
	p.total = total
	p.done = 0
	fmt.Fprintf(p.out, "Translating %d lines with %d worker(s) (run %s)\n", total, workers, runID)

	if p.tty {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Loading model"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
}

func (p *BulkPrinter) OnLoad(ev protocol.Load) {
	if p.bar != nil {
		switch ev.State {
		case translation.LoadReady:
			p.bar.Describe("Translating")
		default:
			p.bar.Describe(fmt.Sprintf("Loading %s %3.0f%%", ev.File, ev.Progress))
		}
		return
	}
	if ev.State == translation.LoadReady {
		fmt.Fprintf(p.out, "Worker %d ready\n", ev.Worker)
	}
}

func (p *BulkPrinter) OnItemDone(index int, item dispatcher.Item, progress float64) {
	p.done++
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}

	if item.Status == dispatcher.StatusFailed {
		fmt.Fprintf(p.out, "[%d/%d] ✗ %s: %s\n", p.done, p.total, truncate(item.Source, 40), item.Err)
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] ✓ %s → %s (%.0f%%)\n", p.done, p.total,
		truncate(item.Source, 40), truncate(item.Translation, 40), progress)
}

func (p *BulkPrinter) OnRunEnd(s dispatcher.Summary) {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}

	fmt.Fprintf(p.out, "\n=== Bulk Translation Summary ===\n")
	fmt.Fprintf(p.out, "Total lines: %d\n", s.Total)
	fmt.Fprintf(p.out, "Translated: %s\n", colorize(fmt.Sprint(s.Completed), ansiGreen, p.tty))
	if s.Failed > 0 {
		fmt.Fprintf(p.out, "Failed: %s\n", colorize(fmt.Sprint(s.Failed), ansiRed, p.tty))
	}
	fmt.Fprintf(p.out, "Workers: %d\n", s.Workers)
	fmt.Fprintf(p.out, "Duration: %s\n", s.Duration.Round(time.Millisecond))
}
