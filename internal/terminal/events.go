package terminal

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"codeberg.org/snonux/ynlb/internal/dispatcher"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/translation"
)

// EventWriter prints the events of a single translation. Partial updates
// are streamed on a terminal and skipped otherwise.
type EventWriter struct {
	out     io.Writer
	tty     bool
	printed string
}

// NewEventWriter creates a writer printing to out
func NewEventWriter(out io.Writer) *EventWriter {
	return &EventWriter{out: out, tty: IsTerminal(out)}
}

// Handle prints one event
func (w *EventWriter) Handle(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.Load:
		w.load(e)
	case protocol.Update:
		if w.tty {
			w.stream(e.Text)
		}
	case protocol.Completed:
		if w.tty && w.printed != "" {
			w.finish(e.Text)
		} else {
			fmt.Fprintln(w.out, e.Text)
		}
		w.printed = ""
	case protocol.Failed:
		if w.printed != "" {
			fmt.Fprintln(w.out)
		}
		w.printed = ""
	}
}

func (w *EventWriter) load(e protocol.Load) {
	if !w.tty {
		return
	}
	switch e.State {
	case translation.LoadInitiate:
		fmt.Fprintf(w.out, "%s\n", colorize("Loading "+e.File+"...", ansiYellow, true))
	case translation.LoadProgress:
		fmt.Fprintf(w.out, "\rLoading %s %3.0f%%", e.File, e.Progress)
	case translation.LoadDone:
		fmt.Fprintf(w.out, "\r%s\n", colorize("Loaded "+e.File, ansiGreen, true))
	}
}

// finish completes the streamed line. The final text is normalised, so a
// stream that only differs from it by surrounding whitespace or
// composition is already on screen.
func (w *EventWriter) finish(final string) {
	if translation.Normalize(w.printed) != final {
		w.stream(final)
	}
	if !strings.HasSuffix(strings.TrimRight(w.printed, " \t"), "\n") {
		fmt.Fprintln(w.out)
	}
}

// stream prints the part of partial not printed yet. A partial that does
// not extend the printed text starts a new line.
func (w *EventWriter) stream(partial string) {
	if strings.HasPrefix(partial, w.printed) {
		fmt.Fprint(w.out, partial[len(w.printed):])
	} else {
		fmt.Fprint(w.out, "\n"+partial)
	}
	w.printed = partial
}

// JSONObserver writes bulk run events as NDJSON protocol events
type JSONObserver struct {
	dispatcher.NoopObserver

	enc      *protocol.Encoder
	assigned map[int]int // item index -> worker
	err      error
}

// NewJSONObserver creates an observer encoding to out
func NewJSONObserver(out io.Writer) *JSONObserver {
	return &JSONObserver{enc: protocol.NewEncoder(out), assigned: map[int]int{}}
}

func (o *JSONObserver) OnLoad(ev protocol.Load) {
	o.encode(ev)
}

func (o *JSONObserver) OnAssign(worker, index, _ int) {
	o.assigned[index] = worker
}

func (o *JSONObserver) OnItemDone(index int, item dispatcher.Item, _ float64) {
	worker := o.assigned[index]
	delete(o.assigned, index)

	if item.Status == dispatcher.StatusFailed {
		o.encode(protocol.Failed{Worker: worker, Index: index, Err: errors.New(item.Err)})
		return
	}
	o.encode(protocol.Completed{Worker: worker, Index: index, Text: item.Translation})
}

// Err returns the first encoding error
func (o *JSONObserver) Err() error { return o.err }

func (o *JSONObserver) encode(ev protocol.Event) {
	if err := o.enc.Encode(ev); err != nil && o.err == nil {
		o.err = err
	}
}

// Observers fans notifications out to several observers in order
type Observers []dispatcher.Observer

func (obs Observers) OnRunStart(runID string, total, workers int) {
	for _, o := range obs {
		o.OnRunStart(runID, total, workers)
	}
}

func (obs Observers) OnLoad(ev protocol.Load) {
	for _, o := range obs {
		o.OnLoad(ev)
	}
}

func (obs Observers) OnAssign(worker, index, queued int) {
	for _, o := range obs {
		o.OnAssign(worker, index, queued)
	}
}

func (obs Observers) OnItemDone(index int, item dispatcher.Item, progress float64) {
	for _, o := range obs {
		o.OnItemDone(index, item, progress)
	}
}

func (obs Observers) OnWorkerIdle(worker int) {
	for _, o := range obs {
		o.OnWorkerIdle(worker)
	}
}

func (obs Observers) OnRunEnd(s dispatcher.Summary) {
	for _, o := range obs {
		o.OnRunEnd(s)
	}
}
