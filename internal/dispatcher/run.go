package dispatcher

import (
	"codeberg.org/snonux/ynlb/internal/log"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/worker"
)

// run is the state of one Run call. It is only touched by the run
// goroutine.
type run struct {
	d       *Dispatcher
	queue   []int
	logger  log.Logger
	summary *Summary
}

func (r *run) remaining() int {
	return r.summary.Total - r.summary.Completed - r.summary.Failed
}

// assignNext pops the next index for h, or leaves h idle when the queue
// is empty.
func (r *run) assignNext(h *worker.Handle) {
	for len(r.queue) > 0 {
		index := r.queue[0]
		r.queue = r.queue[1:]

		r.d.mu.Lock()
		r.d.items[index].Status = StatusTranslating
		source := r.d.items[index].Source
		r.d.mu.Unlock()

		r.d.observer.OnAssign(h.ID(), index, len(r.queue))
		err := h.Submit(protocol.Request{Text: source, Index: index})
		if err == nil {
			return
		}

		r.logger.Errorf("Could not submit item %d to worker %d: %s", index, h.ID(), err)
		r.fail(index, err)
	}

	r.d.observer.OnWorkerIdle(h.ID())
}

func (r *run) handle(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.Load:
		r.d.observer.OnLoad(e)
	case protocol.Update:
		// Bulk requests never stream.
	case protocol.Completed:
		if !r.inFlight(e.Index, e.Worker) {
			return
		}
		r.d.mu.Lock()
		r.d.items[e.Index].Status = StatusCompleted
		r.d.items[e.Index].Translation = e.Text
		r.d.mu.Unlock()
		r.summary.Completed++
		r.done(e.Index)
		r.assignNext(r.d.pool[e.Worker])
	case protocol.Failed:
		if !r.inFlight(e.Index, e.Worker) {
			return
		}
		r.fail(e.Index, e.Err)
		r.assignNext(r.d.pool[e.Worker])
	}
}

// inFlight guards against events for items this run is not waiting for.
func (r *run) inFlight(index, workerID int) bool {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	if workerID < 0 || workerID >= len(r.d.pool) || index < 0 || index >= len(r.d.items) {
		r.logger.Warningf("Ignoring event for item %d from worker %d", index, workerID)
		return false
	}
	if r.d.items[index].Status != StatusTranslating {
		r.logger.Warningf("Ignoring event for item %d in state %s", index, r.d.items[index].Status)
		return false
	}
	return true
}

func (r *run) fail(index int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	r.d.mu.Lock()
	r.d.items[index].Status = StatusFailed
	r.d.items[index].Err = msg
	r.d.mu.Unlock()
	r.summary.Failed++
	r.done(index)
}

func (r *run) done(index int) {
	r.d.mu.RLock()
	item := r.d.items[index]
	progress := r.d.progress()
	r.d.mu.RUnlock()

	r.d.observer.OnItemDone(index, item, progress)
}
