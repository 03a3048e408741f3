package dispatcher

import "codeberg.org/snonux/ynlb/internal/protocol"

// Observer is notified about run progress. Every call comes from the
// goroutine executing Run, so implementations need no locking of their
// own, but must not call back into the Dispatcher's mutating methods.
type Observer interface {
	OnRunStart(runID string, total, workers int)
	OnLoad(ev protocol.Load)
	// OnAssign is called when index is handed to worker; queued is the
	// number of items still waiting.
	OnAssign(worker, index, queued int)
	OnItemDone(index int, item Item, progress float64)
	OnWorkerIdle(worker int)
	OnRunEnd(summary Summary)
}

// NoopObserver ignores every notification
type NoopObserver struct{}

func (NoopObserver) OnRunStart(string, int, int)   {}
func (NoopObserver) OnLoad(protocol.Load)          {}
func (NoopObserver) OnAssign(int, int, int)        {}
func (NoopObserver) OnItemDone(int, Item, float64) {}
func (NoopObserver) OnWorkerIdle(int)              {}
func (NoopObserver) OnRunEnd(Summary)              {}
