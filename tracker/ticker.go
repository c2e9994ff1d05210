package tracker

import "time"

// tickLoop is the handle of one trip's per-second ticking goroutine.
type tickLoop struct {
	epoch uint64
	stop  chan struct{}
	done  chan struct{}
}

func newTickLoop(epoch uint64) *tickLoop {
	return &tickLoop{
		epoch: epoch,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// halt signals the loop and waits for it to exit.
// It must not be called with the tracker lock held.
func (tk *tickLoop) halt() {
	if tk == nil {
		return
	}
	close(tk.stop)
	<-tk.done
}

func (t *Tracker) runTicker(tk *tickLoop) {
	defer close(tk.done)
	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-tk.stop:
			return
		case <-ticker.C:
			t.tick(tk.epoch)
		}
	}
}

// tick recomputes the clock-driven fields, so elapsed time and average speed
// advance even when no fixes arrive.
// A tick from a stale epoch (the trip was stopped or reset meanwhile) does nothing.
func (t *Tracker) tick(epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch || !t.working.Status.Active() {
		return
	}
	t.refreshLocked(t.now())
	t.publishLocked()
}
