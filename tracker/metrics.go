package tracker

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/cleanspeed/common"
)

func init() {
	// The metrics package is a no-op without this global switch.
	metrics.Enabled = true
}

// ingestMeter counts Ingest outcomes in a private registry.
type ingestMeter struct {
	logger   *slog.Logger
	started  time.Time
	reg      metrics.Registry
	counts   [len(outcomeNames)]metrics.Counter
	accepted metrics.Meter
}

func newIngestMeter(logger *slog.Logger) *ingestMeter {
	m := &ingestMeter{
		logger:   logger,
		started:  time.Now(),
		reg:      metrics.NewRegistry(),
		accepted: metrics.NewMeter(),
	}
	for o := range m.counts {
		m.counts[o] = metrics.NewCounter()
		if err := m.reg.Register("fix."+Outcome(o).String()+".count", m.counts[o]); err != nil {
			panic(err)
		}
	}
	if err := m.reg.Register("fix.accepted.meter", m.accepted); err != nil {
		panic(err)
	}
	return m
}

func (m *ingestMeter) mark(o Outcome) {
	if o < 0 || int(o) >= len(m.counts) {
		return
	}
	m.counts[o].Inc(1)
	if o == Accepted {
		m.accepted.Mark(1)
	}
}

func (m *ingestMeter) count(o Outcome) int64 {
	return m.counts[o].Snapshot().Count()
}

func (m *ingestMeter) stop() {
	m.accepted.Stop()
}

// Count returns how many fixes have been ingested with outcome o since New.
func (t *Tracker) Count(o Outcome) int64 {
	if o < 0 || int(o) >= len(outcomeNames) {
		return 0
	}
	return t.meter.count(o)
}

// LogStats writes one line summarizing ingest outcomes.
func (t *Tracker) LogStats() {
	m := t.meter
	snap := m.accepted.Snapshot()
	t.logger.Info("Fix ingest",
		"accepted", humanize.Comma(snap.Count()),
		"weak", humanize.Comma(m.count(WeakSignal)),
		"stale", humanize.Comma(m.count(Stale)),
		"malformed", humanize.Comma(m.count(Malformed)),
		"out_of_order", humanize.Comma(m.count(OutOfOrder)),
		"ignored", humanize.Comma(m.count(Ignored)),
		"fps", common.DecimalToFixed(snap.Rate1(), 2),
		"status", t.Status(),
		"running", time.Since(m.started).Round(time.Second))
}

func (t *Tracker) statsLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.quit:
			return
		case <-ticker.C:
			t.LogStats()
		}
	}
}
