package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/cleanspeed/common"
)

// lineMeter counts lines and bytes passing through a Metered stage.
type lineMeter struct {
	logger     *slog.Logger
	started    time.Time
	reg        metrics.Registry
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

func init() {
	// Enable metrics package.
	// Won't work without this global setting.
	metrics.Enabled = true
}

func newLineMeter(logger *slog.Logger) *lineMeter {
	m := &lineMeter{
		logger:     logger,
		started:    time.Now(),
		reg:        metrics.NewRegistry(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	if err := m.reg.Register("line.meter", m.countMeter); err != nil {
		panic(err)
	}
	if err := m.reg.Register("size.meter", m.sizeMeter); err != nil {
		panic(err)
	}
	return m
}

func (m *lineMeter) mark(data []byte) {
	m.countMeter.Mark(1)
	m.sizeMeter.Mark(int64(len(data)))
}

func (m *lineMeter) log(msg string) {
	countSnap := m.countMeter.Snapshot()
	sizeSnap := m.sizeMeter.Snapshot()
	m.logger.Info(msg,
		"n", humanize.Comma(countSnap.Count()),
		"lps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(m.started).Round(time.Second))
}

func (m *lineMeter) stop() {
	m.countMeter.Stop()
	m.sizeMeter.Stop()
}

// Metered passes lines through unchanged, logging read counts and rates
// every interval and once more when in is drained.
func Metered(ctx context.Context, logger *slog.Logger, interval time.Duration, in <-chan []byte) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		m := newLineMeter(logger)
		defer m.stop()
		defer m.log("Read done")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.log("Read lines")
			case line, ok := <-in:
				if !ok {
					return
				}
				m.mark(line)
				select {
				case <-ctx.Done():
					return
				case out <- line:
				}
			}
		}
	}()
	return out
}
