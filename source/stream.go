package source

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/stream"
	"github.com/rotblauer/cleanspeed/types/trip"
)

// Stream is a Source reading from a channel of fixes.
// While stopped it does not receive, so a paced replay pauses along with the trip.
type Stream struct {
	fixes  <-chan trip.RawFix
	logger *slog.Logger

	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	stop   chan struct{}
	exited chan struct{}
}

func NewStream(fixes <-chan trip.RawFix) *Stream {
	return &Stream{
		fixes:  fixes,
		logger: slog.With("d", "source"),
		done:   make(chan struct{}),
	}
}

// NewReaderStream decodes JSON fixes from r, one per line (see Decode).
// Lines that do not decode are logged and skipped.
// Reading stops when ctx is done.
func NewReaderStream(ctx context.Context, r io.Reader, config *params.SourceConfig) *Stream {
	if config == nil {
		config = params.DefaultSourceConfig()
	}
	logger := slog.With("d", "source")

	lines, errs := stream.ScanLines(ctx, r)
	go func() {
		for err := range errs {
			logger.Error("Read fixes", "error", err)
		}
	}()
	metered := stream.Metered(ctx, logger, 10*time.Second, lines)

	fixes := stream.TransformOK(ctx, func(line []byte) (trip.RawFix, bool) {
		fix, err := Decode(line)
		if err != nil {
			logger.Warn("Skipped line", "error", err)
			return fix, false
		}
		return fix, true
	}, metered)
	if config.DedupeWindow > 0 {
		fixes = stream.Filter(ctx, NewDedupePassLRUFunc(config.DedupeWindow), fixes)
	}
	if config.Realtime {
		fixes = stream.Paced(ctx, func(f trip.RawFix) time.Time { return f.Time }, config.Speedup, fixes)
	}

	s := NewStream(fixes)
	s.logger = logger
	return s
}

// Done is closed once the upstream channel is closed and drained.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Start delivers fixes to sink until Stop. A stream that has ended is ErrUnavailable.
func (s *Stream) Start(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return ErrUnavailable
	default:
	}
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.exited = make(chan struct{})
	go s.run(ctx, sink, s.stop, s.exited)
	return nil
}

func (s *Stream) run(ctx context.Context, sink Sink, stop, exited chan struct{}) {
	defer close(exited)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case fix, ok := <-s.fixes:
			if !ok {
				s.doneOnce.Do(func() {
					s.logger.Info("Fix stream ended")
					close(s.done)
				})
				return
			}
			sink(fix)
		}
	}
}

func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.exited
	s.stop, s.exited = nil, nil
}
