package watcher

import (
	"context"
	"time"

	"github.com/ritzau/vertex-graph/pkg/logging"
)

// Debouncer merges bursts of change events. It emits once the input has been quiet
// for quietPeriod, or maxWait after the first event of a burst at the latest.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer over input.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start runs the debouncer until ctx is done or the input closes.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	accumulated := make(map[ChangeType][]string)
	count := 0
	var quiet, deadline <-chan time.Time
	var quietTimer, deadlineTimer *time.Timer

	stop := func() {
		if quietTimer != nil {
			quietTimer.Stop()
		}
		if deadlineTimer != nil {
			deadlineTimer.Stop()
		}
		quiet, deadline = nil, nil
		quietTimer, deadlineTimer = nil, nil
	}

	flush := func() {
		stop()
		if count == 0 {
			return
		}
		logging.Debug("flushing accumulated changes", "events", count)

		// Records first: a reload supersedes a counts refresh
		for _, t := range []ChangeType{ChangeTypeRecord, ChangeTypeAsset} {
			paths := accumulated[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		accumulated = make(map[ChangeType][]string)
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			count++

			if quietTimer != nil {
				quietTimer.Stop()
			}
			quietTimer = time.NewTimer(d.quietPeriod)
			quiet = quietTimer.C
			if deadlineTimer == nil {
				deadlineTimer = time.NewTimer(d.maxWait)
				deadline = deadlineTimer.C
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the debounced events.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
