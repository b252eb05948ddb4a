// Package progress implements structured progress reporting for the
// generation and scan pipeline. A single subscriber receives every
// event; log output is throttled so tight loops do not flood the log.
package progress

import (
	"log/slog"
	"sync"
	"time"
)

// Phase identifies the pipeline stage a progress event belongs to.
type Phase string

const (
	PhaseInitialization      Phase = "initialization"
	PhasePluginGeneration    Phase = "plugin_generation"
	PhaseStrategyApplication Phase = "strategy_application"
	PhaseCompletion          Phase = "completion"
)

// Event is a snapshot of pipeline progress delivered to the subscriber.
type Event struct {
	Phase     Phase         `json:"phase"`
	Plugin    string        `json:"plugin,omitempty"`
	Strategy  string        `json:"strategy,omitempty"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Message   string        `json:"message"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Callback receives progress events. It must not block.
type Callback func(Event)

// Opts adjusts how a single report is handled.
type Opts struct {
	Plugin   string
	Strategy string
	// Force writes a log line even when the throttle window has not
	// elapsed.
	Force bool
}

const (
	logInterval       = 5 * time.Second
	heartbeatInterval = 30 * time.Second
)

// Reporter fans progress out to the registered callback and to the log.
// Every Report reaches the callback; a log line is written only when
// forced or when logInterval has passed since the previous line. A
// background heartbeat logs the latest state every 30 seconds until
// Close is called. Reporting never fails.
type Reporter struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	callback Callback
	start    time.Time
	lastLog  time.Time
	last     Event

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Reporter and starts its heartbeat.
func New(logger *slog.Logger) *Reporter {
	return newReporter(logger, time.Now, nil)
}

// heartbeatC overrides the heartbeat ticker when non-nil. Tests feed it
// by hand; New passes nil and a real ticker is used.
func newReporter(logger *slog.Logger, now func() time.Time, heartbeatC <-chan time.Time) *Reporter {
	r := &Reporter{
		logger: logger.With("component", "progress"),
		now:    now,
		start:  now(),
		done:   make(chan struct{}),
	}
	go r.heartbeat(heartbeatC)
	return r
}

// SetCallback registers the subscriber. Only one subscriber is
// supported; a second call replaces the first.
func (r *Reporter) SetCallback(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = cb
}

// Report delivers a progress event. The callback always fires; the log
// line is throttled unless opts.Force is set.
func (r *Reporter) Report(phase Phase, message string, completed, total int, opts Opts) {
	r.mu.Lock()

	now := r.now()
	event := Event{
		Phase:     phase,
		Plugin:    opts.Plugin,
		Strategy:  opts.Strategy,
		Completed: completed,
		Total:     total,
		Message:   message,
		Elapsed:   now.Sub(r.start),
	}
	r.last = event

	cb := r.callback
	shouldLog := opts.Force || r.lastLog.IsZero() || now.Sub(r.lastLog) >= logInterval
	if shouldLog {
		r.lastLog = now
	}
	r.mu.Unlock()

	if cb != nil {
		cb(event)
	}

	if shouldLog {
		r.logEvent(event)
	}
}

// Close stops the heartbeat. Report may still be called afterwards.
func (r *Reporter) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Reporter) heartbeat(c <-chan time.Time) {
	if c == nil {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		c = ticker.C
	}

	for {
		select {
		case <-r.done:
			return
		case <-c:
			select {
			case <-r.done:
				return
			default:
			}

			r.mu.Lock()
			event := r.last
			event.Elapsed = r.now().Sub(r.start)
			r.mu.Unlock()

			// The heartbeat fires whether or not anything has been
			// reported yet; before the first report only elapsed time
			// is known.
			attrs := []any{
				"elapsed", event.Elapsed.Round(time.Second).String(),
			}
			if event.Phase != "" {
				attrs = append(attrs,
					"phase", event.Phase,
					"completed", event.Completed,
					"total", event.Total,
				)
			}
			r.logger.Info("still working", attrs...)
		}
	}
}

func (r *Reporter) logEvent(event Event) {
	attrs := []any{
		"phase", event.Phase,
		"completed", event.Completed,
		"total", event.Total,
		"elapsed", event.Elapsed.Round(time.Millisecond).String(),
	}
	if event.Plugin != "" {
		attrs = append(attrs, "plugin", event.Plugin)
	}
	if event.Strategy != "" {
		attrs = append(attrs, "strategy", event.Strategy)
	}
	r.logger.Info(event.Message, attrs...)
}
