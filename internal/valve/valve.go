package valve

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoggerName is the category every valve logs under.
const LoggerName = "prerollvalve"

// Valve withholds a stream while closed and releases it, starting from the
// oldest buffered keyframe, once opened.
//
// Lock order is settingsMu then backlogMu. Setters take only settingsMu.
// Intake snapshots the settings, takes backlogMu and drops settingsMu before
// touching the backlog, so a flush never blocks a setter.
type Valve[T any] struct {
	settingsMu sync.Mutex
	settings   Settings

	backlogMu sync.Mutex
	backlog   backlog[T]

	downstream Downstream[T]
	logger     *zap.Logger
	metrics    *Metrics
	onFlush    func(FlushReport)

	received  atomic.Uint64
	forwarded atomic.Uint64
	pruned    atomic.Uint64
	discarded atomic.Uint64
	flushes   atomic.Uint64
}

// Option configures a Valve.
type Option[T any] func(*Valve[T])

// WithSettings replaces the default settings.
func WithSettings[T any](s Settings) Option[T] {
	return func(v *Valve[T]) { v.settings = s }
}

// WithLogger sets the logger. The valve names it LoggerName.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(v *Valve[T]) { v.logger = logger }
}

// WithMetrics sets the prometheus instruments.
func WithMetrics[T any](m *Metrics) Option[T] {
	return func(v *Valve[T]) { v.metrics = m }
}

// WithFlushObserver registers fn to receive a report after every flush. It
// is called without any valve lock held.
func WithFlushObserver[T any](fn func(FlushReport)) Option[T] {
	return func(v *Valve[T]) { v.onFlush = fn }
}

// New creates a valve forwarding to downstream.
func New[T any](downstream Downstream[T], opts ...Option[T]) (*Valve[T], error) {
	v := &Valve[T]{
		settings:   DefaultSettings(),
		downstream: downstream,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.settings.Validate(); err != nil {
		return nil, err
	}
	if v.metrics == nil {
		v.metrics = NewMetrics(nil, nil)
	}
	v.logger = v.logger.Named(LoggerName)
	return v, nil
}

// FlushReport describes one backlog flush.
type FlushReport struct {
	ID        string        `json:"id"`
	Queued    int           `json:"queued"`
	Start     int           `json:"start"`
	Forwarded int           `json:"forwarded"`
	Discarded int           `json:"discarded"`
	Degraded  bool          `json:"degraded,omitempty"`
	From      time.Duration `json:"from"`
	To        time.Duration `json:"to"`
	Err       error         `json:"-"`
}

// Stats is a snapshot of valve counters and backlog state.
type Stats struct {
	FramesReceived  uint64        `json:"framesReceived"`
	FramesForwarded uint64        `json:"framesForwarded"`
	FramesPruned    uint64        `json:"framesPruned"`
	FramesDiscarded uint64        `json:"framesDiscarded"`
	Flushes         uint64        `json:"flushes"`
	BacklogFrames   int           `json:"backlogFrames"`
	BacklogSpan     time.Duration `json:"backlogSpan"`
}

// OnFrame is called by upstream once per frame. A returned error is the
// unmodified error of the downstream Push that failed.
func (v *Valve[T]) OnFrame(frame Frame[T]) error {
	v.settingsMu.Lock()
	s := v.settings
	v.backlogMu.Lock()
	v.settingsMu.Unlock()

	v.received.Add(1)
	v.metrics.framesReceived.Inc()
	if s.Debug {
		v.logger.Debug("received frame",
			zap.Duration("timestamp", frame.Timestamp),
			zap.Bool("keyframe", frame.Keyframe))
	}

	if !s.Open {
		v.buffer(frame, s.MaxHistory)
		v.backlogMu.Unlock()
		return nil
	}

	if v.backlog.len() == 0 {
		v.backlogMu.Unlock()
		return v.forward(frame, sourceLive)
	}

	// The live frame goes out under the same lock as the flush so no other
	// intake can slip in between.
	report, err := v.flush(s.Debug)
	if err == nil {
		err = v.forward(frame, sourceLive)
	}
	v.backlogMu.Unlock()

	if v.onFlush != nil {
		v.onFlush(report)
	}
	return err
}

// OnControlEvent forwards ev downstream. The backlog is not touched.
func (v *Valve[T]) OnControlEvent(ev Event) bool {
	ok := v.downstream.PushEvent(ev)
	if !ok {
		v.logger.Warn("downstream rejected event", zap.Stringer("event", ev.Type))
	}
	return ok
}

// buffer appends frame and prunes the head. backlogMu must be held.
func (v *Valve[T]) buffer(frame Frame[T], maxHistory time.Duration) {
	v.backlog.push(frame)
	if n := v.backlog.prune(frame.Timestamp, maxHistory); n > 0 {
		v.pruned.Add(uint64(n))
		v.metrics.framesPruned.Add(float64(n))
	}
	v.metrics.backlogFrames.Set(float64(v.backlog.len()))
}

// flush forwards the backlog from its first keyframe and empties it, whatever
// the outcome. backlogMu must be held.
func (v *Valve[T]) flush(debug bool) (FlushReport, error) {
	start := v.backlog.firstKeyframe()
	frames := v.backlog.take()
	v.metrics.backlogFrames.Set(0)
	v.flushes.Add(1)

	report := FlushReport{
		ID:     uuid.NewString(),
		Queued: len(frames),
		From:   frames[0].Timestamp,
		To:     frames[len(frames)-1].Timestamp,
	}
	logger := v.logger.With(zap.String("flush_id", report.ID))
	logger.Info("valve opened, flushing backlog", zap.Int("frames", len(frames)))

	if start < 0 {
		logger.Warn("no keyframe found in backlog, flushing from start")
		start = 0
		report.Degraded = true
	}
	report.Start = start
	report.Discarded = start
	logger.Info("starting flush",
		zap.Int("index", start),
		zap.Bool("keyframe", frames[start].Keyframe),
		zap.Int("frames", len(frames)-start))
	v.discard(start, reasonBeforeKeyframe)

	for i := start; i < len(frames); i++ {
		f := frames[i]
		if debug {
			logger.Debug("pushing stored frame", zap.Duration("timestamp", f.Timestamp))
		}
		if err := v.downstream.Push(f); err != nil {
			logger.Error("failed to push stored frame",
				zap.Duration("timestamp", f.Timestamp),
				zap.Error(err))
			lost := len(frames) - i
			report.Discarded += lost
			report.Err = err
			v.discard(lost, reasonFlowFailure)
			v.metrics.flushes.WithLabelValues(resultFailed).Inc()
			return report, err
		}
		report.Forwarded++
		v.forwarded.Add(1)
		v.metrics.framesForwarded.WithLabelValues(sourceBacklog).Inc()
	}

	if report.Degraded {
		v.metrics.flushes.WithLabelValues(resultDegraded).Inc()
	} else {
		v.metrics.flushes.WithLabelValues(resultOK).Inc()
	}
	return report, nil
}

func (v *Valve[T]) discard(n int, reason string) {
	if n == 0 {
		return
	}
	v.discarded.Add(uint64(n))
	v.metrics.framesDiscarded.WithLabelValues(reason).Add(float64(n))
}

func (v *Valve[T]) forward(frame Frame[T], source string) error {
	if err := v.downstream.Push(frame); err != nil {
		return err
	}
	v.forwarded.Add(1)
	v.metrics.framesForwarded.WithLabelValues(source).Inc()
	return nil
}

// Stats returns current counters and backlog extent.
func (v *Valve[T]) Stats() Stats {
	v.backlogMu.Lock()
	n, span := v.backlog.len(), v.backlog.span()
	v.backlogMu.Unlock()
	return Stats{
		FramesReceived:  v.received.Load(),
		FramesForwarded: v.forwarded.Load(),
		FramesPruned:    v.pruned.Load(),
		FramesDiscarded: v.discarded.Load(),
		Flushes:         v.flushes.Load(),
		BacklogFrames:   n,
		BacklogSpan:     span,
	}
}

// Settings returns a copy of the current settings.
func (v *Valve[T]) Settings() Settings {
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	return v.settings
}

// Apply replaces all settings at once.
func (v *Valve[T]) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	v.logTransition(v.settings.Open, s.Open)
	v.settings = s
	return nil
}

func (v *Valve[T]) Open() bool {
	return v.Settings().Open
}

// SetOpen opens or closes the valve. Buffered frames are flushed by the next
// OnFrame call that sees the valve open, not by SetOpen itself.
func (v *Valve[T]) SetOpen(open bool) {
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	v.logTransition(v.settings.Open, open)
	v.settings.Open = open
}

func (v *Valve[T]) MaxHistory() time.Duration {
	return v.Settings().MaxHistory
}

func (v *Valve[T]) SetMaxHistory(d time.Duration) error {
	if d < 0 {
		return ErrNegativeHistory
	}
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	v.settings.MaxHistory = d
	return nil
}

func (v *Valve[T]) Debug() bool {
	return v.Settings().Debug
}

func (v *Valve[T]) SetDebug(debug bool) {
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	v.settings.Debug = debug
}

// Get reads a property. max-history is reported in milliseconds.
func (v *Valve[T]) Get(p Property) Value {
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	return v.settings.get(p)
}

// Set writes a property. It panics on a Property outside Properties.
func (v *Valve[T]) Set(p Property, val Value) {
	v.settingsMu.Lock()
	defer v.settingsMu.Unlock()
	if p == PropertyOpen {
		v.logTransition(v.settings.Open, val.Bool)
	}
	v.settings.set(p, val)
}

func (v *Valve[T]) logTransition(was, open bool) {
	if was == open {
		return
	}
	if open {
		v.logger.Info("valve set open")
	} else {
		v.logger.Info("valve set closed")
	}
}
