package valve

// EventType classifies non-data signals travelling with the stream.
type EventType int

const (
	EventStreamStart EventType = iota
	EventFormat
	EventSegment
	EventFlushStart
	EventFlushStop
	EventEOS
	EventCustom
)

func (t EventType) String() string {
	switch t {
	case EventStreamStart:
		return "stream-start"
	case EventFormat:
		return "format"
	case EventSegment:
		return "segment"
	case EventFlushStart:
		return "flush-start"
	case EventFlushStop:
		return "flush-stop"
	case EventEOS:
		return "eos"
	case EventCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Event is a control signal. Data is event specific, e.g. the stream
// description carried by EventFormat.
type Event struct {
	Type EventType
	Data any
}

// Downstream consumes what the valve forwards.
type Downstream[T any] interface {
	// Push hands over one frame. A non-nil error is a flow failure.
	Push(frame Frame[T]) error
	// PushEvent forwards a control event and reports whether it was accepted.
	PushEvent(ev Event) bool
}

// DownstreamFuncs adapts plain functions to Downstream. A nil EventFunc
// accepts every event.
type DownstreamFuncs[T any] struct {
	PushFunc  func(frame Frame[T]) error
	EventFunc func(ev Event) bool
}

func (d DownstreamFuncs[T]) Push(frame Frame[T]) error {
	return d.PushFunc(frame)
}

func (d DownstreamFuncs[T]) PushEvent(ev Event) bool {
	if d.EventFunc == nil {
		return true
	}
	return d.EventFunc(ev)
}
