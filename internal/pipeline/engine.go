package pipeline

import (
	"errors"
	"time"
)

var (
	// ErrNoSuchElement is returned when a named element is not in the pipeline.
	ErrNoSuchElement = errors.New("no such element")

	// ErrNotAnInput is returned when a named element cannot accept buffers.
	ErrNotAnInput = errors.New("element is not a buffer input")

	// ErrBufferAlloc is returned when the engine cannot allocate a transport buffer.
	ErrBufferAlloc = errors.New("buffer allocation failed")

	// ErrReleased is returned by handles used after Release.
	ErrReleased = errors.New("handle released")
)

// TimeNone marks an unset buffer time.
const TimeNone time.Duration = -1

// Buffer is a transport buffer: one access unit plus its timing.
type Buffer struct {
	Data     []byte
	PTS      time.Duration
	DTS      time.Duration
	Duration time.Duration
}

// NewBuffer allocates a buffer holding a copy of data, with unset times.
func NewBuffer(data []byte) *Buffer {
	b := make([]byte, len(data))
	copy(b, data)
	return &Buffer{Data: b, PTS: TimeNone, DTS: TimeNone, Duration: TimeNone}
}

// State is the execution state of a pipeline.
type State int

const (
	StateNull State = iota
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// MessageKind is a completion-event type delivered on a pipeline bus.
type MessageKind int

const (
	MessageEOS MessageKind = iota
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is a completion event. Err is set for MessageError.
type Message struct {
	Kind   MessageKind
	Source string
	Err    error
}

// Engine constructs pipelines from graphs.
type Engine interface {
	Build(g *Graph) (Pipeline, error)
}

// Element is a named handle into a pipeline.
type Element interface {
	Name() string
	Release()
}

// Input is an element that accepts pushed buffers.
type Input interface {
	Element
	SetCaps(c Caps) error
	Push(b *Buffer) error
	EndOfStream() error
}

// Bus delivers completion events from the pipeline's own execution.
type Bus interface {
	// TimedPop blocks for at most timeout waiting for a message of one of the
	// given kinds. It reports false if none arrived.
	TimedPop(timeout time.Duration, kinds ...MessageKind) (*Message, bool)
	Release()
}

// Pipeline is a constructed graph. Handles obtained from it stay valid until
// they or the pipeline are released.
type Pipeline interface {
	Element(name string) (Element, error)
	Input(name string) (Input, error)
	Bus() (Bus, error)
	SetState(s State) error
	Release()
}
