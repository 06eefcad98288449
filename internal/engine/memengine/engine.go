// Package memengine is an in-memory pipeline.Engine. It writes nothing; it records
// every graph, caps negotiation, buffer and state change so the caller can inspect
// them. Use it for tests, or with WithoutRetention for dry runs.
package memengine

import (
	"fmt"
	"sync"
	"time"

	"mux-recorder/internal/pipeline"
)

// Engine records the pipelines it builds.
type Engine struct {
	mu        sync.Mutex
	buildErr  error
	holdEOS   bool
	failAlloc bool
	counts    bool
	builds    int
	pipelines []*Pipeline
}

// Option configures an Engine.
type Option func(*Engine)

// WithBuildError makes every Build fail with err.
func WithBuildError(err error) Option {
	return func(e *Engine) { e.buildErr = err }
}

// WithoutEOS makes buses never report completion, so drains time out.
func WithoutEOS() Option {
	return func(e *Engine) { e.holdEOS = true }
}

// WithAllocFailure makes every Push fail with pipeline.ErrBufferAlloc.
func WithAllocFailure() Option {
	return func(e *Engine) { e.failAlloc = true }
}

// WithoutRetention keeps counts instead of contents: only the latest pipeline
// is held and pushed buffers are tallied, not stored.
func WithoutRetention() Option {
	return func(e *Engine) { e.counts = true }
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetBuildError changes the error returned by subsequent builds; nil clears it.
func (e *Engine) SetBuildError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildErr = err
}

// Build implements pipeline.Engine.
func (e *Engine) Build(g *pipeline.Graph) (pipeline.Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buildErr != nil {
		return nil, e.buildErr
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		graph:    *g,
		inputs:   make(map[string]*Input, len(g.Branches)),
		holdEOS:  e.holdEOS,
		elements: map[string]bool{g.MuxName: true, g.SinkName: true},
	}
	for _, b := range g.Branches {
		p.inputs[b.Input] = &Input{name: b.Input, stream: b.Stream, p: p, failAlloc: e.failAlloc, counts: e.counts}
	}
	e.builds++
	if e.counts {
		e.pipelines = append(e.pipelines[:0], p)
	} else {
		e.pipelines = append(e.pipelines, p)
	}
	return p, nil
}

// Builds returns the number of successful builds.
func (e *Engine) Builds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.builds
}

// Pipelines returns every pipeline built so far, oldest first. Without
// retention it holds the latest one only.
func (e *Engine) Pipelines() []*Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Pipeline, len(e.pipelines))
	copy(out, e.pipelines)
	return out
}

// Last returns the most recently built pipeline, or nil.
func (e *Engine) Last() *Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pipelines) == 0 {
		return nil
	}
	return e.pipelines[len(e.pipelines)-1]
}

// Pipeline is a recorded pipeline.
type Pipeline struct {
	mu       sync.Mutex
	graph    pipeline.Graph
	inputs   map[string]*Input
	elements map[string]bool
	states   []pipeline.State
	holdEOS  bool
	released bool
	busWaits []time.Duration
}

// Graph returns the graph the pipeline was built from.
func (p *Pipeline) Graph() *pipeline.Graph {
	return &p.graph
}

// Element implements pipeline.Pipeline.
func (p *Pipeline) Element(name string) (pipeline.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, pipeline.ErrReleased
	}
	if in, ok := p.inputs[name]; ok {
		return in, nil
	}
	if !p.elements[name] {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNoSuchElement, name)
	}
	return &element{name: name}, nil
}

// Input implements pipeline.Pipeline.
func (p *Pipeline) Input(name string) (pipeline.Input, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, pipeline.ErrReleased
	}
	in, ok := p.inputs[name]
	if !ok {
		if p.elements[name] {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrNotAnInput, name)
		}
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNoSuchElement, name)
	}
	return in, nil
}

// Bus implements pipeline.Pipeline.
func (p *Pipeline) Bus() (pipeline.Bus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, pipeline.ErrReleased
	}
	return &bus{p: p}, nil
}

// SetState implements pipeline.Pipeline.
func (p *Pipeline) SetState(s pipeline.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return pipeline.ErrReleased
	}
	p.states = append(p.states, s)
	return nil
}

// Release implements pipeline.Pipeline.
func (p *Pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

// Released reports whether the pipeline was released.
func (p *Pipeline) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// States returns the state transitions requested, in order.
func (p *Pipeline) States() []pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pipeline.State, len(p.states))
	copy(out, p.states)
	return out
}

// BusWaits returns the timeouts passed to TimedPop.
func (p *Pipeline) BusWaits() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Duration, len(p.busWaits))
	copy(out, p.busWaits)
	return out
}

// Stream returns the recorded input for a stream, or nil if the graph has none.
func (p *Pipeline) Stream(s pipeline.StreamKind) *Input {
	b, ok := p.graph.Branch(s)
	if !ok {
		return nil
	}
	return p.inputs[b.Input]
}

func (p *Pipeline) allEnded() bool {
	for _, in := range p.inputs {
		if !in.eos {
			return false
		}
	}
	return true
}

type element struct {
	name string
}

func (e *element) Name() string { return e.name }
func (e *element) Release()     {}

type bus struct {
	p *Pipeline
}

// TimedPop reports EOS once every input has ended, unless the engine holds EOS.
// It never sleeps.
func (b *bus) TimedPop(timeout time.Duration, kinds ...pipeline.MessageKind) (*pipeline.Message, bool) {
	b.p.mu.Lock()
	defer b.p.mu.Unlock()
	b.p.busWaits = append(b.p.busWaits, timeout)
	if b.p.holdEOS || !b.p.allEnded() {
		return nil, false
	}
	for _, k := range kinds {
		if k == pipeline.MessageEOS {
			return &pipeline.Message{Kind: pipeline.MessageEOS, Source: b.p.graph.SinkName}, true
		}
	}
	return nil, false
}

func (b *bus) Release() {}

// Input records what was pushed into one buffer-injection input.
type Input struct {
	name      string
	stream    pipeline.StreamKind
	p         *Pipeline
	failAlloc bool
	counts    bool

	caps     *pipeline.Caps
	buffers  []pipeline.Buffer
	pushed   int
	bytes    int64
	eos      bool
	released bool
}

// Name implements pipeline.Element.
func (in *Input) Name() string { return in.name }

// Release implements pipeline.Element.
func (in *Input) Release() {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	in.released = true
}

// SetCaps implements pipeline.Input.
func (in *Input) SetCaps(c pipeline.Caps) error {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	if in.released || in.p.released {
		return pipeline.ErrReleased
	}
	in.caps = &c
	return nil
}

// Push implements pipeline.Input.
func (in *Input) Push(b *pipeline.Buffer) error {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	if in.released || in.p.released {
		return pipeline.ErrReleased
	}
	if in.failAlloc {
		return pipeline.ErrBufferAlloc
	}
	if in.eos {
		return fmt.Errorf("push after end of stream on %s", in.name)
	}
	in.pushed++
	in.bytes += int64(len(b.Data))
	if !in.counts {
		in.buffers = append(in.buffers, *b)
	}
	return nil
}

// EndOfStream implements pipeline.Input.
func (in *Input) EndOfStream() error {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	if in.released || in.p.released {
		return pipeline.ErrReleased
	}
	in.eos = true
	return nil
}

// Stream returns the stream the input carries.
func (in *Input) Stream() pipeline.StreamKind { return in.stream }

// Caps returns the negotiated caps, or nil.
func (in *Input) Caps() *pipeline.Caps {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.caps
}

// Pushed returns the number of buffers accepted and their total payload size.
func (in *Input) Pushed() (n int, size int64) {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.pushed, in.bytes
}

// Buffers returns the buffers pushed so far. It is empty without retention.
func (in *Input) Buffers() []pipeline.Buffer {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	out := make([]pipeline.Buffer, len(in.buffers))
	copy(out, in.buffers)
	return out
}

// Ended reports whether end-of-stream was signalled.
func (in *Input) Ended() bool {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.eos
}

// Released reports whether the handle was released.
func (in *Input) Released() bool {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.released
}
