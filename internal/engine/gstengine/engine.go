// Package gstengine runs mux pipelines on GStreamer through go-gst.
package gstengine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mux-recorder/internal/engine/gstlaunch"
	"mux-recorder/internal/pipeline"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"
)

var initOnce sync.Once

// Engine builds pipelines with gst_parse_launch. It is safe to share; every
// Pipeline it returns is independent.
type Engine struct {
	log *slog.Logger
}

// New initializes GStreamer once per process and returns an Engine.
func New(log *slog.Logger) *Engine {
	initOnce.Do(func() { gst.Init(nil) })
	return &Engine{log: log}
}

// Build implements pipeline.Engine.
func (e *Engine) Build(g *pipeline.Graph) (pipeline.Pipeline, error) {
	launch, err := gstlaunch.Describe(g)
	if err != nil {
		return nil, err
	}
	e.log.Debug("created mux pipeline", slog.String("launch", launch))

	p, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("parse mux pipeline: %w", err)
	}

	inputs := make(map[string]bool, len(g.Branches))
	for _, name := range g.Inputs() {
		inputs[name] = true
	}
	return &gstPipeline{p: p, inputs: inputs}, nil
}

type gstPipeline struct {
	p      *gst.Pipeline
	inputs map[string]bool
}

func (gp *gstPipeline) element(name string) (*gst.Element, error) {
	if gp.p == nil {
		return nil, pipeline.ErrReleased
	}
	el, err := gp.p.GetElementByName(name)
	if err != nil || el == nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNoSuchElement, name)
	}
	return el, nil
}

func (gp *gstPipeline) Element(name string) (pipeline.Element, error) {
	el, err := gp.element(name)
	if err != nil {
		return nil, err
	}
	return &gstElement{name: name, el: el}, nil
}

func (gp *gstPipeline) Input(name string) (pipeline.Input, error) {
	if !gp.inputs[name] {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNotAnInput, name)
	}
	el, err := gp.element(name)
	if err != nil {
		return nil, err
	}
	return &gstInput{name: name, src: app.SrcFromElement(el)}, nil
}

func (gp *gstPipeline) Bus() (pipeline.Bus, error) {
	if gp.p == nil {
		return nil, pipeline.ErrReleased
	}
	bus := gp.p.GetPipelineBus()
	if bus == nil {
		return nil, fmt.Errorf("%w: bus", pipeline.ErrNoSuchElement)
	}
	return &gstBus{bus: bus}, nil
}

func (gp *gstPipeline) SetState(s pipeline.State) error {
	if gp.p == nil {
		return pipeline.ErrReleased
	}
	target := gst.StateNull
	if s == pipeline.StatePlaying {
		target = gst.StatePlaying
	}
	if err := gp.p.SetState(target); err != nil {
		return fmt.Errorf("set pipeline %s: %w", s, err)
	}
	return nil
}

// Release drops the reference; go-gst unrefs wrapped objects from finalizers.
func (gp *gstPipeline) Release() {
	gp.p = nil
}

type gstElement struct {
	name string
	el   *gst.Element
}

func (e *gstElement) Name() string { return e.name }
func (e *gstElement) Release()     { e.el = nil }

type gstInput struct {
	name string
	src  *app.Source
}

func (in *gstInput) Name() string { return in.name }
func (in *gstInput) Release()     { in.src = nil }

func (in *gstInput) SetCaps(c pipeline.Caps) error {
	if in.src == nil {
		return pipeline.ErrReleased
	}
	caps := gst.NewCapsFromString(c.String())
	if caps == nil {
		return fmt.Errorf("invalid caps for %s: %s", in.name, c)
	}
	in.src.SetCaps(caps)
	return nil
}

func (in *gstInput) Push(b *pipeline.Buffer) error {
	if in.src == nil {
		return pipeline.ErrReleased
	}
	buf := newBuffer(b)
	if buf == nil {
		return pipeline.ErrBufferAlloc
	}
	if flow := in.src.PushBuffer(buf); flow != gst.FlowOK {
		return fmt.Errorf("push to %s: %s", in.name, flow.String())
	}
	return nil
}

func (in *gstInput) EndOfStream() error {
	if in.src == nil {
		return pipeline.ErrReleased
	}
	if flow := in.src.EndStream(); flow != gst.FlowOK {
		return fmt.Errorf("end of stream on %s: %s", in.name, flow.String())
	}
	return nil
}

type gstBus struct {
	bus *gst.Bus
}

func (b *gstBus) TimedPop(timeout time.Duration, kinds ...pipeline.MessageKind) (*pipeline.Message, bool) {
	if b.bus == nil {
		return nil, false
	}
	msg := b.bus.TimedPopFiltered(busTimeout(timeout), messageMask(kinds))
	if msg == nil {
		return nil, false
	}
	return busMessage(msg), true
}

func (b *gstBus) Release() { b.bus = nil }
