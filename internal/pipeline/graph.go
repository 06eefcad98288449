// Package pipeline describes a media mux pipeline independently of the engine that
// runs it. A Graph is a list of typed stage descriptors; an Engine turns a Graph into
// a running Pipeline whose named inputs accept timestamped buffers.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// StreamKind identifies which elementary stream a branch carries.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

func (s StreamKind) String() string {
	switch s {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// StageKind is the role of a stage inside a branch.
type StageKind int

const (
	StageQueue StageKind = iota
	StageParser
)

// ParserKind selects the elementary-stream parser of a StageParser.
type ParserKind int

const (
	ParserH264 ParserKind = iota
	ParserH265
	ParserAAC
)

func (p ParserKind) String() string {
	switch p {
	case ParserH264:
		return "h264"
	case ParserH265:
		return "h265"
	case ParserAAC:
		return "aac"
	default:
		return "unknown"
	}
}

// Container is the multiplexer output format.
type Container int

const (
	ContainerMP4 Container = iota
)

// Extension returns the file extension used for the container.
func (c Container) Extension() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	default:
		return "bin"
	}
}

// Stage is one processing step between a branch input and the multiplexer.
type Stage struct {
	Kind   StageKind
	Parser ParserKind
}

// Queue returns a decoupling queue stage.
func Queue() Stage {
	return Stage{Kind: StageQueue}
}

// Parse returns an elementary-stream parser stage.
func Parse(p ParserKind) Stage {
	return Stage{Kind: StageParser, Parser: p}
}

func (s Stage) String() string {
	if s.Kind == StageParser {
		return "parse:" + s.Parser.String()
	}
	return "queue"
}

// Branch is a buffer-injection input followed by its stages, feeding the mux.
type Branch struct {
	Stream StreamKind
	Input  string
	Stages []Stage
}

// Graph is a complete mux pipeline: one or more branches into a shared
// multiplexer whose output is written to Location.
type Graph struct {
	Branches  []Branch
	Container Container
	MuxName   string
	SinkName  string
	Location  string
}

// ErrInvalidGraph is returned by Validate for graphs no engine can build.
var ErrInvalidGraph = errors.New("invalid pipeline graph")

// NewGraph returns an empty graph muxing into container.
func NewGraph(container Container, muxName, sinkName string) *Graph {
	return &Graph{Container: container, MuxName: muxName, SinkName: sinkName}
}

// AddBranch appends a branch for stream, injected through the input named input.
func (g *Graph) AddBranch(stream StreamKind, input string, stages ...Stage) *Graph {
	g.Branches = append(g.Branches, Branch{Stream: stream, Input: input, Stages: stages})
	return g
}

// WriteTo sets the output file location.
func (g *Graph) WriteTo(location string) *Graph {
	g.Location = location
	return g
}

// Branch returns the branch carrying stream, if any.
func (g *Graph) Branch(stream StreamKind) (Branch, bool) {
	for _, b := range g.Branches {
		if b.Stream == stream {
			return b, true
		}
	}
	return Branch{}, false
}

// Inputs returns the input names in branch order.
func (g *Graph) Inputs() []string {
	names := make([]string, 0, len(g.Branches))
	for _, b := range g.Branches {
		names = append(names, b.Input)
	}
	return names
}

// Validate checks the structural rules every engine relies on.
func (g *Graph) Validate() error {
	if len(g.Branches) == 0 {
		return fmt.Errorf("%w: no branches", ErrInvalidGraph)
	}
	if g.MuxName == "" || g.SinkName == "" {
		return fmt.Errorf("%w: mux and sink must be named", ErrInvalidGraph)
	}
	if g.Location == "" {
		return fmt.Errorf("%w: empty output location", ErrInvalidGraph)
	}
	seen := make(map[string]bool, len(g.Branches)+2)
	seen[g.MuxName] = true
	if seen[g.SinkName] {
		return fmt.Errorf("%w: duplicate element name %q", ErrInvalidGraph, g.SinkName)
	}
	seen[g.SinkName] = true
	streams := make(map[StreamKind]bool, len(g.Branches))
	for _, b := range g.Branches {
		if b.Input == "" {
			return fmt.Errorf("%w: unnamed %s input", ErrInvalidGraph, b.Stream)
		}
		if seen[b.Input] {
			return fmt.Errorf("%w: duplicate element name %q", ErrInvalidGraph, b.Input)
		}
		if streams[b.Stream] {
			return fmt.Errorf("%w: two %s branches", ErrInvalidGraph, b.Stream)
		}
		seen[b.Input] = true
		streams[b.Stream] = true
	}
	return nil
}

// String returns an engine-neutral one-line summary, for logs.
func (g *Graph) String() string {
	var b strings.Builder
	for _, br := range g.Branches {
		b.WriteString(br.Input)
		b.WriteString("(")
		b.WriteString(br.Stream.String())
		b.WriteString(")")
		for _, s := range br.Stages {
			b.WriteString(" ! ")
			b.WriteString(s.String())
		}
		b.WriteString(" ! ")
		b.WriteString(g.MuxName)
		b.WriteString("; ")
	}
	fmt.Fprintf(&b, "%s(%s) ! %s(%s)", g.MuxName, g.Container.Extension(), g.SinkName, g.Location)
	return b.String()
}
