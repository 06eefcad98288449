// Package gstlaunch renders a pipeline.Graph in gst-launch syntax.
package gstlaunch

import (
	"fmt"
	"strings"

	"mux-recorder/internal/pipeline"
)

// InputFactory is the element every branch input is built from.
const InputFactory = "appsrc"

var parserFactories = map[pipeline.ParserKind]string{
	pipeline.ParserH264: "h264parse",
	pipeline.ParserH265: "h265parse",
	pipeline.ParserAAC:  "aacparse",
}

var muxFactories = map[pipeline.Container]string{
	pipeline.ContainerMP4: "mp4mux",
}

// Describe returns the launch description of g. Inputs are live, time-formatted
// appsrc elements; the mux and sink carry the graph's names.
func Describe(g *pipeline.Graph) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	mux, ok := muxFactories[g.Container]
	if !ok {
		return "", fmt.Errorf("%w: no muxer for container %d", pipeline.ErrInvalidGraph, g.Container)
	}

	var b strings.Builder
	for _, br := range g.Branches {
		fmt.Fprintf(&b, "%s name=%s format=time is-live=true ! ", InputFactory, br.Input)
		for _, s := range br.Stages {
			f, err := stageFactory(s)
			if err != nil {
				return "", err
			}
			b.WriteString(f)
			b.WriteString(" ! ")
		}
		b.WriteString(g.MuxName)
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "%s name=%s ! filesink name=%s location=%s", mux, g.MuxName, g.SinkName, quote(g.Location))
	return b.String(), nil
}

func stageFactory(s pipeline.Stage) (string, error) {
	switch s.Kind {
	case pipeline.StageQueue:
		return "queue", nil
	case pipeline.StageParser:
		f, ok := parserFactories[s.Parser]
		if !ok {
			return "", fmt.Errorf("%w: no parser for %s", pipeline.ErrInvalidGraph, s.Parser)
		}
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown stage kind %d", pipeline.ErrInvalidGraph, s.Kind)
	}
}

// quote wraps a property value so paths with spaces survive launch parsing.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
