package memengine

import (
	"errors"
	"testing"
	"time"

	"mux-recorder/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph() *pipeline.Graph {
	return pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamVideo, "video_src", pipeline.Queue(), pipeline.Parse(pipeline.ParserH264)).
		AddBranch(pipeline.StreamAudio, "audio_src", pipeline.Queue()).
		WriteTo("out.mp4")
}

func TestEngine_buildAndLookup(t *testing.T) {
	e := New()
	p, err := e.Build(testGraph())
	require.NoError(t, err)
	assert.Equal(t, 1, e.Builds())

	in, err := p.Input("video_src")
	require.NoError(t, err)
	assert.Equal(t, "video_src", in.Name())

	_, err = p.Input("mux")
	assert.True(t, errors.Is(err, pipeline.ErrNotAnInput))
	_, err = p.Input("nope")
	assert.True(t, errors.Is(err, pipeline.ErrNoSuchElement))

	sink, err := p.Element("filesink")
	require.NoError(t, err)
	assert.Equal(t, "filesink", sink.Name())
}

func TestEngine_buildRejectsInvalidGraph(t *testing.T) {
	e := New()
	_, err := e.Build(pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink"))
	assert.True(t, errors.Is(err, pipeline.ErrInvalidGraph))
	assert.Zero(t, e.Builds())
}

func TestPipeline_pushAndDrain(t *testing.T) {
	e := New()
	p, err := e.Build(testGraph())
	require.NoError(t, err)
	rec := e.Last()

	video, _ := p.Input("video_src")
	audio, _ := p.Input("audio_src")
	require.NoError(t, video.Push(&pipeline.Buffer{Data: []byte{1}, PTS: 5}))

	bus, err := p.Bus()
	require.NoError(t, err)
	_, ok := bus.TimedPop(time.Second, pipeline.MessageEOS)
	assert.False(t, ok, "no EOS until every input ended")

	require.NoError(t, video.EndOfStream())
	require.NoError(t, audio.EndOfStream())
	assert.Error(t, video.Push(&pipeline.Buffer{}), "push after end of stream")

	msg, ok := bus.TimedPop(time.Second, pipeline.MessageEOS, pipeline.MessageError)
	require.True(t, ok)
	assert.Equal(t, pipeline.MessageEOS, msg.Kind)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.BusWaits())

	bufs := rec.Stream(pipeline.StreamVideo).Buffers()
	require.Len(t, bufs, 1)
	assert.Equal(t, time.Duration(5), bufs[0].PTS)
}

func TestPipeline_release(t *testing.T) {
	e := New()
	p, _ := e.Build(testGraph())
	in, _ := p.Input("audio_src")

	p.Release()
	assert.True(t, e.Last().Released())
	assert.ErrorIs(t, in.Push(&pipeline.Buffer{}), pipeline.ErrReleased)
	assert.ErrorIs(t, p.SetState(pipeline.StatePlaying), pipeline.ErrReleased)
	_, err := p.Bus()
	assert.ErrorIs(t, err, pipeline.ErrReleased)
}

func TestEngine_options(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(WithBuildError(boom)).Build(testGraph())
	assert.ErrorIs(t, err, boom)

	e := New(WithAllocFailure(), WithoutEOS())
	p, err := e.Build(testGraph())
	require.NoError(t, err)
	in, _ := p.Input("video_src")
	assert.ErrorIs(t, in.Push(&pipeline.Buffer{}), pipeline.ErrBufferAlloc)

	for _, name := range []string{"video_src", "audio_src"} {
		in, _ := p.Input(name)
		require.NoError(t, in.EndOfStream())
	}
	bus, _ := p.Bus()
	_, ok := bus.TimedPop(time.Millisecond, pipeline.MessageEOS)
	assert.False(t, ok)
}

func TestEngine_withoutRetention(t *testing.T) {
	e := New(WithoutRetention())

	var last pipeline.Pipeline
	for range 3 {
		p, err := e.Build(testGraph())
		require.NoError(t, err)
		last = p
	}
	assert.Equal(t, 3, e.Builds())
	require.Len(t, e.Pipelines(), 1)
	assert.Same(t, last, e.Last())

	in, _ := last.Input("audio_src")
	for range 100 {
		require.NoError(t, in.Push(&pipeline.Buffer{Data: make([]byte, 16)}))
	}
	stream := e.Last().Stream(pipeline.StreamAudio)
	n, size := stream.Pushed()
	assert.Equal(t, 100, n)
	assert.Equal(t, int64(1600), size)
	assert.Empty(t, stream.Buffers())
}
