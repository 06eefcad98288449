package gstlaunch

import (
	"errors"
	"testing"

	"mux-recorder/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_videoAndAAC(t *testing.T) {
	g := pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamVideo, "video_src", pipeline.Queue(), pipeline.Parse(pipeline.ParserH264)).
		AddBranch(pipeline.StreamAudio, "audio_src", pipeline.Queue(), pipeline.Parse(pipeline.ParserAAC), pipeline.Queue()).
		WriteTo("out.1.H264.AAC.mp4")

	got, err := Describe(g)
	require.NoError(t, err)
	assert.Equal(t,
		"appsrc name=video_src format=time is-live=true ! queue ! h264parse ! mux. "+
			"appsrc name=audio_src format=time is-live=true ! queue ! aacparse ! queue ! mux. "+
			`mp4mux name=mux ! filesink name=filesink location="out.1.H264.AAC.mp4"`,
		got)
}

func TestDescribe_alacAudioOnly(t *testing.T) {
	g := pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamAudio, "audio_src", pipeline.Queue()).
		WriteTo("out.2.ALAC.mp4")

	got, err := Describe(g)
	require.NoError(t, err)
	assert.Equal(t,
		"appsrc name=audio_src format=time is-live=true ! queue ! mux. "+
			`mp4mux name=mux ! filesink name=filesink location="out.2.ALAC.mp4"`,
		got)
}

func TestDescribe_h265(t *testing.T) {
	g := pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamVideo, "video_src", pipeline.Queue(), pipeline.Parse(pipeline.ParserH265)).
		WriteTo("v.mp4")

	got, err := Describe(g)
	require.NoError(t, err)
	assert.Contains(t, got, "! h265parse ! mux. ")
}

func TestDescribe_quotesLocation(t *testing.T) {
	g := pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamAudio, "audio_src").
		WriteTo(`/tmp/my "rec".mp4`)

	got, err := Describe(g)
	require.NoError(t, err)
	assert.Contains(t, got, `location="/tmp/my \"rec\".mp4"`)
}

func TestDescribe_invalid(t *testing.T) {
	_, err := Describe(pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrInvalidGraph))

	g := pipeline.NewGraph(pipeline.ContainerMP4, "mux", "filesink").
		AddBranch(pipeline.StreamVideo, "video_src", pipeline.Parse(pipeline.ParserKind(42))).
		WriteTo("x.mp4")
	_, err = Describe(g)
	assert.True(t, errors.Is(err, pipeline.ErrInvalidGraph))
}
