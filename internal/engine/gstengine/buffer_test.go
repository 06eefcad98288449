package gstengine

import (
	"testing"
	"time"

	"mux-recorder/internal/pipeline"

	"github.com/go-gst/go-gst/gst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTime(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want gst.ClockTime
		ok   bool
	}{
		{"zero", 0, 0, true},
		{"set", 44_100_000, 44_100_000, true},
		{"none", pipeline.TimeNone, gst.ClockTimeNone, false},
		{"negative", -time.Second, gst.ClockTimeNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := clockTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBusTimeout(t *testing.T) {
	assert.Equal(t, gst.ClockTime(5*time.Second), busTimeout(5*time.Second))
	assert.Equal(t, gst.ClockTime(0), busTimeout(-time.Second))
}

func TestMessageMask(t *testing.T) {
	assert.Equal(t, gst.MessageEOS, messageMask([]pipeline.MessageKind{pipeline.MessageEOS}))
	assert.Equal(t, gst.MessageEOS|gst.MessageError,
		messageMask([]pipeline.MessageKind{pipeline.MessageEOS, pipeline.MessageError}))
	assert.Zero(t, messageMask(nil))
}

func TestNewBuffer_timing(t *testing.T) {
	initOnce.Do(func() { gst.Init(nil) })

	b := pipeline.NewBuffer([]byte{1, 2, 3})
	b.PTS, b.DTS = 2*time.Second, 2*time.Second
	buf := newBuffer(b)
	require.NotNil(t, buf)
	assert.Equal(t, gst.ClockTime(2*time.Second), buf.PresentationTimestamp())
	assert.Equal(t, gst.ClockTime(2*time.Second), buf.DecodingTimestamp())
	assert.Equal(t, gst.ClockTimeNone, buf.Duration())
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())

	silence := pipeline.NewBuffer(make([]byte, 8))
	silence.PTS, silence.DTS, silence.Duration = 0, 0, 44_100_000
	buf = newBuffer(silence)
	require.NotNil(t, buf)
	assert.Equal(t, gst.ClockTime(0), buf.DecodingTimestamp())
	assert.Equal(t, gst.ClockTime(44_100_000), buf.Duration())
}

func TestNewBuffer_empty(t *testing.T) {
	initOnce.Do(func() { gst.Init(nil) })

	buf := newBuffer(pipeline.NewBuffer(nil))
	require.NotNil(t, buf)
	assert.Zero(t, buf.GetSize())
	assert.Equal(t, gst.ClockTimeNone, buf.PresentationTimestamp())
}
