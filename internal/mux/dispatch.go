package mux

import (
	"errors"
	"log/slog"
	"time"

	"mux-recorder/internal/pipeline"
)

// PushVideo forwards one video access unit captured at network time ntp.
// It is a no-op when video is disabled or not being recorded.
func (c *Controller) PushVideo(data []byte, ntp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cfg.Video || c.rec == nil || c.rec.video == nil {
		return
	}
	rec := c.rec

	rec.clock.markVideo(ntp)
	buf := pipeline.NewBuffer(data)
	pts := rec.clock.stamp(ntp)
	buf.PTS, buf.DTS = pts, pts

	if isRandomAccess(rec.codecs.Video, data) {
		if c.metrics != nil {
			c.metrics.IncKeyframes()
		}
		if !rec.keyframeSeen {
			rec.keyframeSeen = true
			rec.log.Debug("first random access video unit", slog.Duration("pts", pts))
		}
	} else if !rec.keyframeSeen && !rec.leadWarned {
		rec.leadWarned = true
		rec.log.Warn("video starts without a random access unit")
	}

	if c.forward(rec, rec.video, pipeline.StreamVideo, buf) {
		rec.videoBuffers++
	}
}

// PushAudio forwards one audio frame captured at network time ntp. The first
// frame of a recording that trails the first video frame is preceded by
// silence covering the gap.
func (c *Controller) PushAudio(data []byte, ntp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cfg.Audio || c.rec == nil || c.rec.audio == nil {
		return
	}
	rec := c.rec

	if gap := rec.clock.startAudio(ntp); gap > 0 {
		c.insertSilence(rec, gap)
	}

	buf := pipeline.NewBuffer(data)
	pts := rec.clock.stamp(ntp)
	buf.PTS, buf.DTS = pts, pts
	if c.forward(rec, rec.audio, pipeline.StreamAudio, buf) {
		rec.audioBuffers++
	}
}

// insertSilence fills gap ahead of the first audio frame. A gap too wide to
// fill is dropped like any other buffer; the audio itself still goes through.
func (c *Controller) insertSilence(rec *recording, gap time.Duration) {
	buf, err := silenceBuffer(gap)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncBuffersDropped(pipeline.StreamAudio.String())
		}
		rec.log.Warn("silence dropped", slog.Duration("gap", gap), slog.String("error", err.Error()))
		return
	}
	if !c.forward(rec, rec.audio, pipeline.StreamAudio, buf) {
		return
	}
	rec.silence = gap
	if c.metrics != nil {
		c.metrics.AddSilence(gap.Seconds())
	}
	rec.log.Debug("inserted silence before audio",
		slog.Float64("silence_ms", float64(gap)/float64(time.Millisecond)))
}

// forward pushes buf into in. A buffer the engine does not take is dropped.
func (c *Controller) forward(rec *recording, in pipeline.Input, stream pipeline.StreamKind, buf *pipeline.Buffer) bool {
	if err := in.Push(buf); err != nil {
		if c.metrics != nil {
			c.metrics.IncBuffersDropped(stream.String())
		}
		if !errors.Is(err, pipeline.ErrBufferAlloc) {
			rec.log.Debug("buffer dropped", slog.String("stream", stream.String()), slog.String("error", err.Error()))
		}
		return false
	}
	if c.metrics != nil {
		c.metrics.ObserveBuffer(stream.String(), len(buf.Data))
	}
	return true
}
