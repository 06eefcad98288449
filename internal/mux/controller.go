// Package mux records two timestamped elementary streams into one container
// file. A Controller owns at most one live recording, rebuilds it when the
// negotiated codecs change, aligns audio with video on a shared timeline and
// drains the pipeline before the file is closed.
package mux

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"mux-recorder/internal/history"
	"mux-recorder/internal/pipeline"
	"mux-recorder/internal/platform/metrics"

	"github.com/google/uuid"
)

// Element names inside every recording graph.
const (
	videoInput = "video_src"
	audioInput = "audio_src"
	muxName    = "mux"
	sinkName   = "filesink"
)

// ErrBuild is returned when the engine cannot construct or start a recording.
var ErrBuild = errors.New("mux pipeline construction failed")

// Controller is the recording context. All methods are safe for concurrent
// use; calls are serialized, and only Stop and Destroy block.
type Controller struct {
	mu      sync.Mutex
	cfg     RendererConfig
	engine  pipeline.Engine
	log     *slog.Logger
	metrics *metrics.Metrics
	history history.Repository

	codecs CodecState
	seq    int
	state  State
	rec    *recording
}

// recording is one pipeline instance and the timeline of what was pushed into it.
type recording struct {
	id      string
	seq     int
	file    string
	codecs  CodecState
	graph   *pipeline.Graph
	log     *slog.Logger
	started time.Time

	pipe  pipeline.Pipeline
	video pipeline.Input
	audio pipeline.Input
	sink  pipeline.Element
	bus   pipeline.Bus

	clock        clock
	keyframeSeen bool
	leadWarned   bool
	videoBuffers int
	audioBuffers int
	silence      time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithHistory records every recording attempt in repo.
func WithHistory(repo history.Repository) Option {
	return func(c *Controller) { c.history = repo }
}

// New returns a Controller. Metrics may be nil.
func New(cfg RendererConfig, engine pipeline.Engine, log *slog.Logger, m *metrics.Metrics, opts ...Option) *Controller {
	switch {
	case cfg.Inert():
		log.Info("audio and video are both disabled, nothing to record")
	case !cfg.Audio:
		log.Info("audio is disabled, recording video only")
	case !cfg.Video:
		log.Info("video is disabled, recording audio only")
	}
	if !cfg.Inert() {
		log.Info("mux recorder initialized", slog.String("prefix", cfg.OutputPrefix))
	}
	c := &Controller{cfg: cfg, engine: engine, log: log, metrics: m}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start builds a recording for the negotiated codecs unless one is live.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Inert() {
		return nil
	}
	return c.apply(triggerStart)
}

// ChooseAudioCodec records the audio compression type negotiated by the
// sender. A classification change drops the live recording; ALAC starts a new
// one straight away.
func (c *Controller) ChooseAudioCodec(compressionType byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Inert() || !c.cfg.Audio {
		return nil
	}
	c.codecs.Audio = ClassifyAudio(compressionType)
	c.log.Debug("mux audio codec selected",
		slog.Int("compression_type", int(compressionType)),
		slog.String("codec", c.codecs.Audio.String()))
	return c.apply(triggerAudioCodec)
}

// ChooseVideoCodec records the negotiated video codec and starts a recording,
// replacing a live one built for the other codec.
func (c *Controller) ChooseVideoCodec(h265 bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Inert() {
		return nil
	}
	c.codecs.Video = VideoH264
	if h265 {
		c.codecs.Video = VideoH265
	}
	c.log.Debug("mux video codec selected", slog.String("codec", c.codecs.Video.String()))
	return c.apply(triggerVideoCodec)
}

// Stop ends the live recording: it signals end of stream on every input,
// waits up to the drain timeout for the pipeline to finish, then releases it.
// Negotiated codecs return to their defaults.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
}

// Destroy stops the live recording and forgets it.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
	c.rec = nil
}

func (c *Controller) stop() {
	if c.state != StateRecording {
		return
	}
	_ = c.apply(triggerStop)
	c.codecs = CodecState{}
}

func (c *Controller) apply(t trigger) error {
	built := c.codecs
	if c.rec != nil {
		built = c.rec.codecs
	}
	s := transition(c.state, t, built, c.codecs)
	if s.teardown {
		if t != triggerStop {
			c.rec.log.Debug("codec changed, recreating recording", slog.String("trigger", t.String()))
		}
		c.teardown()
		if t != triggerStop {
			c.rec = nil
		}
	}
	if s.build {
		return c.build()
	}
	if t == triggerStart && c.state == StateRecording {
		c.rec.log.Debug("mux recording already running")
	}
	return nil
}

// outputName returns <prefix>.<seq>.[video tag.][audio tag.]<ext>.
func outputName(cfg RendererConfig, seq int, codecs CodecState, container pipeline.Container) string {
	var b strings.Builder
	b.WriteString(cfg.OutputPrefix)
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(seq))
	b.WriteByte('.')
	if recordsVideo(cfg, codecs) {
		b.WriteString(codecs.Video.Tag())
		b.WriteByte('.')
	}
	if cfg.Audio {
		b.WriteString(codecs.Audio.Tag())
		b.WriteByte('.')
	}
	b.WriteString(container.Extension())
	return b.String()
}

// recordsVideo reports whether a recording gets a video branch. ALAC audio
// is muxed without video.
func recordsVideo(cfg RendererConfig, codecs CodecState) bool {
	return cfg.Video && codecs.Audio != AudioALAC
}

// buildGraph describes the recording pipeline for the given codecs.
func buildGraph(cfg RendererConfig, codecs CodecState, location string) *pipeline.Graph {
	g := pipeline.NewGraph(pipeline.ContainerMP4, muxName, sinkName)
	if recordsVideo(cfg, codecs) {
		g.AddBranch(pipeline.StreamVideo, videoInput, pipeline.Queue(), videoParser(codecs.Video))
	}
	if cfg.Audio {
		stages := []pipeline.Stage{pipeline.Queue()}
		if codecs.Audio == AudioAAC {
			stages = append(stages, pipeline.Parse(pipeline.ParserAAC), pipeline.Queue())
		}
		g.AddBranch(pipeline.StreamAudio, audioInput, stages...)
	}
	return g.WriteTo(location)
}

func (c *Controller) build() error {
	c.rec = nil
	c.state = StateIdle
	c.seq++

	rec := &recording{
		id:     uuid.NewString(),
		seq:    c.seq,
		codecs: c.codecs,
		clock:  newClock(),
	}
	rec.file = outputName(c.cfg, rec.seq, rec.codecs, pipeline.ContainerMP4)
	rec.graph = buildGraph(c.cfg, rec.codecs, rec.file)
	rec.log = c.log.With(slog.String("recording_id", rec.id), slog.Int("sequence", rec.seq))
	rec.log.Debug("created mux pipeline", slog.String("graph", rec.graph.String()))

	p, err := c.engine.Build(rec.graph)
	if err != nil {
		return c.buildFailed(rec, err)
	}
	rec.pipe = p
	if err := c.attach(rec); err != nil {
		rec.release()
		return c.buildFailed(rec, err)
	}
	if err := p.SetState(pipeline.StatePlaying); err != nil {
		rec.release()
		return c.buildFailed(rec, err)
	}

	rec.started = time.Now()
	c.rec = rec
	c.state = StateRecording
	if c.metrics != nil {
		c.metrics.IncRecordingsStarted()
	}
	rec.log.Info("started recording",
		slog.String("file", rec.file),
		slog.String("audio", rec.codecs.Audio.String()),
		slog.String("video", rec.codecs.Video.String()))
	if c.history != nil {
		if err := c.history.Begin(rec.entry()); err != nil {
			rec.log.Warn("recording history", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *Controller) buildFailed(rec *recording, err error) error {
	rec.log.Error("mux pipeline error", slog.String("file", rec.file), slog.String("error", err.Error()))
	if c.metrics != nil {
		c.metrics.IncPipelineFailures()
	}
	if c.history != nil {
		if herr := c.history.Fail(rec.entry(), err); herr != nil {
			rec.log.Warn("recording history", slog.String("error", herr.Error()))
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrBuild, rec.file, err)
}

// attach looks up the named handles of a freshly built pipeline and
// negotiates the buffer format of every input.
func (c *Controller) attach(rec *recording) error {
	for _, br := range rec.graph.Branches {
		in, err := rec.pipe.Input(br.Input)
		if err != nil {
			return err
		}
		caps := VideoCaps(rec.codecs.Video)
		if br.Stream == pipeline.StreamAudio {
			caps = AudioCaps(rec.codecs.Audio)
		}
		if err := in.SetCaps(caps); err != nil {
			in.Release()
			return fmt.Errorf("negotiate %s caps: %w", br.Stream, err)
		}
		if br.Stream == pipeline.StreamAudio {
			rec.audio = in
		} else {
			rec.video = in
		}
	}

	sink, err := rec.pipe.Element(rec.graph.SinkName)
	if err != nil {
		return err
	}
	rec.sink = sink

	bus, err := rec.pipe.Bus()
	if err != nil {
		return err
	}
	rec.bus = bus
	return nil
}

// teardown drains and releases the live recording, leaving it in place with
// no handles.
func (c *Controller) teardown() {
	rec := c.rec
	for _, in := range []pipeline.Input{rec.video, rec.audio} {
		if in == nil {
			continue
		}
		if err := in.EndOfStream(); err != nil {
			rec.log.Warn("end of stream failed", slog.String("stream", in.Name()), slog.String("error", err.Error()))
		}
	}

	timeout := c.cfg.drainTimeout()
	msg, ok := rec.bus.TimedPop(timeout, pipeline.MessageEOS, pipeline.MessageError)
	drained := ok && msg.Kind == pipeline.MessageEOS
	switch {
	case !ok:
		rec.log.Warn("timed out waiting for mux pipeline to drain", slog.Duration("timeout", timeout))
		if c.metrics != nil {
			c.metrics.IncDrainTimeouts()
		}
	case msg.Kind == pipeline.MessageError:
		attrs := []any{slog.String("source", msg.Source)}
		if msg.Err != nil {
			attrs = append(attrs, slog.String("error", msg.Err.Error()))
		}
		rec.log.Error("mux pipeline error while draining", attrs...)
	default:
		rec.log.Debug("mux pipeline drained")
	}

	if err := rec.pipe.SetState(pipeline.StateNull); err != nil {
		rec.log.Warn("stopping mux pipeline failed", slog.String("error", err.Error()))
	}
	rec.release()
	rec.clock.reset()
	c.state = StateIdle

	rec.log.Info("stopped recording",
		slog.String("file", rec.file),
		slog.Duration("elapsed", time.Since(rec.started)),
		slog.Int("video_buffers", rec.videoBuffers),
		slog.Int("audio_buffers", rec.audioBuffers))
	if c.history != nil {
		sum := rec.summary()
		sum.Drained = drained
		if err := c.history.Finish(rec.seq, sum); err != nil {
			rec.log.Warn("recording history", slog.String("error", err.Error()))
		}
	}
}

func (r *recording) streams() []string {
	out := make([]string, 0, len(r.graph.Branches))
	for _, br := range r.graph.Branches {
		out = append(out, br.Stream.String())
	}
	return out
}

func (r *recording) entry() history.Entry {
	return history.Entry{
		Sequence:   r.seq,
		ID:         r.id,
		File:       r.file,
		AudioCodec: r.codecs.Audio.String(),
		VideoCodec: r.codecs.Video.String(),
		Streams:    r.streams(),
		StartedAt:  r.started,
	}
}

func (r *recording) summary() history.Summary {
	return history.Summary{
		VideoBuffers: r.videoBuffers,
		AudioBuffers: r.audioBuffers,
		SilenceMS:    float64(r.silence) / float64(time.Millisecond),
	}
}

// release drops every handle, sub-handles before the pipeline.
func (r *recording) release() {
	if r.video != nil {
		r.video.Release()
		r.video = nil
	}
	if r.audio != nil {
		r.audio.Release()
		r.audio = nil
	}
	if r.sink != nil {
		r.sink.Release()
		r.sink = nil
	}
	if r.bus != nil {
		r.bus.Release()
		r.bus = nil
	}
	if r.pipe != nil {
		r.pipe.Release()
		r.pipe = nil
	}
}

// Status is a snapshot of the Controller.
type Status struct {
	State        string   `json:"state"`
	Inert        bool     `json:"inert,omitempty"`
	AudioCodec   string   `json:"audio_codec"`
	VideoCodec   string   `json:"video_codec"`
	RecordingID  string   `json:"recording_id,omitempty"`
	Sequence     int      `json:"sequence"`
	File         string   `json:"file,omitempty"`
	Streams      []string `json:"streams,omitempty"`
	VideoBuffers int      `json:"video_buffers"`
	AudioBuffers int      `json:"audio_buffers"`
	SilenceMS    float64  `json:"silence_ms"`
}

// Status returns the current state and, if there is one, the last recording.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:      c.state.String(),
		Inert:      c.cfg.Inert(),
		AudioCodec: c.codecs.Audio.String(),
		VideoCodec: c.codecs.Video.String(),
		Sequence:   c.seq,
	}
	if c.rec == nil {
		return st
	}
	sum := c.rec.summary()
	st.RecordingID = c.rec.id
	st.File = c.rec.file
	st.Streams = c.rec.streams()
	st.VideoBuffers = sum.VideoBuffers
	st.AudioBuffers = sum.AudioBuffers
	st.SilenceMS = sum.SilenceMS
	return st
}

// History returns past and live recordings, oldest first, or nil when no
// history is kept.
func (c *Controller) History() []history.Entry {
	if c.history == nil {
		return nil
	}
	return c.history.List()
}

// HistoryEntry returns the recording with file sequence seq.
func (c *Controller) HistoryEntry(seq int) (history.Entry, bool) {
	if c.history == nil {
		return history.Entry{}, false
	}
	return c.history.Get(seq)
}

// Recording reports whether a recording is live.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRecording
}
