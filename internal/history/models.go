package history

import "time"

// Outcome is the final or current disposition of a recording.
type Outcome string

const (
	OutcomeRecording Outcome = "recording"
	OutcomeFinished  Outcome = "finished"
	OutcomeFailed    Outcome = "failed"
)

// Entry describes one recording attempt, keyed by its file sequence number.
type Entry struct {
	Sequence   int      `json:"sequence"`
	ID         string   `json:"recording_id"`
	File       string   `json:"file"`
	AudioCodec string   `json:"audio_codec"`
	VideoCodec string   `json:"video_codec"`
	Streams    []string `json:"streams"`
	Outcome    Outcome  `json:"outcome"`
	Error      string   `json:"error,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	Summary
}

// Summary is what a recording accumulated by the time it stopped.
type Summary struct {
	VideoBuffers int     `json:"video_buffers"`
	AudioBuffers int     `json:"audio_buffers"`
	SilenceMS    float64 `json:"silence_ms"`
	// Drained is false when the pipeline did not confirm end of stream in time.
	Drained bool `json:"drained"`
}
