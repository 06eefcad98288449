package mux

import (
	"fmt"
	"time"

	"mux-recorder/internal/pipeline"
)

const bytesPerSample = 2

// maxSilence bounds the gap filled before late audio. A wider gap means the
// producer clocks disagree, and its buffer is treated as an allocation failure.
const maxSilence = time.Minute

// silenceSize returns the byte size of gap worth of 16-bit stereo PCM at the
// fixed sample rate. The sample count is truncated.
func silenceSize(gap time.Duration) int {
	if gap <= 0 {
		return 0
	}
	secs := int64(gap / time.Second)
	frac := int64(gap % time.Second)
	samples := secs*audioSampleRate + frac*audioSampleRate/int64(time.Second)
	return int(samples) * audioChannels * bytesPerSample
}

// silenceBuffer returns an all-zero buffer covering gap, placed at the start
// of the timeline. It fails with pipeline.ErrBufferAlloc past maxSilence.
func silenceBuffer(gap time.Duration) (*pipeline.Buffer, error) {
	if gap > maxSilence {
		return nil, fmt.Errorf("%w: %s of silence", pipeline.ErrBufferAlloc, gap)
	}
	return &pipeline.Buffer{
		Data:     make([]byte, silenceSize(gap)),
		PTS:      0,
		DTS:      0,
		Duration: gap,
	}, nil
}
