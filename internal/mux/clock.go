package mux

import (
	"math"
	"time"
)

// unset marks a network time that has not been observed yet.
const unset uint64 = math.MaxUint64

// clock maps network timestamps onto the presentation timeline of one
// recording. The origin is the first buffer of either stream.
type clock struct {
	base         uint64
	firstVideo   uint64
	firstAudio   uint64
	audioStarted bool
}

func newClock() clock {
	return clock{base: unset, firstVideo: unset, firstAudio: unset}
}

// stamp returns the presentation time of a buffer taken at ntp, setting the
// origin if this is the first buffer. Times before the origin clamp to zero.
func (c *clock) stamp(ntp uint64) time.Duration {
	if c.base == unset {
		c.base = ntp
	}
	if ntp < c.base {
		return 0
	}
	return time.Duration(ntp - c.base)
}

// markVideo latches the first video time.
func (c *clock) markVideo(ntp uint64) {
	if c.firstVideo == unset {
		c.firstVideo = ntp
	}
}

// startAudio records the first audio time and reports how far audio trails
// video. It returns zero on every call after the first, and when audio
// started at or before video.
func (c *clock) startAudio(ntp uint64) time.Duration {
	if c.audioStarted {
		return 0
	}
	c.audioStarted = true
	c.firstAudio = ntp
	if c.firstVideo == unset || ntp <= c.firstVideo {
		return 0
	}
	return time.Duration(ntp - c.firstVideo)
}

// reset forgets the origin so the next buffer starts a new timeline.
func (c *clock) reset() {
	c.base = unset
}

// origin returns the base time and whether it has been set.
func (c *clock) origin() (uint64, bool) {
	return c.base, c.base != unset
}
