package mux

import "time"

// DefaultDrainTimeout bounds how long Stop waits for the pipeline to finish.
const DefaultDrainTimeout = 5 * time.Second

// RendererConfig is fixed for the lifetime of a Controller.
type RendererConfig struct {
	// OutputPrefix is prepended to every output file name.
	OutputPrefix string
	Audio        bool
	Video        bool
	// DrainTimeout overrides DefaultDrainTimeout when positive.
	DrainTimeout time.Duration
}

// Inert reports whether there is nothing to record.
func (c RendererConfig) Inert() bool {
	return !c.Audio && !c.Video
}

func (c RendererConfig) drainTimeout() time.Duration {
	if c.DrainTimeout > 0 {
		return c.DrainTimeout
	}
	return DefaultDrainTimeout
}
