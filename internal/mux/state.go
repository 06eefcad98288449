package mux

// State is the recording state of a Controller.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// trigger is an event that may move the Controller between states.
type trigger int

const (
	triggerStart trigger = iota
	triggerStop
	triggerAudioCodec
	triggerVideoCodec
)

func (t trigger) String() string {
	switch t {
	case triggerStart:
		return "start"
	case triggerStop:
		return "stop"
	case triggerAudioCodec:
		return "audio_codec"
	case triggerVideoCodec:
		return "video_codec"
	default:
		return "unknown"
	}
}

// step is what a trigger does: tear the live recording down, build a new
// one, or both in that order.
type step struct {
	teardown bool
	build    bool
}

// transition decides the step for t given the current state, the codecs the
// live recording was built with and the codecs now negotiated.
//
// A codec mismatch while recording tears down. An audio selection only builds
// for ALAC; a video selection always asks for a build, which is a no-op when
// a recording with matching codecs is live.
func transition(s State, t trigger, built, wanted CodecState) step {
	recording := s == StateRecording
	switch t {
	case triggerStart:
		return step{build: !recording}
	case triggerStop:
		return step{teardown: recording}
	case triggerAudioCodec:
		down := recording && built.Audio != wanted.Audio
		return step{
			teardown: down,
			build:    wanted.Audio == AudioALAC && (!recording || down),
		}
	case triggerVideoCodec:
		down := recording && built.Video != wanted.Video
		return step{teardown: down, build: !recording || down}
	default:
		return step{}
	}
}
