package mux

import "mux-recorder/internal/pipeline"

// AudioCodec is the negotiated audio elementary-stream format.
type AudioCodec int

const (
	AudioAAC AudioCodec = iota
	AudioALAC
)

// Tag is the filename tag for the codec.
func (a AudioCodec) Tag() string {
	if a == AudioALAC {
		return "ALAC"
	}
	return "AAC"
}

func (a AudioCodec) String() string { return a.Tag() }

// VideoCodec is the negotiated video elementary-stream format.
type VideoCodec int

const (
	VideoH264 VideoCodec = iota
	VideoH265
)

// Tag is the filename tag for the codec.
func (v VideoCodec) Tag() string {
	if v == VideoH265 {
		return "H265"
	}
	return "H264"
}

func (v VideoCodec) String() string { return v.Tag() }

// Audio compression types as negotiated by the sender.
const (
	CompressionLPCM   byte = 1
	CompressionALAC   byte = 2
	CompressionAACLC  byte = 4
	CompressionAACELD byte = 8
)

// ClassifyAudio maps a negotiated compression type to a codec. Only ALAC is
// distinguished; everything else is muxed as AAC.
func ClassifyAudio(compressionType byte) AudioCodec {
	if compressionType == CompressionALAC {
		return AudioALAC
	}
	return AudioAAC
}

// CodecState is the currently negotiated codec pair.
type CodecState struct {
	Audio AudioCodec
	Video VideoCodec
}

const (
	audioChannels   = 2
	audioSampleRate = 44100
)

// aacELDConfig is the AudioSpecificConfig of the AAC-ELD stream senders produce:
// object type 39, 44.1 kHz, stereo, 480-sample frames.
var aacELDConfig = []byte{0xf8, 0xe8, 0x50, 0x00}

// alacMagicCookie is the 36-byte 'alac' atom for 16-bit stereo 44.1 kHz,
// 352 frames per packet.
var alacMagicCookie = []byte{
	0x00, 0x00, 0x00, 0x24, 0x61, 0x6c, 0x61, 0x63,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x60,
	0x00, 0x10, 0x28, 0x0a, 0x0e, 0x02, 0x00, 0xff,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0xac, 0x44,
}

// VideoCaps returns the buffer format a video input is negotiated with.
func VideoCaps(v VideoCodec) pipeline.Caps {
	media := "video/x-h264"
	if v == VideoH265 {
		media = "video/x-h265"
	}
	return pipeline.NewCaps(media,
		pipeline.StringField("stream-format", "byte-stream"),
		pipeline.StringField("alignment", "au"),
	)
}

// AudioCaps returns the buffer format an audio input is negotiated with,
// including the fixed codec configuration blob.
func AudioCaps(a AudioCodec) pipeline.Caps {
	media, blob := "audio/mpeg", aacELDConfig
	if a == AudioALAC {
		media, blob = "audio/x-alac", alacMagicCookie
	}
	return pipeline.NewCaps(media,
		pipeline.IntField("mpegversion", 4),
		pipeline.IntField("channels", audioChannels),
		pipeline.IntField("rate", audioSampleRate),
		pipeline.RawField("stream-format", "raw"),
		pipeline.BufferField("codec_data", blob),
	)
}

// videoParser returns the parser stage for a video codec.
func videoParser(v VideoCodec) pipeline.Stage {
	if v == VideoH265 {
		return pipeline.Parse(pipeline.ParserH265)
	}
	return pipeline.Parse(pipeline.ParserH264)
}
