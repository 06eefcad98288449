package mux

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
)

// isRandomAccess reports whether an Annex-B access unit can start decoding.
// Units that do not parse are not random access.
func isRandomAccess(v VideoCodec, data []byte) bool {
	var au h264.AnnexB
	if err := au.Unmarshal(data); err != nil {
		return false
	}
	if v == VideoH265 {
		return h265.IsRandomAccess(au)
	}
	return h264.IsRandomAccess(au)
}
