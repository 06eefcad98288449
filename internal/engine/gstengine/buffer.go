package gstengine

import (
	"fmt"
	"time"
	"unsafe"

	"mux-recorder/internal/pipeline"

	"github.com/go-gst/go-gst/gst"
)

// #cgo pkg-config: gstreamer-1.0
// #include <gst/gst.h>
//
// static void setBufferDTS(GstBuffer *buf, GstClockTime dts) { GST_BUFFER_DTS(buf) = dts; }
import "C"

// go-gst exposes no DTS setter.
func setDecodingTimestamp(buf *gst.Buffer, t gst.ClockTime) {
	C.setBufferDTS((*C.GstBuffer)(unsafe.Pointer(buf.Instance())), C.GstClockTime(t))
}

// clockTime maps a buffer time onto GStreamer's clock. Negative times,
// TimeNone included, are reported as unset.
func clockTime(d time.Duration) (gst.ClockTime, bool) {
	if d < 0 {
		return gst.ClockTimeNone, false
	}
	return gst.ClockTime(d), true
}

// busTimeout bounds a bus wait. A negative timeout polls.
func busTimeout(d time.Duration) gst.ClockTime {
	if d < 0 {
		return 0
	}
	return gst.ClockTime(d)
}

// messageMask translates completion kinds to a bus filter.
func messageMask(kinds []pipeline.MessageKind) gst.MessageType {
	var mask gst.MessageType
	for _, k := range kinds {
		switch k {
		case pipeline.MessageEOS:
			mask |= gst.MessageEOS
		case pipeline.MessageError:
			mask |= gst.MessageError
		}
	}
	return mask
}

// newBuffer wraps b for pushing, carrying over every set time.
func newBuffer(b *pipeline.Buffer) *gst.Buffer {
	var buf *gst.Buffer
	if len(b.Data) == 0 {
		buf = gst.NewEmptyBuffer()
	} else {
		buf = gst.NewBufferFromBytes(b.Data)
	}
	if buf == nil {
		return nil
	}
	if t, ok := clockTime(b.PTS); ok {
		buf.SetPresentationTimestamp(t)
	}
	if t, ok := clockTime(b.DTS); ok {
		setDecodingTimestamp(buf, t)
	}
	if t, ok := clockTime(b.Duration); ok {
		buf.SetDuration(t)
	}
	return buf
}

// busMessage converts a popped bus message.
func busMessage(msg *gst.Message) *pipeline.Message {
	if msg.Type() != gst.MessageError {
		return &pipeline.Message{Kind: pipeline.MessageEOS, Source: msg.Source()}
	}
	out := &pipeline.Message{Kind: pipeline.MessageError, Source: msg.Source()}
	if gerr := msg.ParseError(); gerr != nil {
		out.Err = fmt.Errorf("%s (%s)", gerr.Error(), gerr.DebugString())
	}
	return out
}
