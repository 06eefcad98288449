package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaps_String(t *testing.T) {
	c := NewCaps("audio/mpeg",
		IntField("mpegversion", 4),
		IntField("channels", 2),
		IntField("rate", 44100),
		RawField("stream-format", "raw"),
		BufferField("codec_data", []byte{0xf8, 0xe8, 0x50, 0x00}),
	)

	assert.Equal(t,
		"audio/mpeg,mpegversion=(int)4,channels=(int)2,rate=(int)44100,stream-format=raw,codec_data=(buffer)f8e85000",
		c.String())
}

func TestCaps_String_noFields(t *testing.T) {
	assert.Equal(t, "video/x-h264", NewCaps("video/x-h264").String())
}

func TestCaps_Field(t *testing.T) {
	c := NewCaps("video/x-h265", StringField("alignment", "au"))

	f, ok := c.Field("alignment")
	require.True(t, ok)
	assert.Equal(t, "string", f.Type)
	assert.Equal(t, "au", f.Value)

	_, ok = c.Field("codec_data")
	assert.False(t, ok)
}
