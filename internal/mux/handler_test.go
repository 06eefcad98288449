package mux

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mux-recorder/internal/engine/memengine"
	"mux-recorder/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts ...memengine.Option) (*chi.Mux, *memengine.Engine) {
	t.Helper()
	c, eng := newTestController(t, bothStreams(), opts...)
	r := chi.NewRouter()
	NewHandler(c, newTestLogger()).Register(r)
	return r, eng
}

func do(t *testing.T, r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) Status {
	t.Helper()
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return st
}

func TestHandler_recordingFlow(t *testing.T) {
	r, eng := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/codecs/video", []byte(`{"h265":false}`))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, "recording", st.State)
	assert.Equal(t, "rec.1.H264.AAC.mp4", st.File)
	assert.Equal(t, []string{"video", "audio"}, st.Streams)
	assert.NotEmpty(t, st.RecordingID)

	rec = do(t, r, http.MethodPost, "/codecs/audio", []byte(`{"compression_type":8}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/streams/video?ntp=5000000000", []byte("frame"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = do(t, r, http.MethodPost, "/streams/audio?ntp=5044100000", []byte("frame"))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	audio := eng.Last().Stream(pipeline.StreamAudio).Buffers()
	require.Len(t, audio, 2)
	assert.Len(t, audio[0].Data, 7776)

	rec = do(t, r, http.MethodGet, "/recording", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	st = decodeStatus(t, rec)
	assert.Equal(t, 1, st.VideoBuffers)
	assert.Equal(t, 1, st.AudioBuffers)
	assert.InDelta(t, 44.1, st.SilenceMS, 1e-9)

	rec = do(t, r, http.MethodPost, "/recording/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decodeStatus(t, rec).State)
	assert.True(t, eng.Last().Released())
}

func TestHandler_start(t *testing.T) {
	r, eng := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/recording/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPost, "/recording/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, eng.Builds())
}

func TestHandler_alac(t *testing.T) {
	r, eng := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/codecs/audio", []byte(`{"compression_type":2}`))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, "ALAC", st.AudioCodec)
	assert.Equal(t, []string{"audio"}, st.Streams)
	assert.Equal(t, "rec.1.ALAC.mp4", eng.Last().Graph().Location)
}

func TestHandler_buildFailure(t *testing.T) {
	r, _ := newTestRouter(t, memengine.WithBuildError(errors.New("no mp4mux")))

	rec := do(t, r, http.MethodPost, "/recording/start", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_badRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"audio codec not json", http.MethodPost, "/codecs/audio", "nope", http.StatusBadRequest},
		{"audio codec missing type", http.MethodPost, "/codecs/audio", `{}`, http.StatusBadRequest},
		{"audio codec out of range", http.MethodPost, "/codecs/audio", `{"compression_type":300}`, http.StatusBadRequest},
		{"video codec not json", http.MethodPost, "/codecs/video", "nope", http.StatusBadRequest},
		{"missing ntp", http.MethodPost, "/streams/video", "frame", http.StatusBadRequest},
		{"negative ntp", http.MethodPost, "/streams/audio?ntp=-1", "frame", http.StatusBadRequest},
		{"unknown stream", http.MethodPost, "/streams/subtitles?ntp=1", "frame", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/recording/stop", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.target, []byte(tt.body))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_unitTooLarge(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.Repeat("x", maxUnitSize+1)
	rec := do(t, r, http.MethodPost, "/streams/video?ntp=1", []byte(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_pushWithoutRecordingIsAccepted(t *testing.T) {
	r, eng := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/streams/video?ntp=1", []byte("frame"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Zero(t, eng.Builds())
}
