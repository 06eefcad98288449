package mux

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"mux-recorder/internal/history"

	"github.com/go-chi/chi/v5"
)

// maxUnitSize bounds one pushed access unit or audio frame.
const maxUnitSize = 8 << 20

// Handler exposes the Controller over HTTP using go-chi.
type Handler struct {
	ctrl *Controller
	log  *slog.Logger
}

// NewHandler returns a Handler for ctrl.
func NewHandler(ctrl *Controller, log *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, log: log}
}

// Register mounts the recorder routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/codecs/audio", h.ChooseAudioCodec)
	r.Post("/codecs/video", h.ChooseVideoCodec)
	r.Post("/streams/{stream}", h.Push)
	r.Route("/recording", func(r chi.Router) {
		r.Get("/", h.Status)
		r.Post("/start", h.Start)
		r.Post("/stop", h.Stop)
	})
	r.Get("/recordings", h.ListRecordings)
	r.Get("/recordings/{sequence}", h.GetRecording)
}

type audioCodecRequest struct {
	CompressionType *int `json:"compression_type"`
}

type videoCodecRequest struct {
	H265 bool `json:"h265"`
}

// ChooseAudioCodec handles POST /codecs/audio.
// Body: { "compression_type": 8 }.
func (h *Handler) ChooseAudioCodec(w http.ResponseWriter, r *http.Request) {
	var req audioCodecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CompressionType == nil {
		h.log.Debug("invalid audio codec body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	ct := *req.CompressionType
	if ct < 0 || ct > 255 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.respond(w, h.ctrl.ChooseAudioCodec(byte(ct)))
}

// ChooseVideoCodec handles POST /codecs/video.
// Body: { "h265": false }.
func (h *Handler) ChooseVideoCodec(w http.ResponseWriter, r *http.Request) {
	var req videoCodecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid video codec body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.respond(w, h.ctrl.ChooseVideoCodec(req.H265))
}

// Push handles POST /streams/{stream}?ntp=<nanoseconds>. The body is one
// access unit for video or one frame for audio.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	stream := chi.URLParam(r, "stream")
	if stream != "video" && stream != "audio" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ntp, err := strconv.ParseUint(r.URL.Query().Get("ntp"), 10, 64)
	if err != nil {
		h.log.Debug("invalid ntp timestamp", slog.String("stream", stream), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUnitSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if stream == "video" {
		h.ctrl.PushVideo(data, ntp)
	} else {
		h.ctrl.PushAudio(data, ntp)
	}
	w.WriteHeader(http.StatusAccepted)
}

// Start handles POST /recording/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.ctrl.Start())
}

// Stop handles POST /recording/stop. It blocks until the pipeline drains or
// the drain timeout passes.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Stop()
	h.writeStatus(w)
}

// Status handles GET /recording.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w)
}

// ListRecordings handles GET /recordings.
func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	entries := h.ctrl.History()
	if entries == nil {
		entries = []history.Entry{}
	}
	h.writeJSON(w, entries)
}

// GetRecording handles GET /recordings/{sequence}.
func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(chi.URLParam(r, "sequence"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	e, ok := h.ctrl.HistoryEntry(seq)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, e)
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		if errors.Is(err, ErrBuild) {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		h.log.Error("recorder request failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.writeStatus(w)
}

func (h *Handler) writeStatus(w http.ResponseWriter) {
	h.writeJSON(w, h.ctrl.Status())
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("write response failed", slog.String("error", err.Error()))
	}
}
