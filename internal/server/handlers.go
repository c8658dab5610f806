package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/extract"
	"github.com/dgnsrekt/clipspeak/internal/text"
)

// Response messages.
const (
	msgTextRequired  = "Text is required"
	msgTextQueued    = "Text added to TTS queue."
	msgURLRequired   = "URL is required"
	msgURLQueued     = "Text extracted and added to TTS queue."
	msgExtractFailed = "Error processing your request: "
	msgStopped       = "TTS playback stopped and queue cleared."
	msgQueueClosed   = "TTS queue is not accepting jobs"
	msgNoExtractor   = "URL extraction is disabled"
)

type ttsRequest struct {
	Text string `json:"text"`
}

type extractRequest struct {
	URL string `json:"url"`
}

type healthResponse struct {
	Status string `json:"status"`
	Queue  int    `json:"queue"`
	State  string `json:"state"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Debug("Rejected /tts body", "err", err)
		writeText(w, http.StatusBadRequest, msgTextRequired)
		return
	}

	prepared := text.Prepare(req.Text)
	if prepared == "" {
		writeText(w, http.StatusBadRequest, msgTextRequired)
		return
	}

	if _, err := s.queue.EnqueueFrom("http", prepared); err != nil {
		log.Error("Could not enqueue text", "err", err)
		writeText(w, http.StatusServiceUnavailable, msgQueueClosed)
		return
	}
	writeText(w, http.StatusOK, msgTextQueued)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeText(w, http.StatusNotFound, msgNoExtractor)
		return
	}

	var req extractRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeText(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	raw, err := s.extractor.Extract(r.Context(), req.URL)
	if err != nil {
		log.Error("Could not extract text", "url", req.URL, "err", err)
		code := http.StatusInternalServerError
		if errors.Is(err, extract.ErrUnsupportedScheme) || errors.Is(err, extract.ErrPrivateAddress) {
			code = http.StatusBadRequest
		}
		writeText(w, code, msgExtractFailed+err.Error())
		return
	}

	prepared := text.Prepare(raw)
	if prepared == "" {
		writeText(w, http.StatusInternalServerError, msgExtractFailed+extract.ErrNoText.Error())
		return
	}

	if _, err := s.queue.EnqueueFrom("url", prepared); err != nil {
		log.Error("Could not enqueue extracted text", "err", err)
		writeText(w, http.StatusServiceUnavailable, msgQueueClosed)
		return
	}
	writeText(w, http.StatusOK, msgURLQueued)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	dropped := s.queue.Clear()
	log.Info("Playback stopped", "dropped", dropped)
	writeText(w, http.StatusOK, msgStopped)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status: "ok",
		Queue:  s.queue.Len(),
		State:  s.queue.State().String(),
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, msg)
}
