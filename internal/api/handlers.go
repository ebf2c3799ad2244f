package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/AFK4203/Book-generator-V3/internal/core"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

type generateRequest struct {
	StoryData story.Input `json:"story_data"`
}

type generateResponse struct {
	SessionID            string `json:"session_id"`
	Message              string `json:"message"`
	EstimatedTimeMinutes int    `json:"estimated_time_minutes"`
}

type progressResponse struct {
	SessionID            string      `json:"session_id"`
	CurrentPhase         story.Phase `json:"current_phase"`
	Progress             float64     `json:"progress"`
	EstimatedTimeMinutes int         `json:"estimated_time_minutes,omitempty"`
	ErrorMessage         string      `json:"error_message,omitempty"`
}

type previewResponse struct {
	SessionID      string          `json:"session_id"`
	Chapters       []story.Chapter `json:"chapters"`
	TotalWordCount int             `json:"total_word_count"`
}

type downloadResponse struct {
	SessionID     string `json:"session_id"`
	DownloadURL   string `json:"download_url"`
	FileName      string `json:"file_name"`
	TotalChapters int    `json:"total_chapters"`
	TotalWords    int    `json:"total_words"`
}

// handleGenerate starts a generation session. The returned estimate is
// the heuristic plan's; the orchestrator refines it once the run is
// underway.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	session, err := s.manager.Start(r.Context(), req.StoryData)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	snap := session.Snapshot()
	s.writeJSON(w, http.StatusOK, generateResponse{
		SessionID:            session.ID,
		Message:              "Story generation started",
		EstimatedTimeMinutes: initialEstimate(&snap.Input),
	})
}

// initialEstimate plans with the deterministic heuristic analysis so
// the start response carries a usable number without a generation
// call.
func initialEstimate(in *story.Input) int {
	o := core.NewOrchestrator(nil, nil)
	analysis := core.Analysis{
		ComplexityLevel:       7,
		WorldbuildingRequired: in.HasWorldMaterial(),
	}
	return o.EstimateTotal(o.Plan(in, analysis))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (story.Snapshot, bool) {
	id := chi.URLParam(r, "sessionID")
	snap, err := s.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "Session not found")
		} else {
			s.logger.Error("loading session failed", "session_id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "loading session failed")
		}
		return story.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, progressResponse{
		SessionID:            snap.ID,
		CurrentPhase:         snap.CurrentPhase,
		Progress:             snap.Progress,
		EstimatedTimeMinutes: snap.EstimatedMinutes,
		ErrorMessage:         snap.ErrorMessage,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session(w, r)
	if !ok {
		return
	}
	total := 0
	for _, ch := range snap.Chapters {
		total += ch.WordCount
	}
	chapters := snap.Chapters
	if chapters == nil {
		chapters = []story.Chapter{}
	}
	s.writeJSON(w, http.StatusOK, previewResponse{
		SessionID:      snap.ID,
		Chapters:       chapters,
		TotalWordCount: total,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session(w, r)
	if !ok {
		return
	}
	if snap.DocumentPath == "" {
		s.writeError(w, http.StatusBadRequest, "Story not ready for download")
		return
	}
	if _, err := os.Stat(snap.DocumentPath); err != nil {
		s.writeError(w, http.StatusNotFound, "Generated file not found")
		return
	}

	total := 0
	for _, ch := range snap.Chapters {
		total += ch.WordCount
	}
	s.writeJSON(w, http.StatusOK, downloadResponse{
		SessionID:     snap.ID,
		DownloadURL:   fmt.Sprintf("/api/story/%s/file", snap.ID),
		FileName:      filepath.Base(snap.DocumentPath),
		TotalChapters: len(snap.Chapters),
		TotalWords:    total,
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session(w, r)
	if !ok {
		return
	}
	if snap.DocumentPath == "" {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if _, err := os.Stat(snap.DocumentPath); err != nil {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(snap.DocumentPath)))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, snap.DocumentPath)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.manager.Cancel(r.Context(), snap.ID) {
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "Story generation cancelled"})
		return
	}
	s.writeError(w, http.StatusConflict, "Session is not running")
}
