package api

import (
	"net/http"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var req scene.CreateInput
	decoder := s.NewRequestDecoder(w, r)
	if decoder.DecodeJSON(&req).RespondError() {
		return
	}
	req = req.Normalize()
	if decoder.Validate(req).RespondError() {
		return
	}

	sc, err := s.store.Create(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, "create scene", err)
		return
	}
	s.logger.Info("scene created", logging.SceneID(sc.ID), logging.String("project_id", sc.ProjectID))
	s.respondJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	if project == "" {
		s.respondError(w, http.StatusBadRequest, "project query parameter is required")
		return
	}
	scenes, err := s.store.List(r.Context(), project)
	if err != nil {
		s.respondErr(w, r, "list scenes", err)
		return
	}
	if scenes == nil {
		scenes = []scene.Scene{}
	}
	s.respondJSON(w, http.StatusOK, scenes)
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "get scene", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	var req UpdateSceneRequest
	decoder := s.NewRequestDecoder(w, r)
	if decoder.DecodeJSON(&req).Validate(req).RespondError() {
		return
	}
	sc, err := s.store.Update(r.Context(), r.PathValue("id"), scene.Patch{Name: req.Name, Description: req.Description})
	if err != nil {
		s.respondErr(w, r, "update scene", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondErr(w, r, "delete scene", err)
		return
	}
	s.sessions.drop(id)
	s.logger.Info("scene deleted", logging.SceneID(id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Duplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "duplicate scene", err)
		return
	}
	s.logger.Info("scene duplicated", logging.SceneID(sc.ID), logging.String("source_id", r.PathValue("id")))
	s.respondJSON(w, http.StatusCreated, sc)
}

// handleArchiveScene writes the stored scene and its run history to the
// archive bucket.
func (s *Server) handleArchiveScene(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		s.respondErr(w, r, "archive scene", scene.ErrArchiveDisabled)
		return
	}
	id := r.PathValue("id")
	sc, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, "archive scene", err)
		return
	}
	runs, err := s.store.Runs(r.Context(), id, 0)
	if err != nil {
		s.respondErr(w, r, "archive scene", err)
		return
	}
	key, err := s.archiver.Archive(r.Context(), sc, runs)
	if err != nil {
		s.respondErr(w, r, "archive scene", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ArchiveResponse{Key: key, Runs: len(runs)})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.store.Runs(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.respondErr(w, r, "list runs", err)
		return
	}
	if runs == nil {
		runs = []simulation.Run{}
	}
	s.respondJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}
