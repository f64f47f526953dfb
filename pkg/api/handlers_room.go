package api

import (
	"net/http"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
)

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.room.Snapshot())
}

func (s *Server) handleSetDimensions(w http.ResponseWriter, r *http.Request) {
	var dims acoustics.Dimensions
	if s.NewRequestDecoder(w, r).DecodeJSON(&dims).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.save.Lock()
	defer sess.save.Unlock()
	if err := sess.room.SetDimensions(dims); err != nil {
		s.respondErr(w, r, "set dimensions", err)
		return
	}
	s.saveGeometry(w, r, sess)
}

// handleAssignMaterial puts a catalog material on one face. The face keeps
// its previous material when the new one cannot be resolved.
func (s *Server) handleAssignMaterial(w http.ResponseWriter, r *http.Request) {
	var req AssignMaterialRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).Validate(req).RespondError() {
		return
	}
	face, err := acoustics.ParseFace(r.PathValue("face"))
	if err != nil {
		s.respondErr(w, r, "assign material", err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var mat acoustics.Material
	if req.MaterialID == acoustics.DefaultMaterialID {
		mat = acoustics.Material{ID: acoustics.DefaultMaterialID}
	} else if mat, err = s.catalog.Material(r.Context(), req.MaterialID); err != nil {
		s.logger.Warn("material lookup failed",
			logging.SceneID(sess.sceneID), logging.Face(string(face)), logging.MaterialID(req.MaterialID), logging.Error(err))
		s.respondErr(w, r, "assign material", err)
		return
	}

	sess.save.Lock()
	defer sess.save.Unlock()
	if _, err := sess.room.AssignMaterial(face, &mat); err != nil {
		s.respondErr(w, r, "assign material", err)
		return
	}
	s.saveGeometry(w, r, sess)
}

func (s *Server) handleResetFace(w http.ResponseWriter, r *http.Request) {
	face, err := acoustics.ParseFace(r.PathValue("face"))
	if err != nil {
		s.respondErr(w, r, "reset face", err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.save.Lock()
	defer sess.save.Unlock()
	if _, err := sess.room.ResetFace(face); err != nil {
		s.respondErr(w, r, "reset face", err)
		return
	}
	s.saveGeometry(w, r, sess)
}

func (s *Server) handleSetSpeakers(w http.ResponseWriter, r *http.Request) {
	var speakers []room.Speaker
	if s.NewRequestDecoder(w, r).DecodeJSON(&speakers).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.save.Lock()
	defer sess.save.Unlock()
	if err := sess.room.SetSpeakers(speakers); err != nil {
		s.respondErr(w, r, "set speakers", err)
		return
	}
	if _, err := s.store.SaveSpeakers(r.Context(), sess.sceneID, sess.room.Speakers()); err != nil {
		s.respondErr(w, r, "set speakers", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.room.Snapshot())
}

// saveGeometry persists the room's dimensions and faces and answers with the
// room state. Callers hold sess.save.
func (s *Server) saveGeometry(w http.ResponseWriter, r *http.Request, sess *session) {
	if _, err := s.store.SaveGeometry(r.Context(), sess.sceneID, sess.geometry()); err != nil {
		s.respondErr(w, r, "save geometry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.room.Snapshot())
}
