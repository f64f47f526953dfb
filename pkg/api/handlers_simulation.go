package api

import (
	"net/http"

	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// handleSimulate runs the scene's room through the engine. The request body
// is optional; an empty one runs the default type over the configured bands.
// Room speakers whose speaker node no longer feeds the simulation are left
// out, so an unwired chain fails validation before the engine is called.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if s.NewRequestDecoder(w, r).DecodeOptionalJSON(&req).Validate(req).RespondError() {
		return
	}
	simType := s.defaultType
	if req.SimulationType != "" {
		simType = simulation.Type(req.SimulationType)
	}
	bands := s.bands
	if len(req.Bands) > 0 {
		bands = req.Bands
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	faces := sess.room.FaceMaterials()
	in := simulation.Input{
		SceneID:    sess.sceneID,
		Type:       simType,
		Dimensions: sess.room.Dimensions(),
		Faces:      &faces,
		Speakers:   editor.WiredSpeakers(sess.chain.Graph(), sess.room.Speakers()),
		Bands:      bands,
	}

	out, err := s.runner.Run(r.Context(), in)
	if err != nil {
		s.respondErr(w, r, "simulate", err)
		return
	}
	s.respondJSON(w, http.StatusOK, SimulateResponse{
		Outcome: out,
		Summary: simulation.ToRequest(in.Dimensions, in.Faces, in.Speakers, in.Bands).Summary(),
		Export:  out.Report.Export(),
	})
}
