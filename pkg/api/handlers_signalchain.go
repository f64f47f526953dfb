package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
)

// session resolves the {id} path value to a live editing session, writing
// the error response when that fails.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, err := s.sessions.get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "open scene", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSignalChain(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, SignalChainResponse{
		Snapshot:   sess.chain.Snapshot(),
		Violations: sess.violations,
	})
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).Validate(req).RespondError() {
		return
	}
	t, err := signalchain.ParseNodeType(req.Type)
	if err != nil {
		s.respondErr(w, r, "add node", err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := sess.chain.AddNode(t, req.Position)
	if err != nil {
		s.respondErr(w, r, "add node", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).Validate(req).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	nodeID := r.PathValue("nodeId")

	patch := editor.NodePatch{Label: req.Label, CatalogID: req.CatalogID, Settings: req.Settings}
	if req.CatalogID != nil && *req.CatalogID != "" {
		item, err := s.resolveCatalogItem(r, sess, nodeID, *req.CatalogID)
		if err != nil {
			s.respondErr(w, r, "update node", err)
			return
		}
		patch.CatalogData = &item
	}

	n, err := sess.chain.UpdateNodeData(nodeID, patch)
	if err != nil {
		s.respondErr(w, r, "update node", err)
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

// resolveCatalogItem looks catalogID up in the catalog section matching the
// node's type. Node types without a catalog section accept no catalog id.
func (s *Server) resolveCatalogItem(r *http.Request, sess *session, nodeID, catalogID string) (catalog.Item, error) {
	n, found := sess.chain.Graph().Node(nodeID)
	if !found {
		return catalog.Item{}, fmt.Errorf("%w: %s", signalchain.ErrNodeNotFound, nodeID)
	}
	kind, ok := n.Type.CatalogKind()
	if !ok {
		return catalog.Item{}, fmt.Errorf("%w: %s nodes take no catalog item", catalog.ErrUnknownKind, n.Type)
	}
	item, err := s.catalog.Get(r.Context(), kind, catalogID)
	if err != nil {
		return catalog.Item{}, err
	}
	if _, err := item.Spec(); err != nil {
		return catalog.Item{}, err
	}
	return item, nil
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.chain.DeleteNode(r.PathValue("nodeId")); err != nil {
		s.respondErr(w, r, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodeHandles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	layout, err := sess.chain.Handles(r.PathValue("nodeId"))
	if err != nil {
		s.respondErr(w, r, "node handles", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"inputs":  layout.InputHandles(),
		"outputs": layout.OutputHandles(),
	})
}

func (s *Server) handleSelectNode(w http.ResponseWriter, r *http.Request) {
	var req SelectNodeRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.chain.SelectNode(req.NodeID); err != nil {
		s.respondErr(w, r, "select node", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.chain.Snapshot())
}

// handleConnect validates one proposed edge. A rejection is a 422 carrying
// the verdict; the graph is left as it was.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	edge, verdict := sess.chain.Connect(req.connection())
	if !verdict.Allowed {
		s.respondJSON(w, http.StatusUnprocessableEntity, ConnectionRejectedResponse{
			ErrorResponse: ErrorResponse{
				Error:   http.StatusText(http.StatusUnprocessableEntity),
				Message: verdict.Message,
				Code:    http.StatusUnprocessableEntity,
			},
			Verdict: verdict,
		})
		return
	}
	s.respondJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleApplyChanges(w http.ResponseWriter, r *http.Request) {
	var req ChangesRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp := ChangesResponse{
		Nodes: sess.chain.ApplyNodeChanges(req.Nodes),
		Edges: sess.chain.ApplyEdgeChanges(req.Edges),
	}
	resp.Snapshot = sess.chain.Snapshot()
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSaveSignalChain writes the editor graph to the scene's instrument
// setup and clears the unsaved flag.
func (s *Server) handleSaveSignalChain(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.save.Lock()
	defer sess.save.Unlock()

	g := sess.chain.Graph()
	sc, err := s.store.SaveInstrumentSetup(r.Context(), sess.sceneID, g)
	if err != nil {
		s.respondErr(w, r, "save signal chain", err)
		return
	}
	sess.chain.MarkAsSaved()
	sess.violations = nil
	s.logger.Info("signal chain saved",
		logging.SceneID(sess.sceneID),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)))
	s.respondJSON(w, http.StatusOK, sc)
}

// handlePrepareSpeakers seeds the room with every speaker wired into a
// simulation node and saves them as the scene's sound sources.
func (s *Server) handlePrepareSpeakers(w http.ResponseWriter, r *http.Request) {
	var req PrepareSpeakersRequest
	if s.NewRequestDecoder(w, r).DecodeOptionalJSON(&req).Validate(req).RespondError() {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	placement := s.placement
	if req.Radius != nil {
		placement.Radius = *req.Radius
	}
	if req.Center != nil {
		placement.Center = *req.Center
	}

	sess.save.Lock()
	defer sess.save.Unlock()

	speakers := sess.chain.PrepareSpeakersForSimulation(placement)
	if err := sess.room.SetSpeakers(speakers); err != nil {
		s.respondErr(w, r, "prepare speakers", err)
		return
	}
	if _, err := s.store.SaveSpeakers(r.Context(), sess.sceneID, sess.room.Speakers()); err != nil {
		s.respondErr(w, r, "prepare speakers", err)
		return
	}
	s.respondJSON(w, http.StatusOK, PrepareSpeakersResponse{Speakers: sess.room.Speakers(), Count: len(speakers)})
}
