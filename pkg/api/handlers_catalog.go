package api

import (
	"net/http"

	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	items, err := s.catalog.List(r.Context(), kind)
	if err != nil {
		s.respondErr(w, r, "list catalog", err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetCatalogItem(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	item, err := s.catalog.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "get catalog item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	mats, err := s.catalog.Materials(r.Context())
	if err != nil {
		s.respondErr(w, r, "list materials", err)
		return
	}
	out := make([]MaterialResponse, len(mats))
	for i, m := range mats {
		out[i] = MaterialResponse{Material: m, NRC: m.NRC()}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSimulationTypes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, simulation.AvailableTypes())
}
