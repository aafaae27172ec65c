package api

import (
	"net/http"

	"netifmgr/internal/types"

	"github.com/gorilla/mux"
)

func (s *Server) listInterfaces(w http.ResponseWriter, r *http.Request) {
	hw, err := s.svc.ListInterfaces(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, hw)
}

func (s *Server) addLogicInterface(w http.ResponseWriter, r *http.Request) {
	payload, err := types.DecodeAddPayload(r.Body, mux.Vars(r)["device"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.AddLogicInterface(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) updateLogicInterface(w http.ResponseWriter, r *http.Request) {
	payload, err := types.DecodeUpdatePayload(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.svc.UpdateLogicInterface(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) removeLogicInterface(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveLogicInterface(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
