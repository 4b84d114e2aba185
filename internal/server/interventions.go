// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleGetIntervention(w http.ResponseWriter, r *http.Request) {
	iv, err := s.deps.Interventions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, iv)
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	iv, err := s.deps.Lifecycle.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, iv)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	iv, err := s.deps.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, iv)
}
