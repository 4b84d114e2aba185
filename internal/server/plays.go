// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gymkeeper/retention-engine/pkg/play"
)

func (s *HTTPServer) handleCreatePlay(w http.ResponseWriter, r *http.Request) {
	var p play.Play
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p.TenantID = chi.URLParam(r, "tenantID")
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := p.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.deps.Plays.Create(r.Context(), &p); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &p)
}

func (s *HTTPServer) handleListPlays(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	plays, err := s.deps.Plays.List(r.Context(), chi.URLParam(r, "tenantID"), includeInactive)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if plays == nil {
		plays = []play.Play{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"plays": plays})
}

func (s *HTTPServer) handleGetPlay(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Plays.Get(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "playID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleUpdatePlay(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	playID := chi.URLParam(r, "playID")

	existing, err := s.deps.Plays.Get(r.Context(), tenantID, playID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var p play.Play
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p.ID = playID
	p.TenantID = tenantID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()

	if err := p.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.deps.Plays.Update(r.Context(), &p); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &p)
}

func (s *HTTPServer) handleDeletePlay(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Plays.Delete(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "playID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
