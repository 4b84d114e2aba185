// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/play"
)

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

// respondDomainError maps domain errors onto status codes. Validation errors
// carry field-level detail; unknown errors stay opaque 500s.
func respondDomainError(w http.ResponseWriter, err error) {
	var verr *play.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, play.ErrNotFound), errors.Is(err, intervention.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, intervention.ErrStatusConflict), errors.Is(err, intervention.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logrus.Errorf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
