// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"net/http"

	"github.com/gymkeeper/retention-engine/pkg/scheduler"
)

// handleCronRun runs one scheduler pass for every auto-intervention tenant.
// Cron-triggered passes force approval: every generated intervention parks at
// PENDING_APPROVAL regardless of the play's own flag.
func (s *HTTPServer) handleCronRun(w http.ResponseWriter, r *http.Request) {
	results, err := s.deps.Scheduler.RunAll(r.Context(), true)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if results == nil {
		results = []scheduler.Result{}
	}
	for i := range results {
		if results[i].Errors == nil {
			results[i].Errors = []string{}
		}
	}
	respondJSON(w, http.StatusOK, results)
}
