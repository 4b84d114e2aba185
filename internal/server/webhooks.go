// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/internal/metrics"
	"github.com/gymkeeper/retention-engine/pkg/webhook"
)

// handleWebhook parses a provider callback and applies each delivery through
// the reconciler. Unknown message ids and replays are acknowledged as
// successes; only malformed payloads earn a 400.
func (s *HTTPServer) handleWebhook(adapter webhook.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveries, err := adapter.Parse(r)
		if err != nil {
			if errors.Is(err, webhook.ErrEventIgnored) {
				respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
				return
			}
			respondError(w, http.StatusBadRequest, "malformed payload: "+err.Error())
			return
		}

		for i := range deliveries {
			d := deliveries[i]
			metrics.WebhookEvents.WithLabelValues(adapter.Provider(), string(d.Type)).Inc()
			if _, err := s.deps.Reconciler.Apply(r.Context(), d); err != nil {
				// Reconciliation failures are logged, not surfaced: the
				// provider would only retry into the same error.
				logrus.Errorf("failed to reconcile %s delivery %s: %v",
					adapter.Provider(), d.ProviderMessageID, err)
			}
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
