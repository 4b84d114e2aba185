// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

const defaultLogsLimit = 50

// logEntry is one intervention enriched with its play name, a member summary
// and the full message event trail.
type logEntry struct {
	intervention.Intervention
	PlayName string                      `json:"playName,omitempty"`
	Member   *memberSummary              `json:"member,omitempty"`
	Events   []intervention.MessageEvent `json:"events"`
}

type memberSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
}

func (s *HTTPServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tenantID := q.Get("tenantId")
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	f := intervention.Filter{
		TenantID: tenantID,
		MemberID: q.Get("memberId"),
		Channel:  channel.Channel(q.Get("channel")),
		Status:   intervention.Status(q.Get("status")),
		Limit:    defaultLogsLimit,
	}
	if f.Status != "" && !f.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status "+string(f.Status))
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = &t
	}

	items, total, err := s.deps.Interventions.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	entries := make([]logEntry, 0, len(items))
	playNames := make(map[string]string)
	members := make(map[string]*memberSummary)
	for i := range items {
		iv := items[i]
		entry := logEntry{Intervention: iv, Events: []intervention.MessageEvent{}}

		// Enrichment lookups degrade gracefully: a deleted play or purged
		// member must not hide the log row.
		name, ok := playNames[iv.PlayID]
		if !ok {
			if p, err := s.deps.Plays.Get(r.Context(), iv.TenantID, iv.PlayID); err == nil {
				name = p.Name
			} else {
				logrus.Debugf("play %s lookup failed for logs: %v", iv.PlayID, err)
			}
			playNames[iv.PlayID] = name
		}
		entry.PlayName = name

		summary, ok := members[iv.MemberID]
		if !ok {
			if m, err := s.deps.Members.GetMember(r.Context(), iv.TenantID, iv.MemberID); err == nil {
				summary = &memberSummary{
					ID:        m.ID,
					FirstName: m.FirstName,
					LastName:  m.LastName,
					Status:    string(m.Status),
				}
			} else {
				logrus.Debugf("member %s lookup failed for logs: %v", iv.MemberID, err)
			}
			members[iv.MemberID] = summary
		}
		entry.Member = summary

		events, err := s.deps.Interventions.ListEvents(r.Context(), iv.ID)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if events != nil {
			entry.Events = events
		}

		entries = append(entries, entry)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"interventions": entries,
		"total":         total,
	})
}
