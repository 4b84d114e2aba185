package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSender_Send(t *testing.T) {
	var gotAuth string
	var gotReq sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"message_id": "prov-123"})
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{
		Channel:  Email,
		Endpoint: srv.URL,
		APIKey:   "secret",
	})

	id, err := s.Send(context.Background(), "ada@example.com", "Hello", "Body text")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "prov-123" {
		t.Errorf("message id = %q", id)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.To != "ada@example.com" || gotReq.Subject != "Hello" || gotReq.Body != "Body text" {
		t.Errorf("request payload = %+v", gotReq)
	}
}

func TestHTTPSender_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{Channel: SMS, Endpoint: srv.URL})

	if _, err := s.Send(context.Background(), "+1555", "", "hi"); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestHTTPSender_MissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{Channel: Email, Endpoint: srv.URL})

	if _, err := s.Send(context.Background(), "ada@example.com", "s", "b"); err == nil {
		t.Error("expected error when provider omits message_id")
	}
}
