package channel

import (
	"context"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Channel
		ok   bool
	}{
		{"EMAIL", Email, true},
		{"email", Email, true},
		{" sms ", SMS, true},
		{"WhatsApp", WhatsApp, true},
		{"FAX", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("Parse(%q) = %q, %v; expected %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("Parse(%q) should fail", tc.in)
		}
	}
}

func TestParsePriority(t *testing.T) {
	got, err := ParsePriority("SMS,EMAIL")
	if err != nil {
		t.Fatalf("ParsePriority: %v", err)
	}
	if !reflect.DeepEqual(got, []Channel{SMS, Email}) {
		t.Errorf("order = %v", got)
	}
}

func TestParsePriority_EmptyUsesDefault(t *testing.T) {
	got, err := ParsePriority("  ")
	if err != nil {
		t.Fatalf("ParsePriority: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultPriority) {
		t.Errorf("order = %v, expected default", got)
	}
}

func TestParsePriority_Rejects(t *testing.T) {
	if _, err := ParsePriority("EMAIL,FAX"); err == nil {
		t.Error("unknown channel accepted")
	}
	if _, err := ParsePriority("EMAIL,SMS,EMAIL"); err == nil {
		t.Error("duplicate channel accepted")
	}
}

type stubSender struct {
	ch Channel
}

func (s *stubSender) Channel() Channel { return s.ch }
func (s *stubSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	return "msg-1", nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 {
		t.Fatalf("new registry has %d senders", r.Count())
	}

	email := &stubSender{ch: Email}
	if err := r.Register(email); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubSender{ch: Email}); err == nil {
		t.Error("duplicate registration accepted")
	}

	if got := r.Get(Email); got != email {
		t.Errorf("Get returned %v", got)
	}
	if got := r.Get(SMS); got != nil {
		t.Errorf("unregistered channel returned %v", got)
	}

	if err := r.Register(&stubSender{ch: SMS}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Count() != 2 || len(r.Channels()) != 2 {
		t.Errorf("count = %d, channels = %v", r.Count(), r.Channels())
	}
}
