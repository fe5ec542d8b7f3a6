package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Name() string { return "failing" }

func (f *failingNotifier) Send(ctx context.Context, msg Message) error {
	f.calls++
	return errors.New("channel down")
}

type recordingNotifier struct{ received []Message }

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, msg Message) error {
	r.received = append(r.received, msg)
	return nil
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second)
	err := n.Send(context.Background(), Message{Subject: "done", Body: "resized i-0abc"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
	if string(gotBody) != `{"subject":"done","body":"resized i-0abc"}` {
		t.Errorf("unexpected payload: %s", gotBody)
	}
}

func TestWebhookNotifierNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second)
	if err := n.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Error("expected error for non-2xx status")
	}
}

func TestMultiDeliversDespiteFailures(t *testing.T) {
	failing := &failingNotifier{}
	recording := &recordingNotifier{}
	m := NewMulti(nil, failing, recording)

	msg := Message{Subject: "action failed", Body: "rollback succeeded"}
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("Multi.Send must never fail, got %v", err)
	}

	if failing.calls != 1 {
		t.Errorf("expected failing channel attempted once, got %d", failing.calls)
	}
	if len(recording.received) != 1 || recording.received[0].Subject != "action failed" {
		t.Errorf("expected message delivered to healthy channel, got %+v", recording.received)
	}
}
