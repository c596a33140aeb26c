package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookPublish(t *testing.T) {
	var got Notice
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode notice: %v", err)
		}
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	err = wh.Publish(context.Background(), Notice{Module: "Aggregation - Top 2", Checkpoint: 4, RunID: "r1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.Module != "Aggregation - Top 2" || got.Checkpoint != 4 {
		t.Fatalf("received notice = %+v", got)
	}
	if got.SentAt == "" {
		t.Fatal("SentAt must be stamped on publish")
	}
}

func TestWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := wh.Publish(context.Background(), Notice{}); err == nil {
		t.Fatal("non-2xx response must be an error")
	}
}

func TestWebhookRequiresURL(t *testing.T) {
	if _, err := NewWebhook("", 0); err == nil {
		t.Fatal("empty URL must be rejected")
	}
}
