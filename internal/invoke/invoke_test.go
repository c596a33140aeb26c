package invoke

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surveyagg/internal/faults"
)

func TestLocalInvoke(t *testing.T) {
	l := NewLocal()
	l.Register("echo", func(_ context.Context, payload json.RawMessage) faults.Result {
		return faults.Result{Success: true, Data: payload}
	})

	res, err := l.Invoke(context.Background(), "echo", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false; error = %s", res.Error)
	}
	var got map[string]string
	if err := json.Unmarshal(res.Data, &got); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if got["k"] != "v" {
		t.Fatalf("payload round trip lost data: %v", got)
	}
}

func TestLocalUnknownMethod(t *testing.T) {
	if _, err := NewLocal().Invoke(context.Background(), "missing", nil); err == nil {
		t.Fatal("unknown method must be a transport error")
	}
}

func TestClientInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-two" {
			t.Errorf("path = %s; want /top-two", r.URL.Path)
		}
		json.NewEncoder(w).Encode(faults.Result{Success: true, Data: json.RawMessage(`[]`)})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := c.Invoke(context.Background(), "top-two", map[string]any{"data": "[]"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false; error = %s", res.Error)
	}
}

func TestClientNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Invoke(context.Background(), "x", nil); err == nil {
		t.Fatal("500 response must surface as a transport error")
	}
}

func TestClientMethodFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(faults.Result{Success: false, Error: "Key Error in method"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := c.Invoke(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("envelope failure must not be a transport error: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("envelope = %+v; want Success=false with error message", res)
	}
}
