package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "FinFlow/1.0" {
			t.Errorf("unexpected user agent: %s", ua)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := Get(context.Background(), NewClient(time.Second), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGetNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := Get(context.Background(), NewClient(time.Second), server.URL); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
