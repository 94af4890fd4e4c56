package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGETParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("User-Agent = %q, want test-agent/1.0", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker":"AAPL","close":203.5}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHeader("User-Agent", "test-agent/1.0"))
	resp, err := client.GET(context.Background(), "/quote")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Ticker string  `json:"ticker"`
		Close  float64 `json:"close"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if body.Ticker != "AAPL" || body.Close != 203.5 {
		t.Errorf("body = %+v", body)
	}
}

func TestPOSTEncodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["ticker"] != "AAPL" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.POST(context.Background(), "/query", map[string]string{"ticker": "AAPL"}); err != nil {
		t.Fatalf("POST: %v", err)
	}
}

func TestErrorStatusBecomesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GET(context.Background(), "/missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q should mention the status code", err)
	}
}

func TestPerRequestHeadersOverrideDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/plain" {
			t.Errorf("Accept = %q, want per-request override text/plain", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHeader("Accept", "application/json"))
	if _, err := client.GET(context.Background(), "/", map[string]string{"Accept": "text/plain"}); err != nil {
		t.Fatalf("GET: %v", err)
	}
}

func TestYahooFinanceHeaders(t *testing.T) {
	headers := YahooFinanceHeaders("me/1.0")
	if headers["User-Agent"] != "me/1.0" {
		t.Errorf("User-Agent = %q, want the identity string", headers["User-Agent"])
	}
	if headers["Accept"] != "application/json" {
		t.Errorf("Accept = %q", headers["Accept"])
	}
}
