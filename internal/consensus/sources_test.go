package consensus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPQuoteSource_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "EURUSD" {
			t.Errorf("symbol = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bid":1.1000,"ask":1.1002}`))
	}))
	defer srv.Close()

	src := NewHTTPQuoteSource("broker-a", srv.URL, 2*time.Second)
	bid, ask, err := src.Quote(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("quote error: %v", err)
	}
	if bid != 1.1000 || ask != 1.1002 {
		t.Errorf("bid/ask = %v/%v", bid, ask)
	}
}

func TestHTTPQuoteSource_MalformedRejected(t *testing.T) {
	cases := []string{
		`{"bid":0,"ask":1.1}`,
		`{"bid":-1,"ask":1.1}`,
		`{"bid":1.2,"ask":1.1}`, // crossed
	}
	for _, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		src := NewHTTPQuoteSource("broker-a", srv.URL, 2*time.Second)
		if _, _, err := src.Quote(context.Background(), "EURUSD"); err == nil {
			t.Errorf("body %s: expected error", body)
		}
		srv.Close()
	}
}

func TestHTTPQuoteSource_ServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPQuoteSource("broker-a", srv.URL, 2*time.Second)
	if _, _, err := src.Quote(context.Background(), "EURUSD"); err == nil {
		t.Fatal("expected error on 500")
	}
}
