package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := New(5*time.Second, 2)
	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("corpo inesperado: %q", body)
	}
}

func TestFetchRetriesOn500(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(5*time.Second, 3)
	c.backoff = time.Millisecond

	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("corpo = %q", body)
	}
	if calls != 3 {
		t.Errorf("chamadas = %d, esperado 3", calls)
	}
}

func TestFetchNoRetryOn404(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(5*time.Second, 3)
	c.backoff = time.Millisecond

	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("esperava erro para 404")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("erro %T, esperava *FetchError", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", fe.StatusCode)
	}
	if calls != 1 {
		t.Errorf("chamadas = %d, 404 não deve retentar", calls)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(5*time.Second, 2)
	c.backoff = time.Millisecond

	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("esperava erro após esgotar tentativas")
	}
	if calls != 3 {
		t.Errorf("chamadas = %d, esperado 3 (1 + 2 retentativas)", calls)
	}
}

func TestFetchContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(5*time.Second, 5)
	c.backoff = time.Minute

	_, err := c.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("esperava erro com contexto cancelado")
	}
}
