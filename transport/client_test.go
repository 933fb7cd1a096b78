package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/hirograph/config"
)

func testProfile(url string) config.Profile {
	p := config.DefaultProfileSettings()
	p.RootURL = url
	p.HTTP.Timeout = 5
	p.HTTP.RetryDelay = 1
	return p
}

func TestDo_ReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad vertex"}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	client := New(testProfile(srv.URL))
	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/thing"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.Status)
	}
	if string(resp.Body) != `{"error":"bad vertex"}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestDo_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := testProfile(srv.URL)
	p.HTTP.MaxRetries = 3
	client := New(p)

	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestDo_TimeoutIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := New(testProfile(srv.URL))
	_, err := client.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Timeout: 10 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Do() error = %v, want ErrTimeout", err)
	}
}

func TestDo_TimeoutNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := testProfile(srv.URL)
	p.HTTP.MaxRetries = 5
	client := New(p)

	_, err := client.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Timeout: 20 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Do() error = %v, want ErrTimeout", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (timeouts must not be retried)", got)
	}
}

func TestDo_RetryableStatusAttemptCount(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := testProfile(srv.URL)
	p.HTTP.MaxRetries = 2
	client := New(p)

	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Fatal("Do() expected error after exhausting retries")
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusServiceUnavailable {
		t.Fatalf("Do() error = %v, want HTTPError 503", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3 (1 + 2 retries)", got)
	}
}

func TestDo_RetryEventuallySucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	p := testProfile(srv.URL)
	p.HTTP.MaxRetries = 3
	client := New(p)

	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != "ok" {
		t.Errorf("resp = %d %q, want 200 ok", resp.Status, resp.Body)
	}
}

func TestDo_ConnectionRefused(t *testing.T) {
	client := New(testProfile("http://127.0.0.1:1"))
	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://127.0.0.1:1/"})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Do() error = %v, want ErrConnectionFailed", err)
	}
}

func TestDo_QueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit query = %q, want 5", r.URL.Query().Get("limit"))
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
	}))
	defer srv.Close()

	client := New(testProfile(srv.URL))
	headers := http.Header{}
	headers.Set("Authorization", "Bearer tok")
	_, err := client.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     srv.URL + "/query",
		Query:   url.Values{"limit": {"5"}},
		Headers: headers,
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	err := error(&HTTPError{Status: 404})
	if StatusOf(err) != 404 {
		t.Errorf("StatusOf = %d, want 404", StatusOf(err))
	}
	if StatusOf(errors.New("other")) != 0 {
		t.Error("StatusOf(non-http) should be 0")
	}
}
