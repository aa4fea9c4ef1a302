package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPTransportDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Token"); got != "abc" {
			t.Errorf("Expected header X-Token=abc, got %q", got)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte("queued")); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	transport := newHTTPTransport(nil)
	resp, err := transport.Do(context.Background(), &RequestContext{
		URL:     server.URL,
		Method:  "POST",
		Headers: map[string]string{"X-Token": "abc"},
		Body:    []byte("payload"),
		Timeout: time.Second,
	})

	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "queued" {
		t.Errorf("Expected body 'queued', got %q", resp.Body)
	}
	if resp.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestHTTPTransportTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	transport := newHTTPTransport(nil)
	_, err := transport.Do(context.Background(), &RequestContext{
		URL:     server.URL,
		Method:  "GET",
		Timeout: 20 * time.Millisecond,
	})

	if err == nil {
		t.Fatal("Expected timeout error")
	}
	cls := Classify(err, 0)
	if cls.Kind != KindConnectionError {
		t.Errorf("Expected timeout to classify as ConnectionError, got %s", cls.Kind)
	}
	if !cls.Retryable {
		t.Error("Expected timeout to be retryable")
	}
}

func TestChainMiddlewareOrder(t *testing.T) {
	var order []string

	base := TransportFunc(func(ctx context.Context, req *RequestContext) (*Response, error) {
		order = append(order, "transport")
		return &Response{StatusCode: 200}, nil
	})

	outer := func(ctx context.Context, req *RequestContext, next Transport) (*Response, error) {
		order = append(order, "outer")
		return next.Do(ctx, req)
	}
	inner := func(ctx context.Context, req *RequestContext, next Transport) (*Response, error) {
		order = append(order, "inner")
		return next.Do(ctx, req)
	}

	chained := chainMiddleware(base, []Middleware{outer, inner})
	if _, err := chained.Do(context.Background(), &RequestContext{}); err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}

	want := []string{"outer", "inner", "transport"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d stages, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Stage %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestChainMiddlewareEmpty(t *testing.T) {
	base := TransportFunc(func(ctx context.Context, req *RequestContext) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	})

	if got := chainMiddleware(base, nil); got == nil {
		t.Fatal("Expected base transport back")
	}
}

func TestMiddlewareCanMutateRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Expected injected auth header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	auth := func(ctx context.Context, req *RequestContext, next Transport) (*Response, error) {
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers["Authorization"] = "Bearer token"
		return next.Do(ctx, req)
	}

	client := New(WithMiddleware(auth))
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
}
