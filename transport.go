package network

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// httpTransport is the default Transport, backed by net/http. A proxied
// attempt gets a shallow copy of the client with a per-attempt proxy
// transport, so the assigned proxy never leaks into other attempts.
type httpTransport struct {
	client *http.Client
}

func newHTTPTransport(client *http.Client) *httpTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &httpTransport{client: client}
}

// Do implements the Transport interface.
func (t *httpTransport) Do(ctx context.Context, req *RequestContext) (*Response, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	client := t.client
	if req.Proxy != nil {
		proxied := *t.client
		proxied.Transport = &http.Transport{Proxy: http.ProxyURL(req.Proxy)}
		client = &proxied
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		Duration:   time.Since(start),
	}, nil
}

// chainMiddleware wraps base with the middleware slice, outermost first.
func chainMiddleware(base Transport, middleware []Middleware) Transport {
	if len(middleware) == 0 {
		return base
	}

	current := base
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := current
		current = TransportFunc(func(ctx context.Context, req *RequestContext) (*Response, error) {
			return mw(ctx, req, next)
		})
	}
	return current
}
