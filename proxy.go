package network

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
)

// proxyRotation applies the per-attempt rotation policy over an
// external pool. Every method is nil-safe so an unconfigured policy is
// a no-op and attempts proceed without a proxy.
type proxyRotation struct {
	pool ProxyPool
}

func (p *proxyRotation) configured() bool {
	return p != nil && p.pool != nil
}

// acquire obtains a proxy for one attempt. Pool exhaustion degrades to
// a direct connection rather than failing the attempt.
func (p *proxyRotation) acquire() *ProxyConnection {
	if !p.configured() {
		return nil
	}
	conn, err := p.pool.Acquire()
	if err != nil {
		return nil
	}
	return conn
}

// reportFailure blames the connection used by a failed attempt. Only
// called for classifications where BlamesProxy holds; application-level
// failures leave the proxy's reputation untouched.
func (p *proxyRotation) reportFailure(conn *ProxyConnection) {
	if !p.configured() || conn == nil {
		return
	}
	p.pool.ReportFailure(conn)
}

func (p *proxyRotation) stats() ProxyPoolStats {
	if !p.configured() {
		return ProxyPoolStats{}
	}
	return p.pool.Stats()
}

// proxyURL maps a pool connection to the transport's *url.URL shape.
// The mapping is total: every field combination yields a usable URL,
// with unknown protocols defaulting to http.
func proxyURL(conn *ProxyConnection) *url.URL {
	if conn == nil {
		return nil
	}

	scheme := conn.Protocol
	switch scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		scheme = "http"
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", conn.Host, conn.Port),
	}
	if conn.Username != "" {
		if conn.Password != "" {
			u.User = url.UserPassword(conn.Username, conn.Password)
		} else {
			u.User = url.User(conn.Username)
		}
	}
	return u
}

// StaticProxyPool is the bundled ProxyPool: a fixed set of connections
// handed out round-robin, with per-connection failure counts. Rotation
// after a blamed failure is a property of the round-robin order: the
// next acquire returns the next connection, not the one that failed.
type StaticProxyPool struct {
	mu       sync.Mutex
	conns    []*ProxyConnection
	next     int
	failures map[string]int

	acquired uint64
	reported uint64
}

// NewStaticProxyPool creates a pool over the given connections.
// Connections without an ID get one derived from host:port.
func NewStaticProxyPool(conns ...*ProxyConnection) *StaticProxyPool {
	for _, conn := range conns {
		if conn.ID == "" {
			conn.ID = fmt.Sprintf("%s:%d", conn.Host, conn.Port)
		}
	}
	return &StaticProxyPool{
		conns:    conns,
		failures: make(map[string]int),
	}
}

// Acquire implements the ProxyPool interface.
func (p *StaticProxyPool) Acquire() (*ProxyConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.conns) == 0 {
		return nil, ErrNoProxyAvailable
	}

	conn := p.conns[p.next%len(p.conns)]
	p.next++
	atomic.AddUint64(&p.acquired, 1)
	return conn, nil
}

// ReportFailure implements the ProxyPool interface.
func (p *StaticProxyPool) ReportFailure(conn *ProxyConnection) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	p.failures[conn.ID]++
	p.mu.Unlock()
	atomic.AddUint64(&p.reported, 1)
}

// Stats implements the ProxyPool interface.
func (p *StaticProxyPool) Stats() ProxyPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int, len(p.failures))
	for id, n := range p.failures {
		counts[id] = n
	}
	return ProxyPoolStats{
		Total:            len(p.conns),
		Acquired:         atomic.LoadUint64(&p.acquired),
		FailuresReported: atomic.LoadUint64(&p.reported),
		FailureCounts:    counts,
	}
}
