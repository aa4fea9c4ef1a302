package network

import (
	"crypto/sha256"
	"fmt"
	"hash/fnv"
)

// DeduplicationKeyFunc builds a key identifying identical in-flight
// requests.
type DeduplicationKeyFunc func(method, url string, body []byte) string

// DefaultDeduplicationKeyFunc hashes method + URL, mixing in a body
// digest for mutating verbs.
func DefaultDeduplicationKeyFunc(method, url string, body []byte) string {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte(url))

	if len(body) > 0 && (method == "POST" || method == "PUT" || method == "PATCH") {
		digest := sha256.Sum256(body)
		h.Write(digest[:])
	}

	return fmt.Sprintf("%x", h.Sum64())
}

// DeduplicationCondition decides whether a request is eligible for
// coalescing with identical in-flight requests.
type DeduplicationCondition func(method string) bool

// DefaultDeduplicationCondition enables deduplication for safe
// idempotent methods only.
func DefaultDeduplicationCondition(method string) bool {
	return method == "GET" || method == "HEAD" || method == "OPTIONS"
}
