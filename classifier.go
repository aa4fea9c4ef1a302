package network

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrorKind is the failure taxonomy shared by the retry loop and the
// proxy rotation policy.
type ErrorKind string

const (
	KindSuccess             ErrorKind = "Success"
	KindConnectionError     ErrorKind = "ConnectionError"
	KindProxyAuthError      ErrorKind = "ProxyAuthError"
	KindServerError         ErrorKind = "ServerError"
	KindRateLimitedUpstream ErrorKind = "RateLimitedUpstream"
	KindClientError         ErrorKind = "ClientError"
)

// Classification tags one attempt outcome. Retryable drives the retry
// loop; BlamesProxy drives rotation. Both decisions come from here and
// nowhere else.
type Classification struct {
	Kind        ErrorKind
	Retryable   bool
	BlamesProxy bool
	StatusCode  int
	Err         error
}

// Classify maps a raw attempt outcome to its classification.
//
//	ConnectionError      refused/reset/timeout/unresolved   retry, blame proxy
//	ProxyAuthError       407, proxy auth failures           retry, blame proxy
//	ServerError          5xx                                retry
//	RateLimitedUpstream  429                                retry
//	ClientError          other 4xx                          no retry
//	Success              2xx/3xx                            -
func Classify(err error, statusCode int) Classification {
	if err != nil {
		return classifyError(err)
	}

	switch {
	case statusCode == 407:
		return Classification{Kind: KindProxyAuthError, Retryable: true, BlamesProxy: true, StatusCode: statusCode}
	case statusCode == 429:
		return Classification{Kind: KindRateLimitedUpstream, Retryable: true, StatusCode: statusCode}
	case statusCode >= 500:
		return Classification{Kind: KindServerError, Retryable: true, StatusCode: statusCode}
	case statusCode >= 400:
		return Classification{Kind: KindClientError, StatusCode: statusCode}
	default:
		return Classification{Kind: KindSuccess, StatusCode: statusCode}
	}
}

func classifyError(err error) Classification {
	// A canceled caller context must not be retried against.
	if errors.Is(err, context.Canceled) {
		return Classification{Kind: KindConnectionError, Err: err}
	}

	if isProxyAuthError(err) {
		return Classification{Kind: KindProxyAuthError, Retryable: true, BlamesProxy: true, Err: err}
	}

	// Timeouts, refused/reset connections, DNS failures and deadline
	// expiry all land here: transient, and the egress path is suspect.
	return Classification{Kind: KindConnectionError, Retryable: true, BlamesProxy: true, Err: err}
}

func isProxyAuthError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "proxy authentication required") || strings.Contains(msg, "407") {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return strings.Contains(msg, "auth")
	}

	return false
}
