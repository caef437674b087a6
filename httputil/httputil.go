package httputil

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// NewTimeoutClient returns a client with better timeouts than http.DefaultClient.
// readWriteTimeout is a deadline for the whole connection.
// A new client should be created for each request.
func NewTimeoutClient(connectTimeout time.Duration, readWriteTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: connectTimeout,
	}
	dialContext := func(ctx context.Context, netw, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, netw, addr)
		if err != nil {
			return nil, err
		}
		_ = conn.SetDeadline(time.Now().Add(readWriteTimeout))
		return conn, nil
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: dialContext,
			Proxy:       http.ProxyFromEnvironment,
		},
	}
}

func NewDefaultTimeoutClient() *http.Client {
	return NewTimeoutClient(time.Second*120, time.Second*120)
}

func JoinURL(s1, s2 string) string {
	if strings.HasSuffix(s1, "/") {
		if strings.HasPrefix(s2, "/") {
			return s1 + s2[1:]
		}
		return s1 + s2
	}

	if strings.HasPrefix(s2, "/") {
		return s1 + s2
	}
	return s1 + "/" + s2
}
