package httputil

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kjk/recstore/snapshot"

	"github.com/carlmjohnson/requests"
)

type TargetConfig struct {
	// snapshot is PUT to and GET from this URL
	URL string
	// if set, sent as X-Api-Key header
	ApiKey string
	// if nil, uses NewDefaultTimeoutClient()
	Client *http.Client
	// timeout of a single request, defaults to 30 seconds
	Timeout time.Duration
}

// Target stores snapshots on an http server that accepts PUT
// and returns the last PUT body on GET.
type Target struct {
	config TargetConfig
}

var _ snapshot.Target = &Target{}

func NewTarget(config TargetConfig) *Target {
	if config.Client == nil {
		config.Client = NewDefaultTimeoutClient()
	}
	if config.Timeout == 0 {
		config.Timeout = time.Second * 30
	}
	return &Target{
		config: config,
	}
}

func (t *Target) String() string {
	return t.config.URL
}

func (t *Target) builder() *requests.Builder {
	rb := requests.
		URL(t.config.URL).
		Client(t.config.Client)
	if t.config.ApiKey != "" {
		rb = rb.Header("X-Api-Key", t.config.ApiKey)
	}
	return rb
}

func (t *Target) WriteSnapshot(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()
	err := t.builder().
		Put().
		BodyBytes(data).
		ContentType("application/octet-stream").
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("httputil: PUT '%s' failed with %w", t.config.URL, err)
	}
	return nil
}

func (t *Target) ReadSnapshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()
	var buf bytes.Buffer
	err := t.builder().
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if requests.HasStatusErr(err, http.StatusNotFound) {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("httputil: GET '%s' failed with %w", t.config.URL, err)
	}
	return buf.Bytes(), nil
}
