package minioutil

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kjk/recstore/require"

	"github.com/minio/minio-go/v7"
)

func TestNewValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, nil)
	require.Error(t, err)

	_, err = New(ctx, &Config{
		Access: "access",
		Secret: "secret",
		Bucket: "snapshots",
	})
	require.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.True(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
	require.False(t, isNotFound(errors.New("connection refused")))
}

func TestNewTarget(t *testing.T) {
	tgt := NewTarget(&Client{Bucket: "snapshots"}, "/stores/buses.json")
	require.Equal(t, "stores/buses.json", tgt.Key)
}
