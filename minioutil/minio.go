package minioutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kjk/recstore/snapshot"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio servers
	Insecure     bool
	RequestTrace io.Writer
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

func validateConfig(c *Config) error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide all fields in config")
	}
	return nil
}

// New creates a client and checks that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}

	return &Client{
		Client: mc,
		config: config,
		Bucket: c.Bucket,
	}, nil
}

func (c *Client) URLBase() string {
	url := c.Client.EndpointURL()
	return fmt.Sprintf("%s://%s.%s/", url.Scheme, c.Bucket, url.Host)
}

func (c *Client) URLForPath(remotePath string) string {
	return c.URLBase() + strings.TrimPrefix(remotePath, "/")
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

// Copy copies oldPath to newPath, over-writing newPath
func (c *Client) Copy(ctx context.Context, oldPath, newPath string) (*minio.UploadInfo, error) {
	dstOpts := minio.CopyDestOptions{
		Bucket: c.Bucket,
		Object: newPath,
	}
	srcOpts := minio.CopySrcOptions{
		Bucket: c.Bucket,
		Object: oldPath,
	}
	ui, err := c.Client.CopyObject(ctx, dstOpts, srcOpts)
	return &ui, err
}

func (c *Client) UploadData(ctx context.Context, remotePath string, data []byte, contentType string) (info minio.UploadInfo, err error) {
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}
	r := bytes.NewReader(data)
	return c.Client.PutObject(ctx, c.Bucket, remotePath, r, int64(len(data)), opts)
}

func (c *Client) DownloadData(ctx context.Context, remotePath string) ([]byte, error) {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (c *Client) Remove(ctx context.Context, remotePath string) error {
	opts := minio.RemoveObjectOptions{}
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, opts)
}

// Target stores snapshots as an object in a bucket.
// PutObject replaces the object as a whole so readers never see
// a partially written snapshot.
type Target struct {
	Client *Client
	// object key of the snapshot
	Key string
	// if set, the previous snapshot is copied to BackupKey
	// before being over-written
	BackupKey string
}

var _ snapshot.Target = &Target{}

func NewTarget(client *Client, key string) *Target {
	return &Target{
		Client: client,
		Key:    strings.TrimPrefix(key, "/"),
	}
}

func (t *Target) String() string {
	return t.Client.URLForPath(t.Key)
}

func (t *Target) WriteSnapshot(ctx context.Context, data []byte) error {
	if t.BackupKey != "" && t.Client.Exists(ctx, t.Key) {
		if _, err := t.Client.Copy(ctx, t.Key, t.BackupKey); err != nil {
			return fmt.Errorf("minioutil: backup of '%s' as '%s' failed with %w", t.Key, t.BackupKey, err)
		}
	}
	_, err := t.Client.UploadData(ctx, t.Key, data, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("minioutil: upload of '%s' failed with %w", t.Key, err)
	}
	return nil
}

func (t *Target) ReadSnapshot(ctx context.Context) ([]byte, error) {
	// GetObject is lazy, errors only show up when reading
	d, err := t.Client.DownloadData(ctx, t.Key)
	if err != nil {
		if isNotFound(err) {
			return nil, snapshot.ErrNoSnapshot
		}
		return nil, fmt.Errorf("minioutil: download of '%s' failed with %w", t.Key, err)
	}
	return d, nil
}
