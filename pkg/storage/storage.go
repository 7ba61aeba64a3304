package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config describes an S3-compatible bucket
type Config struct {
	Endpoint  string // host[:port], no scheme
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	PublicURL string // optional base URL objects are served from
}

// Object is a stored object and the URL it is served at
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	ETag        string `json:"etag,omitempty"`
}

// Client uploads public objects to one bucket
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

// New creates a storage client. The bucket is not checked; call Health for that.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: endpoint and bucket are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		endpoint := mc.EndpointURL()
		publicURL = fmt.Sprintf("%s://%s/%s", endpoint.Scheme, endpoint.Host, cfg.Bucket)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, publicURL: publicURL, log: log}, nil
}

// Upload stores data under key and returns its public URL
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return nil, fmt.Errorf("storage: empty object key")
	}

	start := time.Now()
	info, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		c.log.Info("storage_put", zap.String("key", key), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, fmt.Errorf("storage: upload %s: %w", key, err)
	}
	c.log.Debug("storage_put",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return &Object{
		Key:         key,
		URL:         c.PublicURL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
		ETag:        info.ETag,
	}, nil
}

// Delete removes an object. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, strings.TrimLeft(key, "/"), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL key is served at
func (c *Client) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.publicURL + "/" + strings.Join(segments, "/")
}

// KeyFromURL reverses PublicURL. ok is false for URLs outside this bucket.
func (c *Client) KeyFromURL(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(raw, c.publicURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

// Health checks that the bucket is reachable
func (c *Client) Health(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage: bucket %q does not exist", c.bucket)
	}
	return nil
}
