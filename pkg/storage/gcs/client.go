// Package gcs stores check-in photos in a single Cloud Storage bucket.
package gcs

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

const (
	pingTimeout          = 5 * time.Second
	defaultUploadTimeout = 30 * time.Second
	defaultContentType   = "application/octet-stream"
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client uploads objects through the Cloud Storage JSON API.
type Client struct {
	objects       *storage.ObjectsService
	bucket        string
	publicBaseURL string
	uploadTimeout time.Duration
}

// NewClient authenticates with the configured service account, or
// application default credentials when none is set, and checks that the
// bucket is listable before returning.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	client, err := newClient(ctx, cfg, credentialOptions(gcp)...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

func newClient(ctx context.Context, cfg config.GCSConfig, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	opts = append(opts, option.WithScopes(storage.DevstorageReadWriteScope))
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs service: %w", err)
	}
	return &Client{
		objects:       svc.Objects,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		uploadTimeout: cmp.Or(max(cfg.UploadTimeout, 0), defaultUploadTimeout),
	}, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Close is a no-op; the JSON API client holds no streams.
func (c *Client) Close() error { return nil }

// Ping lists at most one object, which needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("items/name").Context(ctx).Do(); err != nil {
		return fmt.Errorf("list gs://%s: %w", c.bucket, err)
	}
	return nil
}

// Upload writes data to object and returns its public URL.
func (c *Client) Upload(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	if c == nil || c.objects == nil {
		return "", errNotInitialized
	}
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return "", errors.New("object name is required")
	}
	contentType = cmp.Or(contentType, defaultContentType)

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	_, err := c.objects.Insert(c.bucket, &storage.Object{Name: object, ContentType: contentType}).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", c.bucket, object, err)
	}
	return c.PublicURL(object), nil
}

// PublicURL is the unauthenticated URL of object, each path segment escaped.
func (c *Client) PublicURL(object string) string {
	segments := strings.Split(strings.TrimLeft(object, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.publicBaseURL + "/" + url.PathEscape(c.bucket) + "/" + strings.Join(segments, "/")
}
