// Package s3blob stores blobs as objects in an S3-compatible bucket.
package s3blob

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentstation/concilia/pkg/errors"
)

// Config describes the bucket.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
	// Prefix is prepended to every object name.
	Prefix string
}

// Bucket is an object-store-backed blob store.
type Bucket struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.NewConfigError("store", "s3 backend needs endpoint and bucket", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.NewConfigError("store", "invalid s3 endpoint", err)
	}

	b := &Bucket{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bucket) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return errors.WrapIO("stat", b.bucket, err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.WrapIO("create", b.bucket, err)
		}
	}
	return nil
}

func (b *Bucket) object(key string) string {
	return b.prefix + key + ".json"
}

// Get implements store.Blob.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set implements store.Blob.
func (b *Bucket) Set(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.object(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// Close is a no-op; the client holds no persistent connections.
func (b *Bucket) Close() error {
	return nil
}
