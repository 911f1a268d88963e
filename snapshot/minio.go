package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio servers
	Insecure bool
}

// MinioUploader uploads snapshots to an S3 compatible bucket
type MinioUploader struct {
	Client *minio.Client
	Bucket string
}

var _ Uploader = &MinioUploader{}

func (c *MinioConfig) validate() error {
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide access, secret, bucket and endpoint")
	}
	return nil
}

// NewMinioUploader creates an uploader and checks that the bucket exists
func NewMinioUploader(ctx context.Context, config *MinioConfig) (*MinioUploader, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &MinioUploader{
		Client: mc,
		Bucket: config.Bucket,
	}, nil
}

// Upload stores d as object remotePath
func (u *MinioUploader) Upload(ctx context.Context, remotePath string, d []byte, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}
	r := bytes.NewReader(d)
	_, err := u.Client.PutObject(ctx, u.Bucket, remotePath, r, int64(len(d)), opts)
	return err
}
