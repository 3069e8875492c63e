package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options fixes the upload destination and how public URLs are built.
type S3Options struct {
	Bucket    string
	KeyPrefix string
	Region    string
	// PublicBaseURL overrides the default virtual-hosted URL, e.g. when a
	// CDN or an S3-compatible endpoint fronts the bucket.
	PublicBaseURL string
}

// S3Store uploads cover images to Amazon S3 (or compatible APIs).
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
}

func NewS3Store(client *s3.Client, opts S3Options) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}
}

func (s *S3Store) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if s.opts.Bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image data is required")
	}

	fullKey := key
	if prefix := strings.Trim(s.opts.KeyPrefix, "/"); prefix != "" {
		fullKey = prefix + "/" + strings.TrimPrefix(key, "/")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", fullKey, err)
	}

	return s.publicURL(fullKey), nil
}

func (s *S3Store) Delete(ctx context.Context, imageURL string) error {
	key, err := s.keyFromURL(imageURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) publicURL(key string) string {
	if base := strings.TrimRight(s.opts.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
}

func (s *S3Store) keyFromURL(imageURL string) (string, error) {
	prefixes := []string{
		strings.TrimRight(s.opts.PublicBaseURL, "/") + "/",
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.opts.Bucket, s.opts.Region),
	}
	for _, prefix := range prefixes {
		if prefix != "/" && strings.HasPrefix(imageURL, prefix) {
			key := strings.TrimPrefix(imageURL, prefix)
			if key != "" {
				return key, nil
			}
		}
	}
	return "", fmt.Errorf("image url %q is not in this store", imageURL)
}

var _ ImageStore = (*S3Store)(nil)
