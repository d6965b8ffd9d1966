//go:build s3example
// +build s3example

// This file provides an example S3-backed manifest store.
// It is excluded from regular builds because it requires the AWS SDK.
//
// To use this in your project, copy this file and add the AWS SDK:
//   go get github.com/aws/aws-sdk-go-v2
//   go get github.com/aws/aws-sdk-go-v2/config
//   go get github.com/aws/aws-sdk-go-v2/service/s3

package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotPublished is returned by Fetch when no manifest exists at the
// store's key.
var ErrNotPublished = errors.New("manifest: not published")

// S3Store publishes manifests to AWS S3 so deploy tooling can push a
// route map and servers can pull it at boot.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	s3Client := s3.NewFromConfig(cfg)
//	store := manifest.NewS3Store(s3Client, "my-bucket", "routes/wayfinder.json")
//
//	if err := store.Publish(ctx, m); err != nil { ... }
type S3Store struct {
	client    *s3.Client
	bucket    string
	key       string
	urlExpiry time.Duration
}

// NewS3Store creates a new S3 manifest store.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - key: object key for the live manifest (e.g., "routes/wayfinder.json")
func NewS3Store(client *s3.Client, bucket, key string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		key:       key,
		urlExpiry: 24 * time.Hour,
	}
}

// WithURLExpiry sets how long presigned URLs are valid.
func (s *S3Store) WithURLExpiry(d time.Duration) *S3Store {
	s.urlExpiry = d
	return s
}

// Publish uploads the manifest to the live key and writes a
// timestamped snapshot next to it so a bad push can be rolled back.
func (s *S3Store) Publish(ctx context.Context, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	now := time.Now().UTC()
	meta := map[string]string{
		"route-count":  strconv.Itoa(m.Len()),
		"publish-time": now.Format(time.RFC3339),
	}

	for _, key := range []string{s.key, s.snapshotKey(now)} {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
			Metadata:    meta,
		})
		if err != nil {
			return fmt.Errorf("manifest: publish %s: %w", key, err)
		}
	}
	return nil
}

// Fetch downloads and parses the live manifest.
func (s *S3Store) Fetch(ctx context.Context) (*Manifest, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, ErrNotPublished
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("manifest: fetch: %w", err)
	}
	return Parse(data)
}

// PresignURL returns a presigned GET URL for the live manifest, for
// handing to clients that should not hold AWS credentials.
func (s *S3Store) PresignURL(ctx context.Context) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	result, err := presignClient.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		},
		s3.WithPresignExpires(s.urlExpiry),
	)
	if err != nil {
		return "", fmt.Errorf("manifest: presign: %w", err)
	}
	return result.URL, nil
}

// Prune removes snapshots older than maxAge. The live manifest is
// never deleted.
func (s *S3Store) Prune(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.snapshotPrefix()),
	})

	var toDelete []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("manifest: list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				toDelete = append(toDelete, *obj.Key)
			}
		}
	}

	for _, key := range toDelete {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("manifest: delete %s: %w", key, err)
		}
	}
	return nil
}

func (s *S3Store) snapshotPrefix() string {
	return s.key + ".history/"
}

func (s *S3Store) snapshotKey(t time.Time) string {
	return s.snapshotPrefix() + t.Format("20060102T150405Z")
}
