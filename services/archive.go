package services

import (
	"bytes"
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SnapshotArchive keeps copies of accepted content snapshots in S3.
// It is optional and best effort: the API is fully functional without
// it, and archive failures are logged, never surfaced to clients.
type SnapshotArchive struct {
	client *s3.Client
	bucket string
}

// NewSnapshotArchive creates the archive client for the given bucket.
func NewSnapshotArchive(ctx context.Context, bucket, region string) (*SnapshotArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME environment variable is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SnapshotArchive{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Store uploads one accepted snapshot, keyed by document and version
// so the history of accepted writes stays browsable.
func (a *SnapshotArchive) Store(ctx context.Context, documentID string, version int64, content []byte) error {
	key := a.snapshotKey(documentID, version)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}
	return nil
}

// Remove deletes every archived snapshot of a document.
func (a *SnapshotArchive) Remove(ctx context.Context, documentID string) error {
	prefix := fmt.Sprintf("documents/%s/", documentID)
	list, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to list snapshots in S3: %w", err)
	}
	for _, object := range list.Contents {
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    object.Key,
		})
		if err != nil {
			return fmt.Errorf("failed to delete snapshot from S3: %w", err)
		}
	}
	return nil
}

func (a *SnapshotArchive) snapshotKey(documentID string, version int64) string {
	return fmt.Sprintf("documents/%s/%d.html", documentID, version)
}
