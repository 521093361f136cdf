package aws

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3BlobStore keeps event images in the assets bucket and hands back
// presigned GET URLs.
type S3BlobStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expires time.Duration
}

func NewS3BlobStore(client *s3.Client, bucket string) *S3BlobStore {
	return &S3BlobStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expires: time.Hour,
	}
}

func (b *S3BlobStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not put object %s to bucket %s: %w", key, b.bucket, err)
	}
	return key, nil
}

func (b *S3BlobStore) URL(ctx context.Context, key string) (string, error) {
	r, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = b.expires
	})
	if err != nil {
		return "", fmt.Errorf("could not generate presigned URL for object [%s]: %w", key, err)
	}
	return r.URL, nil
}
