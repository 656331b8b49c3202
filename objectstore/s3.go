// Package objectstore signs download URLs for objects kept in S3.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner is the subset of *s3.PresignClient used for signing.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Signer produces time-limited GET URLs.
type S3Signer struct {
	presigner Presigner
}

// NewS3Signer creates a signer from an S3 client.
func NewS3Signer(client *s3.Client) *S3Signer {
	return &S3Signer{presigner: s3.NewPresignClient(client)}
}

// NewSigner creates a signer from any Presigner.
func NewSigner(presigner Presigner) *S3Signer {
	return &S3Signer{presigner: presigner}
}

// SignedURL returns a GET URL for bucket/key valid for ttl.
func (s *S3Signer) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("objectstore: bucket and key are required")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
