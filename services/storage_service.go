package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	appconfig "github.com/AgriPilot/agripilot-backend/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// S3StorageService stores document bodies in an S3-compatible object store.
type S3StorageService struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// presignTTL bounds how long a download link stays valid.
const presignTTL = 5 * time.Minute

// NewS3StorageService creates a storage service from the app configuration.
// A custom Endpoint switches the client to path-style addressing, which the
// self-hosted S3 compatibles expect.
func NewS3StorageService(ctx context.Context, cfg appconfig.StorageConfig) (*S3StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3StorageService{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
	}, nil
}

// validateKey rejects storage keys containing path traversal segments.
func validateKey(key string) error {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected in storage key")
		}
	}
	return nil
}

// Upload stores one object.
func (s *S3StorageService) Upload(ctx context.Context, key, contentType string, size int64, body io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

// PresignDownload returns a short-lived download URL for the object.
func (s *S3StorageService) PresignDownload(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get object failed: %w", err)
	}
	return req.URL, nil
}

// Delete removes one object.
func (s *S3StorageService) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object failed: %w", err)
	}
	return nil
}

// SniffContentType detects a file's real content type from its leading
// bytes. It returns the detected type and a reader that replays the sniffed
// prefix followed by the rest of the stream.
func SniffContentType(body io.Reader) (string, io.Reader, error) {
	header := make([]byte, 3072)
	n, err := io.ReadFull(body, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	header = header[:n]

	mtype := mimetype.Detect(header)
	return mtype.String(), io.MultiReader(bytes.NewReader(header), body), nil
}
