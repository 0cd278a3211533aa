package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3-compatible storage
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for DO Spaces, R2, etc.
	AccessKeyID     string
	SecretAccessKey string
}

// FeedArchiver keeps a raw snapshot of every fetched calendar feed in
// S3-compatible storage, keyed by content hash so unchanged feeds are
// written once. Archiving is best-effort; callers log and move on.
type FeedArchiver struct {
	client *s3.Client
	bucket string
}

func NewFeedArchiver(ctx context.Context, cfg S3Config) (*FeedArchiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &FeedArchiver{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Archive stores the raw feed body and returns the object key.
func (a *FeedArchiver) Archive(ctx context.Context, propertyID string, body []byte) (string, error) {
	hash := sha256.Sum256(body)
	digest := hex.EncodeToString(hash[:16])
	key := fmt.Sprintf("feeds/%s/%s/%s.ics", time.Now().UTC().Format("2006-01-02"), propertyID, digest)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/calendar"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}
