// Package archive stores raw upstream pages in an S3-compatible bucket so a
// run can be replayed or audited.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the bucket settings. Credentials come from the default AWS
// chain (environment, shared config, instance role).
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional; set for MinIO or LocalStack, enables path-style addressing
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements datagov.PageArchiver on top of S3.
type Store struct {
	client objectPutter
	bucket string
	prefix string
}

// New creates an S3 archive from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ArchivePage uploads one page body under
// {prefix}/{source}/{runID}/page-{NNNN}.json.
func (s *Store) ArchivePage(ctx context.Context, runID, source string, page int, body []byte) error {
	key := s.key(runID, source, page)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id": runID,
			"source": source,
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) key(runID, source string, page int) string {
	return path.Join(s.prefix, source, runID, fmt.Sprintf("page-%04d.json", page))
}
