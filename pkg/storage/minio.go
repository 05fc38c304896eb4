package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// objectAPI is the part of *s3.Client the sink needs.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MinIO writes puzzles as key prefixes in an S3 compatible bucket.
type MinIO struct {
	client objectAPI
	bucket string
	prefix string
	log    *slog.Logger

	bucketReady bool
}

func NewMinIO(ctx context.Context, cfg MinioConfig, log *slog.Logger) (*MinIO, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.Endpoint,
			SigningRegion:     cfg.Region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, err
	}
	return newMinIO(s3.NewFromConfig(awsCfg), cfg, log), nil
}

func newMinIO(client objectAPI, cfg MinioConfig, log *slog.Logger) *MinIO {
	if log == nil {
		log = slog.Default()
	}
	return &MinIO{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}
}

func (m *MinIO) Key(puzzle, name string) string {
	return path.Join(m.prefix, puzzle, name)
}

// Prepare ensures the bucket exists. Prefixes need no creation.
func (m *MinIO) Prepare(ctx context.Context, puzzle string) error {
	if err := CheckName(puzzle); err != nil {
		return err
	}
	if m.bucketReady {
		return nil
	}
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		_, err = m.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(m.bucket),
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", m.bucket, err)
		}
		m.log.Info("created bucket", "bucket", m.bucket)
	}
	m.bucketReady = true
	return nil
}

func (m *MinIO) Put(ctx context.Context, puzzle, name string, body io.Reader) (string, error) {
	key := m.Key(puzzle, name)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	m.log.Debug("uploaded", "bucket", m.bucket, "key", key)
	return "s3://" + m.bucket + "/" + key, nil
}
