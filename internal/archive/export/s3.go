// Package export writes cleared-case history to S3-compatible object storage
// as one JSON document per record. Objects are created once and never
// overwritten.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"watchdesk/internal/archive/models"
)

// S3API is the subset of the S3 client the exporter calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config holds construction parameters. Credentials come from the default
// AWS chain (env vars, shared config, instance role).
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional; set for MinIO or LocalStack
	PathStyle bool
	Prefix    string
}

// S3Exporter puts history records into a bucket.
type S3Exporter struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 builds an exporter from cfg using the default AWS config chain.
func NewS3(ctx context.Context, cfg Config) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive export bucket required")
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
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client S3API, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key of rec: <prefix>/<officer>/<entity>/<id>.json.
func (e *S3Exporter) Key(rec *models.HistoryRecord) string {
	return path.Join(e.prefix, rec.OfficerID.String(), rec.EntityID.String(), rec.ID.String()+".json")
}

// Export writes rec. An object that already exists under the key counts as
// exported.
func (e *S3Exporter) Export(ctx context.Context, rec *models.HistoryRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(e.Key(rec)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
		Metadata: map[string]string{
			"entity-id":  rec.EntityID.String(),
			"officer-id": rec.OfficerID.String(),
			"status":     rec.Status.String(),
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return nil
		}
		return fmt.Errorf("put history object: %w", err)
	}
	return nil
}

// Ping checks the bucket is reachable.
func (e *S3Exporter) Ping(ctx context.Context) error {
	_, err := e.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(e.bucket)})
	return err
}
