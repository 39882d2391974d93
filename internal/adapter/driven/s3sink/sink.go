// Package s3sink implements the ExportSink port on S3-compatible object storage.
// Destinations use the form s3://bucket/key.
package s3sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// Scheme is the destination prefix handled by this sink.
const Scheme = "s3://"

// Compile-time interface satisfaction check.
var _ driven.ExportSink = (*Sink)(nil)

// ObjectAPI is the subset of the S3 client used by the sink.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds construction parameters. Empty credentials fall back to the
// default AWS credential chain.
type Config struct {
	Region          string
	Endpoint        string // Optional; set for MinIO and other S3-compatible stores.
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Sink writes exports as S3 objects.
type Sink struct {
	api ObjectAPI
}

// New builds an S3 client from cfg and wraps it in a Sink.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api ObjectAPI) *Sink {
	return &Sink{api: api}
}

// IsDestination reports whether dest addresses object storage.
func IsDestination(dest string) bool {
	return strings.HasPrefix(dest, Scheme)
}

// ParseDestination splits s3://bucket/key into its parts.
func ParseDestination(dest string) (bucket, key string, err error) {
	if !IsDestination(dest) {
		return "", "", fmt.Errorf("destination %q is not an %s URL", dest, Scheme)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(dest, Scheme), "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("destination %q must name a bucket and an object key", dest)
	}
	return bucket, key, nil
}

// Exists issues a HeadObject for dest.
func (s *Sink) Exists(ctx context.Context, dest string) (bool, error) {
	bucket, key, err := ParseDestination(dest)
	if err != nil {
		return false, err
	}

	_, err = s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", dest, err)
}

// Write uploads data in a single PutObject; S3 never exposes a partial object.
func (s *Sink) Write(ctx context.Context, dest string, data []byte, contentType string) (string, error) {
	bucket, key, err := ParseDestination(dest)
	if err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put %s: %w", dest, err)
	}
	return Scheme + bucket + "/" + key, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// HeadObject responses carry no body, so some S3-compatible stores only
	// surface a bare status or a generic error code.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
