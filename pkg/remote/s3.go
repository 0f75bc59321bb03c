// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func init() {
	Register(types.RemoteS3, NewS3)
}

// throttleCodes are the S3 error codes treated as rate-limit backpressure
// rather than ordinary transient failures.
var throttleCodes = map[string]bool{
	"SlowDown":             true,
	"Throttling":           true,
	"ThrottlingException":  true,
	"RequestLimitExceeded": true,
	"TooManyRequests":      true,
}

// s3ThrottleGrace is the suspension window applied when S3 throttles without
// telling us when to come back.
const s3ThrottleGrace = 2 * time.Second

// S3 uploads chunks as objects in an S3-compatible bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ Store = (*S3)(nil)

// NewS3 creates an S3 backend. Static credentials and a custom endpoint
// (path style) are optional; without them the ambient AWS config applies.
func NewS3(cfg types.RemoteConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required for s3 remote")
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3) Type() types.RemoteType {
	return types.RemoteS3
}

func (s *S3) Put(ctx context.Context, key string, r io.Reader, meta Metadata) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(meta.Size),
		Metadata: map[string]string{
			"session-id":   meta.SessionID,
			"source-file":  meta.SourceFile,
			"chunk-index":  strconv.Itoa(meta.Index),
			"total-chunks": strconv.Itoa(meta.TotalChunks),
			"sha256":       meta.SHA256,
			"crc64nvme":    meta.CRC64,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return mapS3Error(key, err)
	}
	return nil
}

// mapS3Error folds SDK failures onto the four-way result contract.
func mapS3Error(key string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		if throttleCodes[ae.ErrorCode()] {
			return &types.RateLimitedError{ResetAt: time.Now().Add(s3ThrottleGrace)}
		}
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status := re.HTTPStatusCode()
		switch {
		case status == http.StatusTooManyRequests:
			return &types.RateLimitedError{ResetAt: time.Now().Add(s3ThrottleGrace)}
		case status == http.StatusRequestTimeout || status >= 500:
			return &types.TransientError{Err: fmt.Errorf("put chunk %s: %w", key, err)}
		case status >= 400:
			return &types.PermanentError{Err: fmt.Errorf("put chunk %s: %w", key, err)}
		}
	}

	// No HTTP response at all: connection reset, DNS, timeout.
	return &types.TransientError{Err: fmt.Errorf("put chunk %s: %w", key, err)}
}

func (s *S3) Close() error {
	return nil
}
