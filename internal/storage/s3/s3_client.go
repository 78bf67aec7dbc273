package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"x2beta/internal/config"
	"x2beta/internal/port"
)

type s3Client struct {
	client      *s3.Client
	uploader    *manager.Uploader
	callTimeout time.Duration
	retryDelay  time.Duration
}

// NewS3Client creates a new S3-backed ObjectStorage implementation. Every
// call carries a deadline and is retried once after a short delay.
func NewS3Client(cfg *config.S3Config) (port.ObjectStorage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		client:      client,
		uploader:    manager.NewUploader(client),
		callTimeout: cfg.CallTimeout,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// withRetry runs op with a per-attempt deadline and one retry.
func (c *s3Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		lastErr = op(callCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *s3Client) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	// Buffer once so the retry can replay the body.
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 upload read body: %w", err)
	}

	var out *port.UploadOutput
	err = c.withRetry(ctx, func(ctx context.Context) error {
		result, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(input.Bucket),
			Key:         aws.String(input.Key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(input.ContentType),
		})
		if err != nil {
			return err
		}
		etag := ""
		if result.ETag != nil {
			etag = *result.ETag
		}
		out = &port.UploadOutput{
			Path: fmt.Sprintf("%s/%s", input.Bucket, input.Key),
			ETag: etag,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload: %w", err)
	}
	return out, nil
}

func (c *s3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, func(ctx context.Context) error {
		result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer result.Body.Close()
		data, err = io.ReadAll(result.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download: %w", err)
	}
	return data, nil
}

func (c *s3Client) Delete(ctx context.Context, bucket, key string) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}
